package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"officedesk/internal/backend"
	"officedesk/internal/history"
	"officedesk/internal/probe"
	"officedesk/internal/window"
)

// State is the lifecycle controller's current phase.
type State string

const (
	StateInit             State = "init"
	StateStarting         State = "starting"
	StateAwaitingBackend  State = "awaiting_backend"
	StateAwaitingDecision State = "awaiting_decision"
	StatePresenting       State = "presenting"
	StateRunning          State = "running"
	StateShuttingDown     State = "shutting_down"
	StateTerminated       State = "terminated"
)

// Options wires the controller's collaborators. Supervisor and Prober are
// required; a nil Presenter selects headless operation.
type Options struct {
	Supervisor *backend.Supervisor
	Prober     *probe.Prober
	Presenter  window.Presenter
	// Decide resolves the proceed/abort choice after a failed probe.
	// Defaults to the build profile's window.DecideOnProbeFailure.
	Decide func(title, message string) window.Decision
	Sinks  []history.Sink
	Logger *slog.Logger
	Title  string // dialog/window title
}

// App drives one launcher session: supervisor, then prober, then presenter,
// then shutdown. It owns the only reference to the backend child.
type App struct {
	opts Options
	url  string

	mu         sync.Mutex
	state      State
	last       probe.Result
	haveResult bool

	shutdownOnce sync.Once
}

func New(opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Decide == nil {
		opts.Decide = window.DecideOnProbeFailure
	}
	if opts.Title == "" {
		opts.Title = window.DefaultTitle
	}
	return &App{opts: opts, url: opts.Supervisor.Spec().URL(), state: StateInit}
}

// URL returns the backend base URL this session targets.
func (a *App) URL() string { return a.url }

// Status is a point-in-time snapshot served by the diagnostics API.
type Status struct {
	State       State         `json:"state"`
	URL         string        `json:"url"`
	BackendPID  int           `json:"backend_pid,omitempty"`
	BackendExit *int          `json:"backend_exit,omitempty"`
	Probe       *probe.Result `json:"probe,omitempty"`
}

func (a *App) Status() Status {
	a.mu.Lock()
	st := Status{State: a.state, URL: a.url}
	if a.haveResult {
		res := a.last
		st.Probe = &res
	}
	a.mu.Unlock()
	st.BackendPID = a.opts.Supervisor.Pid()
	if code, ok := a.opts.Supervisor.ExitCode(); ok {
		st.BackendExit = &code
	}
	return st
}

func (a *App) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
	a.opts.Logger.Debug("lifecycle state", "state", string(s))
}

// Run drives the whole session and blocks until it is torn down: window
// closed, probe aborted by the operator, or ctx canceled in headless mode.
// Nothing in here is fatal to the caller; failures degrade to a decision or
// a log line, and the process exit code stays 0.
func (a *App) Run(ctx context.Context) error {
	log := a.opts.Logger
	defer a.Shutdown()

	a.setState(StateStarting)
	err := a.opts.Supervisor.Start()
	switch {
	case err == nil:
		a.record(ctx, history.Event{Type: history.EventLaunch, PID: a.opts.Supervisor.Pid()})
	case errors.Is(err, backend.ErrNoBackend):
		log.Info("backend entry script not found, assuming externally managed backend", "error", err)
		a.record(ctx, history.Event{Type: history.EventLaunch, Detail: "externally managed"})
	default:
		// Spawn failures degrade the same way: probing will tell us whether
		// anything is listening.
		log.Warn("backend spawn failed, probing anyway", "error", err)
		a.record(ctx, history.Event{Type: history.EventLaunch, Detail: err.Error()})
	}

	a.setState(StateAwaitingBackend)
	res := a.opts.Prober.WaitForReady(ctx, a.url)
	a.mu.Lock()
	a.last = res
	a.haveResult = true
	a.mu.Unlock()

	if res.Ready() {
		log.Info("backend ready", "url", a.url, "attempts", res.Attempts, "elapsed", res.Elapsed)
		a.record(ctx, history.Event{
			Type:   history.EventReady,
			PID:    a.opts.Supervisor.Pid(),
			Status: string(res.Outcome),
			Detail: fmt.Sprintf("%d attempts", res.Attempts),
		})
	} else {
		log.Warn("backend never reported ready",
			"url", a.url,
			"outcome", string(res.Outcome),
			"attempts", res.Attempts,
			"last_status", res.StatusCode,
			"error", res.Err)
		a.record(ctx, history.Event{
			Type:   history.EventDegraded,
			PID:    a.opts.Supervisor.Pid(),
			Status: string(res.Outcome),
			Detail: fmt.Sprintf("%d attempts, last status %d", res.Attempts, res.StatusCode),
		})
	}

	if ctx.Err() != nil {
		return nil
	}

	if a.opts.Presenter == nil {
		// Headless: keep the session up until canceled, ready or not.
		a.setState(StateRunning)
		<-ctx.Done()
		return nil
	}

	if !res.Ready() {
		a.setState(StateAwaitingDecision)
		d := a.opts.Decide(a.opts.Title, window.FailureMessage(a.url, res.Attempts, res.StatusCode))
		log.Info("operator decision", "decision", d.String())
		if d == window.DecisionAbort {
			return nil
		}
	}

	a.setState(StatePresenting)
	// Present blocks for the window's whole lifetime, which is the running
	// phase of the session.
	a.setState(StateRunning)
	if err := a.opts.Presenter.Present(a.url); err != nil {
		log.Error("window presentation failed", "error", err)
	}
	return nil
}

// Shutdown tears the session down: idempotent, tolerant of the child being
// gone already.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(func() {
		a.setState(StateShuttingDown)
		a.opts.Supervisor.Stop()
		e := history.Event{Type: history.EventShutdown, PID: a.opts.Supervisor.Pid()}
		if code, ok := a.opts.Supervisor.ExitCode(); ok {
			e.Status = fmt.Sprintf("exit %d", code)
		}
		a.record(context.Background(), e)
		a.setState(StateTerminated)
	})
}

// record fans an event out to the configured sinks, best-effort.
func (a *App) record(ctx context.Context, e history.Event) {
	if len(a.opts.Sinks) == 0 {
		return
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	for _, s := range a.opts.Sinks {
		if err := s.Send(sctx, e); err != nil {
			a.opts.Logger.Warn("history sink write failed", "event", string(e.Type), "error", err)
		}
	}
}

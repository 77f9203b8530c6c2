package probe

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"officedesk/internal/metrics"
)

// Outcome is the terminal result of a readiness check.
type Outcome string

const (
	OutcomeReady          Outcome = "ready"
	OutcomeTimedOut       Outcome = "timed_out"
	OutcomeNetworkFailure Outcome = "network_failure"
)

// SuccessPolicy decides which HTTP status codes count as the backend being up.
type SuccessPolicy int

const (
	// PolicyRedirectOK accepts 2xx and 3xx responses. This is the strict
	// profile: the login redirect on / is enough, server errors are not.
	PolicyRedirectOK SuccessPolicy = iota
	// PolicyAnyNon5xx additionally accepts 4xx responses: anything that
	// proves the server is routing requests, even a 404.
	PolicyAnyNon5xx
)

// Accepts reports whether status satisfies the policy.
func (p SuccessPolicy) Accepts(status int) bool {
	if p == PolicyAnyNon5xx {
		return status >= 200 && status < 500
	}
	return status >= 200 && status < 400
}

func (p SuccessPolicy) String() string {
	if p == PolicyAnyNon5xx {
		return "non_5xx"
	}
	return "redirect_ok"
}

// Default probe parameters.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxAttempts = 60
	DefaultInterval    = 500 * time.Millisecond
)

// Config describes one readiness check.
type Config struct {
	Timeout     time.Duration `json:"timeout"`
	MaxAttempts int           `json:"max_attempts"`
	Interval    time.Duration `json:"interval"` // delay between attempts
	Policy      SuccessPolicy `json:"policy"`
	Client      *http.Client  `json:"-"` // optional; http.DefaultClient when nil
}

// Result is the terminal outcome of a probe sequence.
type Result struct {
	Outcome    Outcome       `json:"outcome"`
	StatusCode int           `json:"status_code,omitempty"` // last observed HTTP status
	Attempts   int           `json:"attempts"`
	Elapsed    time.Duration `json:"elapsed"`
	Err        error         `json:"-"` // last connection-level error, if any
}

// Ready reports whether the backend answered with an accepted status.
func (r Result) Ready() bool { return r.Outcome == OutcomeReady }

// Prober polls a URL until it answers successfully or the limits trip.
type Prober struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config) *Prober {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Prober{cfg: cfg, logger: slog.Default()}
}

// SetLogger overrides the logger used for per-attempt debug output.
func (p *Prober) SetLogger(l *slog.Logger) {
	if l != nil {
		p.logger = l
	}
}

// WaitForReady issues sequential GET requests against url until one matches
// the success policy or either the attempt ceiling or the time limit is
// reached, whichever trips first. Attempts never overlap: the next one is
// scheduled only after the previous response or error is known. Requests
// carry no per-request timeout of their own; they are bounded by the overall
// deadline (with one interval of slack, so an attempt scheduled right at the
// limit still completes) through the derived context.
func (p *Prober) WaitForReady(ctx context.Context, url string) Result {
	start := time.Now()
	rctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout+p.cfg.Interval)
	defer cancel()

	client := p.cfg.Client
	if client == nil {
		client = http.DefaultClient
	}

	var lastStatus int
	var lastErr error
	sawResponse := false
	attempts := 0
	for {
		attempts++
		metrics.IncProbeAttempt()
		status, err := attempt(rctx, client, url)
		if err == nil {
			sawResponse = true
			lastStatus = status
			if p.cfg.Policy.Accepts(status) {
				res := Result{Outcome: OutcomeReady, StatusCode: status, Attempts: attempts, Elapsed: time.Since(start)}
				p.observe(res)
				return res
			}
			p.logger.Debug("backend not ready yet", "attempt", attempts, "status", status)
		} else {
			lastErr = err
			p.logger.Debug("backend not reachable yet", "attempt", attempts, "error", err)
		}

		if attempts >= p.cfg.MaxAttempts || time.Since(start) >= p.cfg.Timeout {
			break
		}
		t := time.NewTimer(p.cfg.Interval)
		canceled := false
		select {
		case <-rctx.Done():
			if !t.Stop() {
				<-t.C
			}
			if lastErr == nil {
				lastErr = rctx.Err()
			}
			canceled = true
		case <-t.C:
		}
		if canceled {
			break
		}
	}

	out := OutcomeNetworkFailure
	if sawResponse {
		// At least one HTTP response arrived, it just never matched the
		// success policy before the limits tripped.
		out = OutcomeTimedOut
	}
	res := Result{Outcome: out, StatusCode: lastStatus, Attempts: attempts, Elapsed: time.Since(start), Err: lastErr}
	p.observe(res)
	return res
}

func (p *Prober) observe(r Result) {
	metrics.IncProbeOutcome(string(r.Outcome))
	metrics.ObserveProbeDuration(r.Elapsed.Seconds())
}

func attempt(ctx context.Context, client *http.Client, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	// Drain a little so keep-alive connections can be reused.
	_, _ = io.CopyN(io.Discard, resp.Body, 4096)
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

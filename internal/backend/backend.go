package backend

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"officedesk/internal/logger"
	"officedesk/internal/metrics"
)

// ErrNoBackend means the entry script is absent. It is recoverable: the
// caller assumes the backend is managed externally and proceeds to probing.
var ErrNoBackend = errors.New("backend entry script not found")

// Defaults for the supervised Django backend.
const (
	DefaultName     = "backend"
	DefaultHost     = "127.0.0.1"
	DefaultPort     = 8000
	DefaultVenvDir  = ".venv"
	DefaultStopWait = 3 * time.Second

	// entry script location relative to the launcher executable
	defaultScriptRel = "backend/manage.py"
)

// Spec describes the backend child process to supervise.
type Spec struct {
	Name        string        `json:"name"`
	Script      string        `json:"script"`      // path to manage.py; resolved next to the executable when empty
	Interpreter string        `json:"interpreter"` // explicit interpreter; venv/PATH resolution when empty
	VenvDir     string        `json:"venv_dir"`    // virtualenv dir relative to the script dir
	Host        string        `json:"host"`
	Port        int           `json:"port"`
	ExtraEnv    []string      `json:"env"`       // appended to the inherited host environment
	StopWait    time.Duration `json:"stop_wait"` // SIGTERM grace before SIGKILL
	Log         logger.Config `json:"log"`
}

func (s Spec) withDefaults() Spec {
	if s.Name == "" {
		s.Name = DefaultName
	}
	if s.Host == "" {
		s.Host = DefaultHost
	}
	if s.Port == 0 {
		s.Port = DefaultPort
	}
	if s.VenvDir == "" {
		s.VenvDir = DefaultVenvDir
	}
	if s.StopWait <= 0 {
		s.StopWait = DefaultStopWait
	}
	return s
}

// Addr returns the loopback bind address handed to runserver.
func (s Spec) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// URL returns the base URL the backend serves once up.
func (s Spec) URL() string { return fmt.Sprintf("http://%s/", s.Addr()) }

// Supervisor owns at most one backend child process per application run.
// It never restarts the child; the exit code is recorded for diagnostics only.
type Supervisor struct {
	spec   Spec
	logger *slog.Logger

	streams sync.WaitGroup // outstanding forward goroutines

	mu       sync.Mutex
	cmd      *exec.Cmd
	waitDone chan struct{} // closed by monitor when cmd.Wait returns
	exitCode int
	exited   bool
	stopping bool
	outW     io.WriteCloser
	errW     io.WriteCloser
}

func NewSupervisor(spec Spec) *Supervisor {
	return &Supervisor{spec: spec.withDefaults(), logger: slog.Default()}
}

// Spec returns the normalized spec, defaults applied.
func (s *Supervisor) Spec() Spec { return s.spec }

// SetLogger overrides the logger used for child output and diagnostics.
func (s *Supervisor) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

// resolveScript locates the backend entry script. When Spec.Script is empty
// it looks for backend/manage.py next to the launcher executable.
func (s *Supervisor) resolveScript() (string, error) {
	path := s.spec.Script
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("resolve executable: %w", err)
		}
		path = filepath.Join(filepath.Dir(exe), filepath.FromSlash(defaultScriptRel))
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNoBackend, path)
		}
		return "", err
	}
	return path, nil
}

// resolveInterpreter prefers the project-local virtualenv interpreter under
// the script directory, then falls back to python3/python from PATH.
func (s *Supervisor) resolveInterpreter(scriptDir string) (string, error) {
	if s.spec.Interpreter != "" {
		return s.spec.Interpreter, nil
	}
	venv := venvPython(filepath.Join(scriptDir, s.spec.VenvDir))
	if _, err := os.Stat(venv); err == nil {
		return venv, nil
	}
	for _, name := range []string{"python3", "python"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", errors.New("no python interpreter found on PATH")
}

// Start locates and launches the backend child. ErrNoBackend is returned
// when the entry script is absent; any other error is a spawn failure. In
// both cases the caller continues to probing.
func (s *Supervisor) Start() error {
	script, err := s.resolveScript()
	if err != nil {
		return err
	}
	scriptDir := filepath.Dir(script)
	interp, err := s.resolveInterpreter(scriptDir)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != nil {
		return errors.New("backend already started")
	}

	// #nosec G204 -- interpreter and script paths are resolved locally
	cmd := exec.Command(interp, script, "runserver", s.spec.Addr())
	cmd.Dir = scriptDir
	cmd.Env = append(os.Environ(), s.spec.ExtraEnv...)
	configureSysProcAttr(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if s.spec.Log.File.Dir != "" {
		_ = os.MkdirAll(s.spec.Log.File.Dir, 0o750)
	}
	outW, errW, _ := s.spec.Log.ProcessWriters(s.spec.Name)

	if err := cmd.Start(); err != nil {
		closeWriter(outW)
		closeWriter(errW)
		return fmt.Errorf("spawn backend: %w", err)
	}
	s.cmd = cmd
	s.outW, s.errW = outW, errW
	s.waitDone = make(chan struct{})
	s.logger.Info("backend started",
		"pid", cmd.Process.Pid,
		"interpreter", interp,
		"script", script,
		"addr", s.spec.Addr())
	metrics.IncBackendStart()
	metrics.SetBackendUp(true)

	s.streams.Add(2)
	go s.forward("stdout", stdout, outW)
	go s.forward("stderr", stderr, errW)
	go s.monitor()
	return nil
}

// forward copies child output line-by-line to the structured log, tagged by
// stream, and to the rotating file writer when one is configured.
func (s *Supervisor) forward(stream string, r io.Reader, w io.Writer) {
	defer s.streams.Done()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		s.logger.Debug(line, "source", s.spec.Name, "stream", stream)
		if w != nil {
			_, _ = fmt.Fprintln(w, line)
		}
	}
}

// monitor reaps the child exactly once and records its exit code. The
// stream readers must drain before Wait, per os/exec pipe semantics.
func (s *Supervisor) monitor() {
	s.streams.Wait()
	err := s.cmd.Wait()
	code := 0
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		code = ee.ExitCode()
	}

	s.mu.Lock()
	s.exitCode = code
	s.exited = true
	closeWriter(s.outW)
	closeWriter(s.errW)
	s.outW, s.errW = nil, nil
	close(s.waitDone)
	requested := s.stopping
	s.mu.Unlock()

	metrics.SetBackendUp(false)
	if err != nil && !requested {
		s.logger.Warn("backend exited", "exit_code", code, "error", err)
	} else {
		s.logger.Info("backend exited", "exit_code", code)
	}
}

// Pid returns the child pid, or 0 when nothing was spawned.
func (s *Supervisor) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// ExitCode returns the recorded exit code once the child has terminated.
func (s *Supervisor) ExitCode() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode, s.exited
}

// Alive reports whether the spawned child is still running.
func (s *Supervisor) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil && !s.exited
}

// Stop terminates the child best-effort: TERM the process group, escalate to
// KILL after the grace period. It tolerates the process already being gone
// and is safe to call repeatedly.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cmd := s.cmd
	wd := s.waitDone
	gone := s.exited
	first := !s.stopping
	s.stopping = true
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil || gone {
		return
	}
	if first {
		metrics.IncBackendStop()
	}
	pid := cmd.Process.Pid
	// Termination errors are swallowed: the process may already be gone.
	_ = killProcess(-pid, sigTerminate)
	select {
	case <-wd:
		return
	case <-time.After(s.spec.StopWait):
	}
	s.logger.Warn("backend did not exit in time, killing", "pid", pid)
	_ = killProcess(-pid, sigKill)
	select {
	case <-wd:
	case <-time.After(200 * time.Millisecond):
		// best-effort
	}
}

func closeWriter(w io.WriteCloser) {
	if w != nil {
		_ = w.Close()
	}
}

package backend

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestSpecDefaults(t *testing.T) {
	s := Spec{}.withDefaults()
	if s.Name != "backend" || s.Host != "127.0.0.1" || s.Port != 8000 {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if s.VenvDir != ".venv" || s.StopWait != 3*time.Second {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if s.Addr() != "127.0.0.1:8000" {
		t.Fatalf("addr = %q", s.Addr())
	}
	if s.URL() != "http://127.0.0.1:8000/" {
		t.Fatalf("url = %q", s.URL())
	}
}

func TestStartMissingScriptReturnsErrNoBackend(t *testing.T) {
	dir := t.TempDir()
	sup := NewSupervisor(Spec{Script: filepath.Join(dir, "manage.py")})
	err := sup.Start()
	if !errors.Is(err, ErrNoBackend) {
		t.Fatalf("expected ErrNoBackend, got %v", err)
	}
	if sup.Pid() != 0 {
		t.Fatalf("no child expected, pid=%d", sup.Pid())
	}
	// Stop on a never-started supervisor must be harmless.
	sup.Stop()
	sup.Stop()
}

func TestExitCodeUnsetWhileNotStarted(t *testing.T) {
	sup := NewSupervisor(Spec{})
	if _, ok := sup.ExitCode(); ok {
		t.Fatalf("exit code should be unset before any run")
	}
	if sup.Alive() {
		t.Fatalf("nothing was spawned")
	}
}

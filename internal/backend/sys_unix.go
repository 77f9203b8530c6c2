//go:build !windows

package backend

import (
	"os/exec"
	"path/filepath"
	"syscall"
)

const (
	sigTerminate = syscall.SIGTERM
	sigKill      = syscall.SIGKILL
)

// configureSysProcAttr places the child in its own process group so the
// whole runserver tree (including the autoreload worker) receives signals.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// venvPython returns the interpreter path inside a Unix virtualenv.
func venvPython(venvDir string) string {
	return filepath.Join(venvDir, "bin", "python")
}

// killProcess sends a signal to a process or, with a negative pid, a group.
func killProcess(pid int, sig syscall.Signal) error {
	return syscall.Kill(pid, sig)
}

package daemon

import (
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

// ChildEnv marks the detached child started by Spawn.
const ChildEnv = "SAC_DAEMON_CHILD"

var ErrNotRunning = errors.New("daemon is not running or PID file is stale")

type Daemon struct {
	pidFile string
}

func New(pidFile string) *Daemon {
	return &Daemon{pidFile: pidFile}
}

func (d *Daemon) PIDFile() string {
	return d.pidFile
}

func (d *Daemon) WritePID() error {
	pid := os.Getpid()
	if err := os.WriteFile(d.pidFile, strconv.AppendInt(nil, int64(pid), 10), 0644); err != nil {
		return errors.Wrap(err, "failed to write PID file")
	}
	return nil
}

// ReadPID returns 0 when there is no PID file.
func (d *Daemon) ReadPID() (int, error) {
	data, err := os.ReadFile(d.pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "failed to read PID file")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, errors.Wrap(err, "invalid PID in file")
	}

	return pid, nil
}

func (d *Daemon) RemovePID() error {
	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove PID file")
	}
	return nil
}

// IsRunning probes the recorded PID with signal 0 and removes a stale file.
func (d *Daemon) IsRunning() (bool, int, error) {
	pid, err := d.ReadPID()
	if err != nil {
		return false, 0, err
	}

	if pid == 0 {
		return false, 0, nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, 0, nil
	}

	if err := process.Signal(syscall.Signal(0)); err != nil {
		_ = d.RemovePID()
		return false, 0, nil
	}

	return true, pid, nil
}

// Stop sends SIGTERM to the recorded process. The daemon stops its monitor
// gracefully and removes the PID file itself; Stop removes it as well.
func (d *Daemon) Stop() error {
	running, pid, err := d.IsRunning()
	if err != nil {
		return errors.Wrap(err, "error checking daemon status")
	}

	if !running {
		return ErrNotRunning
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return errors.Wrap(err, "failed to find process")
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			_ = d.RemovePID()
			return errors.New("daemon process already terminated")
		}
		return errors.Wrap(err, "failed to send SIGTERM")
	}

	return d.RemovePID()
}

// IsChild reports whether this process was started by Spawn.
func IsChild() bool {
	return os.Getenv(ChildEnv) == "1"
}

// Spawn re-executes the current binary with args in a new session, detached
// from the terminal, and returns the child's PID.
func Spawn(args []string) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, errors.Wrap(err, "failed to resolve executable")
	}

	env := append(os.Environ(), ChildEnv+"=1")

	procAttr := &os.ProcAttr{
		Env:   env,
		Files: []*os.File{nil, nil, nil}, // stdin, stdout, stderr to /dev/null
		Sys: &syscall.SysProcAttr{
			Setsid: true,
		},
	}

	process, err := os.StartProcess(exe, append([]string{exe}, args...), procAttr)
	if err != nil {
		return 0, errors.Wrap(err, "failed to start daemon process")
	}
	pid := process.Pid
	_ = process.Release()

	return pid, nil
}

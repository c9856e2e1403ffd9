//go:build !windows

package process

import (
	"os/exec"

	"golang.org/x/sys/unix"
)

// FromWaitStatus converts a POSIX wait status (as returned by wait4(2))
// into the spec's tagged ExitStatus.
func FromWaitStatus(ws unix.WaitStatus) ExitStatus {
	switch {
	case ws.Signaled():
		return Signal(int32(ws.Signal()))
	default:
		return Code(int64(ws.ExitStatus()))
	}
}

// Spawn starts cmd and returns its pid without waiting for it to
// finish. Callers register the pid with a runloop.RunLoop's
// AddProcessID to be notified on exit; this package does not itself
// reap the child.
func Spawn(cmd *exec.Cmd) (pid int, err error) {
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	return cmd.Process.Pid, nil
}

package runloop

import (
	"time"

	"github.com/joeycumines/go-buildcore/process"
)

// processExit is a single observed child-process termination, fed from
// a backend's poll back into the RunLoop's task queue.
type processExit struct {
	pid    int
	status process.ExitStatus
}

// backend abstracts the platform-specific half of RunLoop: waking a
// blocked poll when work is added, and (where the platform allows)
// waiting for child-process termination without busy-polling.
//
// Grounded on the split the teacher uses between poller_linux.go
// (epoll) and poller_darwin.go (kqueue), generalized here to also
// carry process-exit notifications, since this engine's RunLoop (unlike
// eventloop's Loop) needs to multiplex task wakeups with child-process
// reaping rather than arbitrary user file descriptors.
type backend interface {
	// wake causes a blocked poll to return as soon as possible, with
	// no pending exits. Safe to call from any goroutine.
	wake()

	// poll blocks for up to timeout (or forever if timeout < 0)
	// until woken or a watched process exits, whichever comes first.
	// Returns any process exits observed. A zero timeout is a
	// non-blocking check.
	poll(timeout time.Duration) []processExit

	// watchProcess registers pid for exit notification. Returns
	// ErrUnsupported if this backend cannot watch processes.
	watchProcess(pid int) error

	// unwatchProcess cancels a prior watchProcess, if still pending.
	unwatchProcess(pid int)

	// supportsProcessWatch reports whether watchProcess can ever
	// succeed on this backend.
	supportsProcessWatch() bool

	// close releases backend resources. Idempotent.
	close() error
}

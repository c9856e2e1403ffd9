package runloop

import "errors"

var (
	// ErrLoopTerminated is returned by operations attempted after
	// Deallocate.
	ErrLoopTerminated = errors.New("runloop: loop has been deallocated")

	// ErrAlreadyRunning is returned by Run when the loop is already
	// running, whether called concurrently from another goroutine or
	// reentrantly from within a task executing on this same loop.
	ErrAlreadyRunning = errors.New("runloop: already running")

	// ErrDeadlock is returned by Run, for the plain backend only,
	// when the task queue drains without Stop having been called and
	// no process watches remain outstanding — per spec.md §4.5, this
	// signals a deadlock rather than a clean shutdown. Wraps the
	// source project's ENOTSUP vocabulary (spec.md §6).
	ErrDeadlock = errors.New("runloop: queue drained without Stop (ENOTSUP: plain backend cannot block)")

	// ErrUnsupported is returned by AddProcessID on a backend that
	// cannot watch child processes (the plain backend, or any
	// backend on a platform without POSIX process semantics).
	ErrUnsupported = errors.New("runloop: process watching not supported by this backend (ENOTSUP)")

	// ErrNeverResolved is not returned by the loop itself; callers
	// use it to classify the user-visible "root future still Pending
	// after Run returned" outcome described in spec.md §7.
	ErrNeverResolved = errors.New("runloop: future never resolved")
)

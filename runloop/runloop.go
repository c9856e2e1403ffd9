// Package runloop implements RunLoop: the single-threaded, cooperative
// task scheduler described in spec.md §4 that drives AnswerFuture
// callbacks and rule resumption to completion. Only one task ever runs
// at a time; tasks added while a task is running become visible only on
// the next iteration, matching the teacher's eventloop.Loop contract
// adapted in backend.go/backend_plain.go/backend_kqueue.go/backend_epoll.go.
package runloop

import (
	"sync"

	"github.com/joeycumines/go-buildcore/internal/corelog"
	"github.com/joeycumines/go-buildcore/process"
)

type task struct {
	cb     func() error
	cancel func()
}

type watch struct {
	exitCb   func(rl *RunLoop, status process.ExitStatus, data any) error
	cancelCb func()
	data     any
}

// RunLoop is a single-threaded cooperative scheduler. It satisfies
// future.Scheduler via AddFunction, and additionally supports tasks
// that can report an error to stop Run, and (where the backend allows)
// watching child processes for exit.
type RunLoop struct {
	log     *corelog.Logger
	backend backend

	mu       sync.Mutex
	queue    []task
	watches  map[int]watch
	running  bool
	stopping bool
}

// AllocatePreferred constructs a RunLoop using the best backend
// available on the current platform (kqueue, epoll, or plain, per the
// build-tag-selected newPreferredBackend), unless overridden by
// WithPlainBackend.
func AllocatePreferred(opts ...Option) (*RunLoop, error) {
	cfg := resolveOptions(opts)
	log := corelog.Safe(cfg.logger)

	var b backend
	var err error
	if cfg.forcePlain {
		b = newPlainBackend()
	} else {
		b, err = newPreferredBackend(log)
		if err != nil {
			return nil, err
		}
	}
	return &RunLoop{
		log:     log,
		backend: b,
		watches: make(map[int]watch),
	}, nil
}

// AddFunction satisfies future.Scheduler: it enqueues a task with no
// error return. Any error-returning variant should use AddTask instead.
func (rl *RunLoop) AddFunction(cb func(), cancel func()) {
	rl.AddTask(func() error { cb(); return nil }, cancel)
}

// AddTask enqueues cb to run on the loop's single cooperative thread.
// If cb returns a non-nil error, Run stops and returns that error. If
// the loop is deallocated before cb runs, cancel runs instead (if
// non-nil) — exactly one of cb or cancel ever runs for a given task.
func (rl *RunLoop) AddTask(cb func() error, cancel func()) {
	rl.mu.Lock()
	if rl.backend == nil {
		rl.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return
	}
	rl.queue = append(rl.queue, task{cb: cb, cancel: cancel})
	rl.mu.Unlock()
	rl.backend.wake()
}

// AddProcessID registers pid for exit notification: when it terminates,
// exitCb is enqueued as a task on this loop with the reaped
// process.ExitStatus. Returns ErrUnsupported if the selected backend
// cannot watch processes (the plain backend, per spec.md §4.5) or
// ErrLoopTerminated if called after Deallocate.
func (rl *RunLoop) AddProcessID(pid int, exitCb func(rl *RunLoop, status process.ExitStatus, data any) error, cancelCb func(), data any) error {
	rl.mu.Lock()
	if rl.backend == nil {
		rl.mu.Unlock()
		return ErrLoopTerminated
	}
	if !rl.backend.supportsProcessWatch() {
		rl.mu.Unlock()
		return ErrUnsupported
	}
	rl.watches[pid] = watch{exitCb: exitCb, cancelCb: cancelCb, data: data}
	b := rl.backend
	rl.mu.Unlock()
	if err := b.watchProcess(pid); err != nil {
		rl.mu.Lock()
		delete(rl.watches, pid)
		rl.mu.Unlock()
		return err
	}
	return nil
}

// Stop requests that Run return cleanly after the currently executing
// task (if any) completes and the queue is next observed empty. Safe
// to call from within a running task or from any other goroutine.
func (rl *RunLoop) Stop() {
	rl.mu.Lock()
	rl.stopping = true
	b := rl.backend
	rl.mu.Unlock()
	if b != nil {
		b.wake()
	}
}

// Run drains the task queue, blocking in the backend between rounds
// when the queue is empty, until Stop is called and the queue is
// empty, or a task returns a non-nil error (which Run then returns).
//
// A backend that cannot block (the plain backend with no outstanding
// process watches) returning to Run with an empty queue and no Stop
// pending is a deadlock per spec.md §4.5: nothing will ever wake this
// loop again, so Run returns ErrDeadlock rather than spinning.
//
// Run is not reentrant: calling it while already running, including
// from within a task executing on this same loop, returns
// ErrAlreadyRunning. Distinguishing a same-goroutine nested call from a
// genuinely concurrent one would need goroutine-local state Go doesn't
// provide; both are equally "can't run right now" to the caller.
func (rl *RunLoop) Run() error {
	rl.mu.Lock()
	if rl.running {
		rl.mu.Unlock()
		return ErrAlreadyRunning
	}
	rl.running = true
	rl.mu.Unlock()
	defer func() {
		rl.mu.Lock()
		rl.running = false
		rl.stopping = false
		rl.mu.Unlock()
	}()

	for {
		rl.mu.Lock()
		if len(rl.queue) == 0 {
			if rl.stopping {
				rl.mu.Unlock()
				return nil
			}
			hasWatches := len(rl.watches) > 0
			b := rl.backend
			if b == nil {
				rl.mu.Unlock()
				return ErrLoopTerminated
			}
			if !hasWatches && !b.supportsProcessWatch() {
				// No work, no way to be woken by anything but another
				// AddFunction/AddTask call, which can't happen because
				// nothing is running concurrently on this loop's
				// behalf. Per spec.md §4.5 this is a deadlock, not a
				// clean exit.
				rl.mu.Unlock()
				rl.log.Warning().Log("runloop: queue drained without Stop, no process watches; deadlock")
				return ErrDeadlock
			}
			rl.mu.Unlock()

			exits := b.poll(-1)
			rl.deliverExits(exits)
			continue
		}
		t := rl.queue[0]
		rl.queue = rl.queue[1:]
		rl.mu.Unlock()

		if err := t.cb(); err != nil {
			return err
		}
	}
}

// deliverExits turns backend-reported process exits into enqueued
// tasks, removing each pid's watch registration first so a re-watch of
// the same pid (unlikely, but not forbidden) isn't confused with the
// one just delivered.
func (rl *RunLoop) deliverExits(exits []processExit) {
	if len(exits) == 0 {
		return
	}
	for _, ex := range exits {
		rl.mu.Lock()
		w, ok := rl.watches[ex.pid]
		delete(rl.watches, ex.pid)
		rl.mu.Unlock()
		if !ok {
			continue
		}
		status := ex.status
		cb := w.exitCb
		data := w.data
		rl.mu.Lock()
		rl.queue = append(rl.queue, task{
			cb: func() error {
				return cb(rl, status, data)
			},
		})
		rl.mu.Unlock()
	}
}

// Deallocate cancels every still-queued task (invoking its cancel
// callback, if any, exactly once) and every outstanding process watch,
// then releases the backend. Deallocate is not safe to call
// concurrently with Run; stop the loop first.
func (rl *RunLoop) Deallocate() {
	rl.mu.Lock()
	queue := rl.queue
	rl.queue = nil
	watches := rl.watches
	rl.watches = nil
	b := rl.backend
	rl.backend = nil
	rl.mu.Unlock()

	for _, t := range queue {
		if t.cancel != nil {
			t.cancel()
		}
	}
	for _, w := range watches {
		if w.cancelCb != nil {
			w.cancelCb()
		}
	}
	if b != nil {
		if err := b.close(); err != nil {
			rl.log.Err().Err(err).Log("runloop: error closing backend")
		}
	}
}

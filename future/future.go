// Package future implements AnswerFuture: a reference-counted,
// fixed-arity cell that is Pending, then transitions exactly once to
// either Resolved (with N answers) or Failed (with one error).
//
// Adapted from the teacher's eventloop/promise.go and eventloop/state.go:
// an atomic state discriminant guards the terminal transition, and
// registered callbacks are always scheduled onto the owning scheduler
// rather than invoked inline, so a callback can never run synchronously
// from AddCallback and rule resumption can never grow the call stack
// unboundedly.
package future

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/go-buildcore/qa"
)

// Scheduler is the minimal surface a Future needs from its owning
// RunLoop: the ability to enqueue a one-shot callback. runloop.RunLoop
// satisfies this interface; tests may supply a fake.
type Scheduler interface {
	// AddFunction enqueues cb to run on the scheduler's single
	// cooperative thread. cancel, if non-nil, runs instead of cb if
	// the scheduler is torn down before cb runs.
	AddFunction(cb func(), cancel func())
}

// Callback is invoked exactly once when a Future becomes terminal. It
// receives a borrowed reference to the Future and the data supplied to
// AddCallback.
type Callback func(f *Future, data any)

type callbackEntry struct {
	cb   Callback
	data any
}

// Future is an AnswerFuture: a Pending/Resolved/Failed cell with fixed
// arity, fixed at allocation.
type Future struct {
	scheduler Scheduler

	state atomicState

	mu        sync.Mutex
	arity     int
	answers   []qa.Answer
	filled    []bool
	remaining int
	err       error
	callbacks []callbackEntry

	refs atomic.Int32
}

// New allocates a Pending Future with the given arity (number of
// producer slots it must receive before it can resolve). arity must be
// >= 1; use New with arity 1 for the common single-answer case.
func New(scheduler Scheduler, arity int) *Future {
	if arity < 1 {
		panic(fmt.Sprintf("future: arity must be >= 1, got %d", arity))
	}
	return &Future{
		scheduler: scheduler,
		arity:     arity,
		answers:   make([]qa.Answer, arity),
		filled:    make([]bool, arity),
		remaining: arity,
	}
}

// Resolved allocates an arity-1 Future that is already Resolved with
// answer. Used by the dispatcher when a database lookup hits.
func Resolved(scheduler Scheduler, answer qa.Answer) *Future {
	f := New(scheduler, 1)
	f.state.v.Store(uint32(Resolved))
	f.answers[0] = answer
	f.filled[0] = true
	f.remaining = 0
	return f
}

// State returns the Future's current state. Cheap, lock-free read.
func (f *Future) State() State { return f.state.load() }

// Scheduler returns the scheduler this future schedules its callbacks
// on, so combinators (e.g. answerctx.Context.Need) can build dependent
// futures against the same scheduler.
func (f *Future) Scheduler() Scheduler { return f.scheduler }

// AnswerCount returns the future's fixed arity. Only meaningful once
// Resolved, but safe to call at any time.
func (f *Future) AnswerCount() int { return f.arity }

// Answer returns the i'th answer. Valid only in the Resolved state,
// with 0 <= i < AnswerCount(); calling otherwise is a precondition
// violation and panics.
func (f *Future) Answer(i int) qa.Answer {
	if f.State() != Resolved {
		panic("future: Answer called on a non-Resolved future")
	}
	if i < 0 || i >= f.arity {
		panic(fmt.Sprintf("future: Answer index %d out of range [0,%d)", i, f.arity))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.answers[i]
}

// Err returns the failure error. Valid only in the Failed state.
func (f *Future) Err() error {
	if f.State() != Failed {
		panic("future: Err called on a non-Failed future")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// AddCallback registers cb to run when f becomes terminal. If f is
// already terminal, cb is scheduled immediately (but never invoked
// synchronously from this call) on the owning scheduler.
func (f *Future) AddCallback(cb Callback, data any) {
	f.mu.Lock()
	if f.state.load() == Pending {
		f.callbacks = append(f.callbacks, callbackEntry{cb: cb, data: data})
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	f.scheduleOne(cb, data)
}

func (f *Future) scheduleOne(cb Callback, data any) {
	f.scheduler.AddFunction(func() {
		cb(f, data)
	}, func() {
		// Cancelled before it ran (scheduler torn down): the
		// callback is owed exactly one invocation per the cancel
		// contract, but a cancelled scheduler means no further
		// progress is possible. Callers that care about this must
		// inspect f's state themselves after Deallocate.
	})
}

// fireCallbacksLocked schedules every registered callback exactly once,
// in registration order, and clears the list. Must be called with f.mu
// held, and only once per future (guarded by the CAS in ResolveSlot /
// FailSlot).
func (f *Future) fireCallbacksLocked() {
	cbs := f.callbacks
	f.callbacks = nil
	for _, entry := range cbs {
		f.scheduleOne(entry.cb, entry.data)
	}
}

// Resolve transitions an arity-1 Pending future to Resolved with
// answer. Calling Resolve on a future whose arity isn't 1, or that
// isn't Pending, is a precondition violation and panics.
func (f *Future) Resolve(answer qa.Answer) {
	if f.arity != 1 {
		panic(fmt.Sprintf("future: Resolve requires arity 1, got %d", f.arity))
	}
	f.ResolveSlot(0, answer)
}

// ResolveSlot fills producer slot i with answer. If this is the last
// unfilled slot, the future transitions to Resolved and all registered
// callbacks are scheduled. Filling an already-filled slot, or any slot
// of a future that is no longer Pending, is a precondition violation
// and panics — except that a slot fill on an already-Failed future is
// silently ignored, per the documented "failure wins" semantics for
// multi-arity futures.
func (f *Future) ResolveSlot(i int, answer qa.Answer) {
	f.mu.Lock()
	if i < 0 || i >= f.arity {
		f.mu.Unlock()
		panic(fmt.Sprintf("future: slot index %d out of range [0,%d)", i, f.arity))
	}
	switch f.state.load() {
	case Failed:
		f.mu.Unlock()
		return
	case Resolved:
		f.mu.Unlock()
		panic("future: ResolveSlot on an already-Resolved future")
	}
	if f.filled[i] {
		f.mu.Unlock()
		panic(fmt.Sprintf("future: slot %d already filled", i))
	}
	f.filled[i] = true
	f.answers[i] = answer
	f.remaining--
	if f.remaining > 0 {
		f.mu.Unlock()
		return
	}
	if !f.state.tryTerminate(Resolved) {
		f.mu.Unlock()
		panic("future: concurrent terminal transition")
	}
	f.fireCallbacksLocked()
	f.mu.Unlock()
}

// Fail transitions f to Failed with err, from any state or arity. If f
// is already terminal, subsequent calls to Fail are ignored (matching
// FailSlot's "failure wins, first failure sticks" semantics); this
// differs from Resolve/ResolveSlot, which treat re-resolution as a bug,
// because a rule may legitimately call ctx.fail concurrently with an
// in-flight dependency failing first.
func (f *Future) Fail(err error) {
	f.FailSlot(0, err)
}

// FailSlot fails f immediately with err, regardless of which slot i
// names or how many slots remain unfilled. Ignored if f is already
// terminal.
func (f *Future) FailSlot(_ int, err error) {
	f.mu.Lock()
	if f.state.load() != Pending {
		f.mu.Unlock()
		return
	}
	if !f.state.tryTerminate(Failed) {
		f.mu.Unlock()
		return
	}
	f.err = err
	f.fireCallbacksLocked()
	f.mu.Unlock()
}

// Retain increments f's reference count and returns f, for chaining.
func (f *Future) Retain() *Future {
	f.refs.Add(1)
	return f
}

// Release decrements f's reference count. The teacher's DESIGN NOTES
// call for replacing manual C refcounting with "a standard
// shared-ownership primitive" — in Go that's simply letting the
// garbage collector reclaim f once every reference (cache entry,
// AnswerContext, callback closures) has been dropped; Release exists
// to preserve the spec's retain/release vocabulary and to let callers
// assert balanced ownership in tests, not to free anything by hand.
func (f *Future) Release() {
	if n := f.refs.Add(-1); n < 0 {
		panic("future: Release called more times than Retain")
	}
}

package future_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-buildcore/future"
	"github.com/joeycumines/go-buildcore/qa"
)

// fakeScheduler runs callbacks synchronously but never from within
// AddFunction itself — it queues them and RunPending drains the queue,
// mirroring a RunLoop's "never invoke synchronously" contract closely
// enough for unit tests.
type fakeScheduler struct {
	mu    sync.Mutex
	tasks []func()
}

func (s *fakeScheduler) AddFunction(cb func(), _ func()) {
	s.mu.Lock()
	s.tasks = append(s.tasks, cb)
	s.mu.Unlock()
}

func (s *fakeScheduler) RunPending() {
	for {
		s.mu.Lock()
		if len(s.tasks) == 0 {
			s.mu.Unlock()
			return
		}
		t := s.tasks[0]
		s.tasks = s.tasks[1:]
		s.mu.Unlock()
		t()
	}
}

type fakeAnswer struct{ v int }

func (fakeAnswer) AnswerKind() *qa.AnswerVTable { return nil }

func TestResolve_SingleArity(t *testing.T) {
	sched := &fakeScheduler{}
	f := future.New(sched, 1)
	require.Equal(t, future.Pending, f.State())

	var fired bool
	f.AddCallback(func(f *future.Future, _ any) {
		fired = true
		require.Equal(t, future.Resolved, f.State())
	}, nil)

	f.Resolve(fakeAnswer{v: 42})
	assert.False(t, fired, "callback must not run synchronously")
	sched.RunPending()
	assert.True(t, fired)
	assert.Equal(t, fakeAnswer{v: 42}, f.Answer(0))
}

func TestAddCallback_OnAlreadyTerminal_SchedulesNextIteration(t *testing.T) {
	sched := &fakeScheduler{}
	f := future.New(sched, 1)
	f.Resolve(fakeAnswer{v: 1})
	sched.RunPending()

	var fired bool
	f.AddCallback(func(*future.Future, any) { fired = true }, nil)
	assert.False(t, fired)
	sched.RunPending()
	assert.True(t, fired)
}

func TestCallbackOrder(t *testing.T) {
	sched := &fakeScheduler{}
	f := future.New(sched, 1)
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		f.AddCallback(func(*future.Future, any) { order = append(order, i) }, nil)
	}
	f.Resolve(fakeAnswer{})
	sched.RunPending()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestFail(t *testing.T) {
	sched := &fakeScheduler{}
	f := future.New(sched, 1)
	wantErr := errors.New("boom")
	f.Fail(wantErr)
	sched.RunPending()
	require.Equal(t, future.Failed, f.State())
	assert.Equal(t, wantErr, f.Err())
}

func TestResolveTwice_Panics(t *testing.T) {
	sched := &fakeScheduler{}
	f := future.New(sched, 1)
	f.Resolve(fakeAnswer{})
	assert.Panics(t, func() { f.Resolve(fakeAnswer{}) })
}

func TestFailTwice_Ignored(t *testing.T) {
	sched := &fakeScheduler{}
	f := future.New(sched, 1)
	f.Fail(errors.New("first"))
	assert.NotPanics(t, func() { f.Fail(errors.New("second")) })
	sched.RunPending()
	assert.EqualError(t, f.Err(), "first")
}

func TestMultiArity_FiresOnlyWhenAllFilled(t *testing.T) {
	sched := &fakeScheduler{}
	f := future.New(sched, 3)
	var fired bool
	f.AddCallback(func(*future.Future, any) { fired = true }, nil)

	f.ResolveSlot(1, fakeAnswer{v: 1})
	assert.Equal(t, future.Pending, f.State())
	f.ResolveSlot(0, fakeAnswer{v: 0})
	assert.Equal(t, future.Pending, f.State())
	f.ResolveSlot(2, fakeAnswer{v: 2})
	sched.RunPending()
	assert.True(t, fired)
	assert.Equal(t, fakeAnswer{v: 0}, f.Answer(0))
	assert.Equal(t, fakeAnswer{v: 1}, f.Answer(1))
	assert.Equal(t, fakeAnswer{v: 2}, f.Answer(2))
}

func TestMultiArity_FailureWins(t *testing.T) {
	sched := &fakeScheduler{}
	f := future.New(sched, 3)
	f.ResolveSlot(0, fakeAnswer{v: 0})
	f.FailSlot(1, errors.New("dep failed"))
	// A late fill on a since-Failed future is ignored, not fatal.
	assert.NotPanics(t, func() { f.ResolveSlot(2, fakeAnswer{v: 2}) })
	sched.RunPending()
	require.Equal(t, future.Failed, f.State())
	assert.EqualError(t, f.Err(), "dep failed")
}

func TestJoin_OrderPreservedRegardlessOfCompletionOrder(t *testing.T) {
	sched := &fakeScheduler{}
	children := []*future.Future{
		future.New(sched, 1),
		future.New(sched, 1),
		future.New(sched, 1),
	}
	joined := future.Join(sched, children)

	// Resolve in reverse order.
	children[2].Resolve(fakeAnswer{v: 2})
	sched.RunPending()
	children[1].Resolve(fakeAnswer{v: 1})
	sched.RunPending()
	children[0].Resolve(fakeAnswer{v: 0})
	sched.RunPending()

	require.Equal(t, future.Resolved, joined.State())
	assert.Equal(t, fakeAnswer{v: 0}, joined.Answer(0))
	assert.Equal(t, fakeAnswer{v: 1}, joined.Answer(1))
	assert.Equal(t, fakeAnswer{v: 2}, joined.Answer(2))
}

func TestJoin_FailurePropagates(t *testing.T) {
	sched := &fakeScheduler{}
	children := []*future.Future{
		future.New(sched, 1),
		future.New(sched, 1),
	}
	joined := future.Join(sched, children)
	children[0].Fail(errors.New("child 0 failed"))
	sched.RunPending()
	require.Equal(t, future.Failed, joined.State())
	assert.EqualError(t, joined.Err(), "child 0 failed")
}

func TestJoin_ZeroChildren_Panics(t *testing.T) {
	sched := &fakeScheduler{}
	assert.Panics(t, func() { future.Join(sched, nil) })
}

func TestResolved_Helper(t *testing.T) {
	sched := &fakeScheduler{}
	f := future.Resolved(sched, fakeAnswer{v: 9})
	require.Equal(t, future.Resolved, f.State())
	assert.Equal(t, fakeAnswer{v: 9}, f.Answer(0))
}

func TestRetainRelease_Balanced(t *testing.T) {
	sched := &fakeScheduler{}
	f := future.New(sched, 1).Retain()
	assert.NotPanics(t, f.Release)
}

func TestRetainRelease_Unbalanced_Panics(t *testing.T) {
	sched := &fakeScheduler{}
	f := future.New(sched, 1)
	assert.Panics(t, f.Release)
}

package answerctx_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-buildcore/answerctx"
	"github.com/joeycumines/go-buildcore/future"
	"github.com/joeycumines/go-buildcore/qa"
)

type syncScheduler struct{}

func (syncScheduler) AddFunction(cb func(), _ func()) { cb() }

type stubAnswer struct{ sum int }

func (stubAnswer) AnswerKind() *qa.AnswerVTable { return nil }

type stubQuestion struct {
	name       string
	nativeOK   bool
	nativeErr  error
	nativeAns  qa.Answer
}

func (q *stubQuestion) Kind() *qa.VTable { return vtableFor(q) }

func vtableFor(q *stubQuestion) *qa.VTable {
	return &qa.VTable{
		Name: q.name,
		QueryAnswer: func(qq qa.Question) qa.QueryResult {
			sq := qq.(*stubQuestion)
			if sq.nativeErr != nil {
				return qa.QueryFailed(sq.nativeErr)
			}
			if !sq.nativeOK {
				return qa.NoAnswer
			}
			return qa.Answered(sq.nativeAns)
		},
	}
}

type recordingDeps struct {
	edges [][2]string
}

func (r *recordingDeps) RecordDependency(fromQ qa.Question, fromV *qa.VTable, toQ qa.Question, toV *qa.VTable) error {
	r.edges = append(r.edges, [2]string{fromV.Name, toV.Name})
	return nil
}

type stubDispatcher struct {
	answers map[string]qa.Answer
	sched   future.Scheduler
}

func (d *stubDispatcher) Ask(q qa.Question, v *qa.VTable) *future.Future {
	f := future.New(d.sched, 1)
	if ans, ok := d.answers[v.Name]; ok {
		f.Resolve(ans)
	} else {
		f.Fail(errors.New("no answer for " + v.Name))
	}
	return f
}

func TestSucceed_NativeAnswer(t *testing.T) {
	sched := syncScheduler{}
	q := &stubQuestion{name: "Q1", nativeOK: true, nativeAns: stubAnswer{sum: 0xC6}}
	result := future.New(sched, 1)
	deps := &recordingDeps{}
	disp := &stubDispatcher{sched: sched}
	ctx := answerctx.New(q, q.Kind(), result, disp, deps, nil)

	ctx.Succeed()
	require.Equal(t, future.Resolved, result.State())
	assert.Equal(t, stubAnswer{sum: 0xC6}, result.Answer(0))
}

func TestSucceed_NoNativeAnswer_FailsUnanswerable(t *testing.T) {
	sched := syncScheduler{}
	q := &stubQuestion{name: "Q1"}
	result := future.New(sched, 1)
	ctx := answerctx.New(q, q.Kind(), result, &stubDispatcher{sched: sched}, &recordingDeps{}, nil)

	ctx.Succeed()
	require.Equal(t, future.Failed, result.State())
	assert.ErrorIs(t, result.Err(), answerctx.ErrUnanswerable)
}

func TestSucceedAnswer(t *testing.T) {
	sched := syncScheduler{}
	q := &stubQuestion{name: "Q1"}
	result := future.New(sched, 1)
	ctx := answerctx.New(q, q.Kind(), result, &stubDispatcher{sched: sched}, &recordingDeps{}, nil)

	ctx.SucceedAnswer(stubAnswer{sum: 7})
	require.Equal(t, future.Resolved, result.State())
	assert.Equal(t, stubAnswer{sum: 7}, result.Answer(0))
}

func TestFail(t *testing.T) {
	sched := syncScheduler{}
	q := &stubQuestion{name: "Q1"}
	result := future.New(sched, 1)
	ctx := answerctx.New(q, q.Kind(), result, &stubDispatcher{sched: sched}, &recordingDeps{}, nil)

	wantErr := errors.New("boom")
	ctx.Fail(wantErr)
	require.Equal(t, future.Failed, result.State())
	assert.Equal(t, wantErr, result.Err())
}

func TestDoubleConsume_Panics(t *testing.T) {
	sched := syncScheduler{}
	q := &stubQuestion{name: "Q1"}
	result := future.New(sched, 1)
	ctx := answerctx.New(q, q.Kind(), result, &stubDispatcher{sched: sched}, &recordingDeps{}, nil)

	ctx.SucceedAnswer(stubAnswer{})
	assert.Panics(t, func() { ctx.Fail(errors.New("too late")) })
}

func TestNeed_RecordsDependencyEdge(t *testing.T) {
	sched := syncScheduler{}
	q := &stubQuestion{name: "Parent"}
	result := future.New(sched, 1)
	deps := &recordingDeps{}
	part := &stubQuestion{name: "Part"}
	disp := &stubDispatcher{sched: sched, answers: map[string]qa.Answer{"Part": stubAnswer{sum: 1}}}
	ctx := answerctx.New(q, q.Kind(), result, disp, deps, nil)

	joined := ctx.NeedOne(part, part.Kind())
	require.Equal(t, future.Resolved, joined.State())
	assert.Equal(t, stubAnswer{sum: 1}, joined.Answer(0))
	require.Len(t, deps.edges, 1)
	assert.Equal(t, [2]string{"Parent", "Part"}, deps.edges[0])
}

func TestNeed_ThreeQuestions_OrderedResults(t *testing.T) {
	sched := syncScheduler{}
	q := &stubQuestion{name: "Parent"}
	result := future.New(sched, 1)
	deps := &recordingDeps{}
	a, b, c := &stubQuestion{name: "A"}, &stubQuestion{name: "B"}, &stubQuestion{name: "C"}
	disp := &stubDispatcher{sched: sched, answers: map[string]qa.Answer{
		"A": stubAnswer{sum: 1}, "B": stubAnswer{sum: 2}, "C": stubAnswer{sum: 3},
	}}
	ctx := answerctx.New(q, q.Kind(), result, disp, deps, nil)

	joined := ctx.Need([]qa.Question{a, b, c}, []*qa.VTable{a.Kind(), b.Kind(), c.Kind()})
	require.Equal(t, future.Resolved, joined.State())
	assert.Equal(t, stubAnswer{sum: 1}, joined.Answer(0))
	assert.Equal(t, stubAnswer{sum: 2}, joined.Answer(1))
	assert.Equal(t, stubAnswer{sum: 3}, joined.Answer(2))
}

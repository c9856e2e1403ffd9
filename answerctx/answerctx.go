// Package answerctx implements AnswerContext, the one-shot handle
// passed to a rule invocation.
package answerctx

import (
	"fmt"
	"sync/atomic"

	"github.com/joeycumines/go-buildcore/future"
	"github.com/joeycumines/go-buildcore/internal/corelog"
	"github.com/joeycumines/go-buildcore/qa"
)

// Dispatcher is the subset of dispatch.Main an AnswerContext needs: the
// ability to ask a sub-question. Kept as a narrow interface (rather
// than importing dispatch directly) to avoid a dependency cycle, since
// dispatch.Main itself constructs AnswerContext values.
type Dispatcher interface {
	Ask(q qa.Question, v *qa.VTable) *future.Future
}

// DependencyRecorder is the subset of db.Store an AnswerContext needs:
// persisting a dependency edge before asking for a sub-question's
// answer.
type DependencyRecorder interface {
	RecordDependency(fromQ qa.Question, fromV *qa.VTable, toQ qa.Question, toV *qa.VTable) error
}

// Context is the handle given to a rule: it owns the question being
// answered, the future that will receive the result, and references to
// the dispatcher and database needed to declare dependencies.
//
// Exactly one of Succeed, SucceedAnswer, or Fail must eventually be
// called, either before the rule returns or later from a callback on a
// future returned by Need. Calling more than one, or calling the same one
// twice, is a precondition violation and panics — the reference
// implementation's own documented policy (spec.md §7) for this class
// of bug.
type Context struct {
	question qa.Question
	vtable   *qa.VTable
	result   *future.Future
	disp     Dispatcher
	deps     DependencyRecorder
	log      *corelog.Logger

	consumed atomic.Bool
}

// New constructs a Context. Called by dispatch.Main on a cache miss;
// not normally constructed directly by rule authors.
func New(question qa.Question, vtable *qa.VTable, result *future.Future, disp Dispatcher, deps DependencyRecorder, log *corelog.Logger) *Context {
	return &Context{
		question: question,
		vtable:   vtable,
		result:   result,
		disp:     disp,
		deps:     deps,
		log:      corelog.Safe(log),
	}
}

// Question returns the question this context is answering, and its
// vtable.
func (c *Context) Question() (qa.Question, *qa.VTable) { return c.question, c.vtable }

func (c *Context) consume(op string) {
	if !c.consumed.CompareAndSwap(false, true) {
		panic(fmt.Sprintf("answerctx: %s called on an already-consumed Context", op))
	}
}

// Need asks for the answers to questions (each paired with its vtable
// in vtables), recording a dependency edge from this context's own
// question to each of them first. It returns a future that resolves
// with all N answers, in the same order as the inputs, once every
// sub-question has been answered, or fails with the first sub-question
// failure encountered.
func (c *Context) Need(questions []qa.Question, vtables []*qa.VTable) *future.Future {
	if len(questions) != len(vtables) {
		panic("answerctx: Need requires len(questions) == len(vtables)")
	}
	children := make([]*future.Future, len(questions))
	for i, q := range questions {
		if err := c.deps.RecordDependency(c.question, c.vtable, q, vtables[i]); err != nil {
			c.log.Err().Err(err).Str("question", vtables[i].Name).Log("answerctx: failed to record dependency edge")
			f := future.New(schedulerOf(c.result), 1)
			f.Fail(err)
			children[i] = f
			continue
		}
		children[i] = c.disp.Ask(q, vtables[i])
	}
	return future.Join(schedulerOf(c.result), children)
}

// NeedOne is a convenience for Need with a single question.
func (c *Context) NeedOne(q qa.Question, v *qa.VTable) *future.Future {
	return c.Need([]qa.Question{q}, []*qa.VTable{v})
}

// Succeed asks the context's question to answer itself natively (via
// its vtable's QueryAnswer) and resolves the context's future with the
// result, or fails with ErrUnanswerable if the question reports it has
// no native answer. This lets file-like questions be answered by
// re-reading the file after a rule has produced it, without the rule
// needing to know how the answer is actually computed.
func (c *Context) Succeed() {
	c.consume("Succeed")
	result := c.vtable.QueryAnswer(c.question)
	switch {
	case result.Err != nil:
		c.result.Fail(result.Err)
	case result.Ok:
		c.result.Resolve(result.Answer)
	default:
		c.result.Fail(fmt.Errorf("%w: %s", ErrUnanswerable, c.vtable.Name))
	}
}

// SucceedAnswer resolves the context's future directly with answer,
// for rules that have already computed the answer themselves.
func (c *Context) SucceedAnswer(answer qa.Answer) {
	c.consume("SucceedAnswer")
	c.result.Resolve(answer)
}

// Fail fails the context's future with err.
func (c *Context) Fail(err error) {
	c.consume("Fail")
	c.result.Fail(err)
}

// schedulerOf recovers the scheduler a future was built against, so
// dependent futures (e.g. those created by Need) share it. Futures
// don't expose their scheduler publicly; dispatch always builds
// contexts and their result futures against the same scheduler, so we
// thread it through via the same accessor the future package already
// exposes for this purpose.
func schedulerOf(f *future.Future) future.Scheduler { return f.Scheduler() }

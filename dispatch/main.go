// Package dispatch implements Main, the build engine's rule dispatcher:
// Ask performs the three-step cache/database/rule algorithm from
// spec.md §4.4, and Allocate/Deallocate own its lifetime.
package dispatch

import (
	"fmt"
	"sync"

	"github.com/joeycumines/go-buildcore/answerctx"
	"github.com/joeycumines/go-buildcore/db"
	"github.com/joeycumines/go-buildcore/future"
	"github.com/joeycumines/go-buildcore/internal/corelog"
	"github.com/joeycumines/go-buildcore/qa"
)

// Rule produces an answer for the question ctx was constructed with. It
// must eventually call exactly one of ctx.Succeed, ctx.SucceedAnswer, or
// ctx.Fail, either before returning or later from a callback on a future
// returned by ctx.Need; it may call ctx.Need any number of times first
// to ask about sub-questions.
type Rule func(ctx *answerctx.Context)

// Main is the dispatcher: it holds the in-memory answer cache, the type
// registry, the persistent store, and the rule table, and implements
// Ask's cache-then-database-then-rule resolution order.
//
// Per spec.md §9 DESIGN NOTES, the cycle this creates in C (Context ->
// Future -> Main -> cache -> Future) is resolved here simply by letting
// the garbage collector reclaim cache entries once nothing references
// them anymore; Main never needs a weak back-reference of its own.
type Main struct {
	scheduler future.Scheduler
	registry  *qa.Registry
	store     db.Store
	log       *corelog.Logger
	guard     *cycleGuard

	mu    sync.Mutex
	cache map[qa.Fingerprint]*future.Future
	rules map[qa.TypeUUID]Rule
}

// Allocate constructs a Main bound to scheduler (normally a
// *runloop.RunLoop), registry, and store.
func Allocate(scheduler future.Scheduler, registry *qa.Registry, store db.Store, opts ...Option) *Main {
	cfg := resolveOptions(opts)
	m := &Main{
		scheduler: scheduler,
		registry:  registry,
		store:     store,
		log:       corelog.Safe(cfg.logger),
		cache:     make(map[qa.Fingerprint]*future.Future),
		rules:     make(map[qa.TypeUUID]Rule),
	}
	if cfg.cycleGuard {
		m.guard = newCycleGuard()
	}
	return m
}

// RegisterRule registers v with the dispatcher's type registry and
// binds rule as the producer invoked on a cache-and-database miss for
// questions of v's type. Registering a second rule for the same vtable
// UUID replaces the first.
func (m *Main) RegisterRule(v *qa.VTable, rule Rule) {
	if rule == nil {
		panic("dispatch: RegisterRule called with a nil rule")
	}
	m.registry.Register(v)
	m.mu.Lock()
	m.rules[v.UUID] = rule
	m.mu.Unlock()
}

// Ask returns the future for q's answer under v, running the three-step
// algorithm from spec.md §4.4:
//
//  1. If q is already cached (in-flight or previously resolved this
//     run), return the cached future directly.
//  2. Otherwise, consult the persistent store; a hit is wrapped as an
//     already-Resolved future and cached.
//  3. Otherwise, allocate a Pending future, install it in the cache
//     before invoking any rule (so a rule that recursively asks about
//     the same question observes the in-flight future rather than
//     recursing forever), register the internal callback that persists
//     the answer once resolved, and only then invoke the rule.
func (m *Main) Ask(q qa.Question, v *qa.VTable) *future.Future {
	if v == nil {
		panic("dispatch: Ask called with a nil vtable")
	}
	fp := qa.NewFingerprint(v, q)

	if m.guard != nil {
		if err := m.guard.enter(fp); err != nil {
			f := future.New(m.scheduler, 1)
			f.Fail(err)
			return f
		}
		defer m.guard.leave(fp)
	}

	if f, ok := m.cached(fp); ok {
		return f
	}

	if answer, ok, err := m.store.LookUpAnswer(q, v); err != nil {
		m.log.Err().Err(err).Str("question", v.Name).Log("dispatch: database lookup failed")
	} else if ok {
		if f, _ := m.installIfAbsent(fp, func() *future.Future {
			return future.Resolved(m.scheduler, answer)
		}); f != nil {
			return f
		}
	}

	result := future.New(m.scheduler, 1)
	if existing, already := m.installIfAbsent(fp, func() *future.Future { return result }); already {
		return existing
	}

	result.AddCallback(m.persistCallback(q, v), nil)

	rule, hasRule := m.lookupRule(v.UUID)
	if !hasRule {
		result.Fail(fmt.Errorf("%w: %s", ErrNoRule, v.Name))
		return result
	}

	ctx := answerctx.New(q, v, result, m, m.store, m.log)
	rule(ctx)
	return result
}

// Deallocate drops the dispatcher's in-memory cache and rule table.
// Futures already handed out remain valid; only new Ask calls are
// affected.
func (m *Main) Deallocate() {
	m.mu.Lock()
	m.cache = nil
	m.rules = nil
	m.mu.Unlock()
}

func (m *Main) cached(fp qa.Fingerprint) (*future.Future, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.cache[fp]
	return f, ok
}

// installIfAbsent atomically checks the cache for fp and, if still
// absent, installs build()'s result. Returns the future that ended up
// cached (either the newly built one, or a pre-existing one installed
// by a racing caller) and whether it was already present.
func (m *Main) installIfAbsent(fp qa.Fingerprint, build func() *future.Future) (*future.Future, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.cache[fp]; ok {
		return existing, true
	}
	if m.cache == nil {
		// Deallocated concurrently with an in-flight Ask; nothing left
		// to install into.
		return nil, false
	}
	f := build()
	m.cache[fp] = f
	return f, false
}

func (m *Main) lookupRule(id qa.TypeUUID) (Rule, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[id]
	return r, ok
}

func (m *Main) persistCallback(q qa.Question, v *qa.VTable) future.Callback {
	return func(f *future.Future, _ any) {
		if f.State() != future.Resolved {
			return
		}
		if err := m.store.RecordAnswer(q, v, f.Answer(0)); err != nil {
			m.log.Err().Err(err).Str("question", v.Name).Log("dispatch: failed to persist answer")
		}
	}
}

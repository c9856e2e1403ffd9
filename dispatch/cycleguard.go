package dispatch

import (
	"sync"

	"github.com/joeycumines/go-buildcore/qa"
)

// cycleGuard is the opt-in cycle-detection hook described in
// SPEC_FULL.md's resolution of the core's first Open Question: off by
// default, since the reference implementation doesn't detect cycles
// either, but available for callers who'd rather fail fast than hang a
// RunLoop forever on a question that (directly or transitively) asks
// about itself.
//
// Detection only covers the synchronous span of a single Ask call:
// entered when Ask starts, left when Ask returns. A rule that calls
// Need synchronously (the common case) recurses into Ask while still
// inside that span, so a direct or transitive self-ask is caught; a
// cycle that only closes after a rule's asynchronous callback fires is
// not caught, since by then the outer Ask has already returned and left
// the guard.
type cycleGuard struct {
	mu       sync.Mutex
	inFlight map[qa.Fingerprint]struct{}
}

func newCycleGuard() *cycleGuard {
	return &cycleGuard{inFlight: make(map[qa.Fingerprint]struct{})}
}

func (g *cycleGuard) enter(fp qa.Fingerprint) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.inFlight[fp]; ok {
		return ErrCycle
	}
	g.inFlight[fp] = struct{}{}
	return nil
}

func (g *cycleGuard) leave(fp qa.Fingerprint) {
	g.mu.Lock()
	delete(g.inFlight, fp)
	g.mu.Unlock()
}

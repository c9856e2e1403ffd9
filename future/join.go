package future

import "fmt"

// Join returns a Future that resolves with the ordered tuple of
// children's answers once every child has resolved, or fails with the
// first child's error the moment any child fails (unsubscribing from
// the rest — in practice, simply ignoring their later callbacks, since
// Futures don't support mid-flight callback removal).
//
// A join over zero futures is a precondition violation and panics, per
// the reference's documented choice (spec.md §8 Boundary behaviors).
func Join(scheduler Scheduler, children []*Future) *Future {
	if len(children) == 0 {
		panic("future: Join requires at least one child future")
	}
	out := New(scheduler, len(children))
	for i, child := range children {
		i := i
		child.AddCallback(func(f *Future, _ any) {
			switch f.State() {
			case Resolved:
				out.ResolveSlot(i, f.Answer(0))
			case Failed:
				out.FailSlot(i, f.Err())
			default:
				panic(fmt.Sprintf("future: join callback fired on non-terminal child state %s", f.State()))
			}
		}, nil)
	}
	return out
}

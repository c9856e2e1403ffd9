package future

import "sync/atomic"

// State is the terminal/non-terminal discriminant of an AnswerFuture.
type State uint32

const (
	// Pending means no result yet.
	Pending State = iota
	// Resolved is terminal: the future holds one or more answers.
	Resolved
	// Failed is terminal: the future holds one error.
	Failed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Resolved:
		return "Resolved"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// atomicState is a small lock-free state cell, grounded on the
// teacher's FastState (eventloop/state.go): a single atomic.Uint32
// CAS'd between a fixed set of values, with Store reserved for
// irreversible transitions. Unlike FastState's five-state loop
// lifecycle, an AnswerFuture has exactly one irreversible transition
// out of Pending, so CompareAndSwap from Pending is the only
// transition this type needs.
type atomicState struct {
	v atomic.Uint32
}

func (s *atomicState) load() State { return State(s.v.Load()) }

// tryTerminate attempts to move from Pending to to. Returns true if
// this call performed the transition.
func (s *atomicState) tryTerminate(to State) bool {
	return s.v.CompareAndSwap(uint32(Pending), uint32(to))
}

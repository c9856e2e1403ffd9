package dispatch

import "errors"

var (
	// ErrNoRule is returned (as a Failed future) when Ask finds no
	// cached or stored answer for a question and no rule is registered
	// for its vtable. Ask does not consult the vtable's QueryAnswer.
	ErrNoRule = errors.New("dispatch: no rule registered for this question type")

	// ErrCycle is returned (as a Failed future) by Ask when the
	// optional CycleGuard is enabled and detects a question re-entering
	// its own synchronous ask chain.
	ErrCycle = errors.New("dispatch: cyclic dependency detected")
)

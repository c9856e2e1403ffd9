package dispatch

import "github.com/joeycumines/go-buildcore/internal/corelog"

// config holds Main construction options, following the teacher's
// eventloop/options.go loopOptions/LoopOption pattern.
type config struct {
	logger     *corelog.Logger
	cycleGuard bool
}

// Option configures a Main at construction.
type Option interface{ apply(*config) }

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

// WithLogger attaches a structured logger for dispatch errors: a failed
// database lookup and a failed answer write. Successful asks, cache
// hits, database hits and rule invocations are not logged.
func WithLogger(log *corelog.Logger) Option {
	return optionFunc(func(c *config) { c.logger = log })
}

// WithCycleGuard enables the opt-in synchronous cycle detector. Off by
// default, matching the reference implementation.
func WithCycleGuard() Option {
	return optionFunc(func(c *config) { c.cycleGuard = true })
}

func resolveOptions(opts []Option) *config {
	c := &config{}
	for _, o := range opts {
		if o != nil {
			o.apply(c)
		}
	}
	return c
}

package runloop

import "github.com/joeycumines/go-buildcore/internal/corelog"

// config holds RunLoop construction options, grounded on the teacher's
// eventloop/options.go loopOptions/LoopOption pattern.
type config struct {
	logger      *corelog.Logger
	forcePlain  bool
}

// Option configures a RunLoop at construction.
type Option interface{ apply(*config) }

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

// WithLogger attaches a structured logger to the RunLoop. It receives
// the deadlock warning from Run, backend close errors, and (epoll)
// wait4 failures; task scheduling, task runs, cancellations and
// successful reaps are not logged. A nil logger (the default) discards
// all loop log output.
func WithLogger(log *corelog.Logger) Option {
	return optionFunc(func(c *config) { c.logger = log })
}

// WithPlainBackend forces the plain (non-blocking, no process-watch)
// backend regardless of platform. Intended for tests and for
// environments where kqueue/epoll integration is undesirable.
func WithPlainBackend() Option {
	return optionFunc(func(c *config) { c.forcePlain = true })
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

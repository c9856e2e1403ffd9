// Package corelog is the ambient structured-logging wrapper shared by
// dispatch, answerctx, and runloop. It pairs github.com/joeycumines/logiface
// with the stumpy JSON backend, the same "model logger" combination the
// teacher documents in its logiface-stumpy package.
//
// A nil *Logger is legal everywhere it's accepted and behaves as a
// discard logger, so callers never need a nil check before logging.
package corelog

import (
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the concrete event type threaded through the core.
type Logger = logiface.Logger[*stumpy.Event]

// New returns a Logger writing newline-delimited JSON to w at the
// given minimum level. If w is nil, os.Stderr is used.
func New(w io.Writer, level logiface.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		logiface.WithLevel[*stumpy.Event](level),
	)
}

// Discard returns a Logger with logging disabled, for tests and
// callers that don't want log output.
func Discard() *Logger {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(io.Discard)),
		logiface.WithLevel[*stumpy.Event](logiface.LevelDisabled),
	)
}

// orDiscard returns l if non-nil, otherwise a discard logger, so
// call sites can write l.Info()... without a nil check.
func orDiscard(l *Logger) *Logger {
	if l != nil {
		return l
	}
	return Discard()
}

// Safe normalizes a possibly-nil Logger to one that is always safe to
// call methods on.
func Safe(l *Logger) *Logger { return orDiscard(l) }

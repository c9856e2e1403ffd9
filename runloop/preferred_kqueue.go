//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package runloop

import "github.com/joeycumines/go-buildcore/internal/corelog"

func newPreferredBackend(log *corelog.Logger) (backend, error) {
	return newKqueueBackend(log)
}

const preferredBackendName = "kqueue"

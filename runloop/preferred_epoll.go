//go:build linux

package runloop

import "github.com/joeycumines/go-buildcore/internal/corelog"

func newPreferredBackend(log *corelog.Logger) (backend, error) {
	return newEpollBackend(log)
}

const preferredBackendName = "epoll"

//go:build !(darwin || freebsd || netbsd || openbsd || dragonfly || linux)

package runloop

import "github.com/joeycumines/go-buildcore/internal/corelog"

func newPreferredBackend(*corelog.Logger) (backend, error) {
	return newPlainBackend(), nil
}

const preferredBackendName = "plain"

package runloop

import "time"

// plainBackend never blocks: poll returns immediately with no exits,
// every time. It has no way to be woken because it never sleeps, and
// it cannot watch processes. This is the fallback backend described in
// spec.md §4.5: a deliberately minimal implementation whose only job
// is to make RunLoop's deadlock detection ("draining the queue with
// stop not having been called is an error") observable.
type plainBackend struct{}

func newPlainBackend() backend { return &plainBackend{} }

func (*plainBackend) wake() {}

func (*plainBackend) poll(time.Duration) []processExit { return nil }

func (*plainBackend) watchProcess(int) error { return ErrUnsupported }

func (*plainBackend) unwatchProcess(int) {}

func (*plainBackend) supportsProcessWatch() bool { return false }

func (*plainBackend) close() error { return nil }

//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package runloop

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/joeycumines/go-buildcore/internal/corelog"
	"github.com/joeycumines/go-buildcore/process"
)

// kqueueBackend wakes a blocked kevent(2) call via an EVFILT_USER,
// auto-reset (NOTE_TRIGGER/NOTE_FFCOPY-cleared) event, exactly as
// spec.md §4.5 describes, and watches children via EVFILT_PROC with
// NOTE_EXIT. Grounded on the teacher's poller_darwin.go (the
// EV_ADD/EV_DELETE/unix.Kevent idiom), generalized from I/O-readiness
// events to a wake identifier plus process-exit identifiers.
type kqueueBackend struct {
	kq int

	mu      sync.Mutex
	watched map[int]bool
	closed  bool

	log *corelog.Logger
}

const wakeIdent = 1

func newKqueueBackend(log *corelog.Logger) (backend, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	if err := unix.SetNonblock(kq, true); err != nil {
		unix.Close(kq)
		return nil, err
	}
	kb := &kqueueBackend{kq: kq, watched: make(map[int]bool), log: corelog.Safe(log)}
	reg := []unix.Kevent_t{{
		Ident:  wakeIdent,
		Filter: unix.EVFILT_USER,
		Flags:  unix.EV_ADD | unix.EV_CLEAR,
	}}
	if _, err := unix.Kevent(kq, reg, nil, nil); err != nil {
		unix.Close(kq)
		return nil, err
	}
	return kb, nil
}

func (k *kqueueBackend) wake() {
	trigger := []unix.Kevent_t{{
		Ident:  wakeIdent,
		Filter: unix.EVFILT_USER,
		Fflags: unix.NOTE_TRIGGER,
	}}
	_, _ = unix.Kevent(k.kq, trigger, nil, nil)
}

func (k *kqueueBackend) poll(timeout time.Duration) []processExit {
	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}

	var buf [64]unix.Kevent_t
	n, err := unix.Kevent(k.kq, nil, buf[:], ts)
	if err != nil || n <= 0 {
		return nil
	}

	var exits []processExit
	for i := 0; i < n; i++ {
		ev := buf[i]
		if ev.Filter == unix.EVFILT_PROC {
			pid := int(ev.Ident)
			k.mu.Lock()
			delete(k.watched, pid)
			k.mu.Unlock()
			ws := unix.WaitStatus(ev.Data)
			exits = append(exits, processExit{pid: pid, status: process.FromWaitStatus(ws)})
		}
	}
	return exits
}

func (k *kqueueBackend) watchProcess(pid int) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return ErrLoopTerminated
	}
	reg := []unix.Kevent_t{{
		Ident:  uint64(pid),
		Filter: unix.EVFILT_PROC,
		Flags:  unix.EV_ADD | unix.EV_ONESHOT,
		Fflags: unix.NOTE_EXIT,
	}}
	if _, err := unix.Kevent(k.kq, reg, nil, nil); err != nil {
		return err
	}
	k.watched[pid] = true
	return nil
}

func (k *kqueueBackend) unwatchProcess(pid int) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.watched[pid] {
		return
	}
	delete(k.watched, pid)
	reg := []unix.Kevent_t{{
		Ident:  uint64(pid),
		Filter: unix.EVFILT_PROC,
		Flags:  unix.EV_DELETE,
	}}
	_, _ = unix.Kevent(k.kq, reg, nil, nil)
}

func (k *kqueueBackend) supportsProcessWatch() bool { return true }

func (k *kqueueBackend) close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return nil
	}
	k.closed = true
	return unix.Close(k.kq)
}

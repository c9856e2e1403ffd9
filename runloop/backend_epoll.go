//go:build linux

package runloop

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/joeycumines/go-buildcore/internal/corelog"
	"github.com/joeycumines/go-buildcore/process"
)

// epollBackend wakes a blocked epoll_wait(2) via an eventfd, grounded
// directly on the teacher's wakeup_linux.go createWakeFd/drainWakeUpPipe
// pattern. Unlike kqueue, epoll has no filter analogous to EVFILT_PROC,
// so process watches are implemented with one helper goroutine per
// watched pid, blocked in unix.Wait4, which posts its result back onto
// exitCh and pokes the wake eventfd — the blocking syscall lives off
// the loop's single cooperative thread, but the result is only ever
// consumed from poll, preserving "exactly one task runs at a time."
type epollBackend struct {
	epfd   int
	wakeFd int

	mu      sync.Mutex
	exitCh  chan processExit
	watched map[int]chan struct{} // pid -> cancel
	closed  bool

	log *corelog.Logger
}

func newEpollBackend(log *corelog.Logger) (backend, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	wakeFd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		unix.Close(epfd)
		return nil, err
	}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakeFd, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(wakeFd),
	}); err != nil {
		unix.Close(wakeFd)
		unix.Close(epfd)
		return nil, err
	}
	return &epollBackend{
		epfd:    epfd,
		wakeFd:  wakeFd,
		exitCh:  make(chan processExit, 16),
		watched: make(map[int]chan struct{}),
		log:     corelog.Safe(log),
	}, nil
}

func (e *epollBackend) wake() {
	var buf [8]byte
	buf[7] = 1
	_, _ = unix.Write(e.wakeFd, buf[:])
}

func (e *epollBackend) drainWake() {
	var buf [8]byte
	for {
		_, err := unix.Read(e.wakeFd, buf[:])
		if err != nil {
			return
		}
	}
}

func (e *epollBackend) poll(timeout time.Duration) []processExit {
	// Drain any exits already posted before blocking at all.
	exits := e.drainExits()
	if len(exits) > 0 {
		return exits
	}

	ms := -1
	if timeout >= 0 {
		ms = int(timeout.Milliseconds())
	}
	var events [8]unix.EpollEvent
	n, err := unix.EpollWait(e.epfd, events[:], ms)
	if err != nil || n <= 0 {
		return nil
	}
	e.drainWake()
	return e.drainExits()
}

func (e *epollBackend) drainExits() []processExit {
	var out []processExit
	for {
		select {
		case ex := <-e.exitCh:
			out = append(out, ex)
		default:
			return out
		}
	}
}

func (e *epollBackend) watchProcess(pid int) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrLoopTerminated
	}
	cancel := make(chan struct{})
	e.watched[pid] = cancel
	e.mu.Unlock()

	go e.reap(pid, cancel)
	return nil
}

func (e *epollBackend) reap(pid int, cancel chan struct{}) {
	var ws unix.WaitStatus
	_, err := unix.Wait4(pid, &ws, 0, nil)

	e.mu.Lock()
	_, stillWatched := e.watched[pid]
	delete(e.watched, pid)
	e.mu.Unlock()
	if !stillWatched {
		return
	}
	select {
	case <-cancel:
		return
	default:
	}
	if err != nil {
		e.log.Err().Err(err).Int("pid", pid).Log("runloop: wait4 failed")
		return
	}
	e.exitCh <- processExit{pid: pid, status: process.FromWaitStatus(ws)}
	e.wake()
}

func (e *epollBackend) unwatchProcess(pid int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cancel, ok := e.watched[pid]; ok {
		close(cancel)
		delete(e.watched, pid)
	}
}

func (e *epollBackend) supportsProcessWatch() bool { return true }

func (e *epollBackend) close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	for pid, cancel := range e.watched {
		close(cancel)
		delete(e.watched, pid)
	}
	e.mu.Unlock()
	_ = unix.Close(e.wakeFd)
	return unix.Close(e.epfd)
}

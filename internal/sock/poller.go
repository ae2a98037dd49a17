//go:build linux

package sock

import (
	"golang.org/x/sys/unix"
)

// Poller is the reference embedder's readiness loop, grounded in the same
// golang.org/x/sys/unix package HydraDNS's servers use for SO_REUSEPORT —
// here driving epoll instead of a blocking accept/read. The resolver
// channel itself never touches a Poller: it is wired up by cmd/aresdig,
// which registers every socket the channel opens and, on each Wait, tells
// the channel which fds are readable/writable/erroring so it can call its
// Readable/Writable event handlers per spec 4.4.
type Poller struct {
	epfd int
}

// Event reports readiness for one registered fd.
type Event struct {
	FD       int
	Readable bool
	Writable bool
	Error    bool
}

// NewPoller creates an epoll instance.
func NewPoller() (*Poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &Poller{epfd: fd}, nil
}

// Add registers fd for read and/or write readiness notifications.
func (p *Poller) Add(fd int, wantWrite bool) error {
	events := uint32(unix.EPOLLIN)
	if wantWrite {
		events |= unix.EPOLLOUT
	}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: events, Fd: int32(fd)})
}

// Modify changes the interest set for an already-registered fd — used when
// a TCP connect completes and the channel no longer needs write-readiness.
func (p *Poller) Modify(fd int, wantWrite bool) error {
	events := uint32(unix.EPOLLIN)
	if wantWrite {
		events |= unix.EPOLLOUT
	}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{Events: events, Fd: int32(fd)})
}

// Remove deregisters fd, e.g. when the channel closes a connection.
func (p *Poller) Remove(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Wait blocks up to timeoutMS (or indefinitely if negative) and returns the
// set of fds with pending events. The caller (cmd/aresdig) uses this
// timeout to encode the channel's next-deadline, so the epoll wait itself
// doubles as the timer mechanism spec 4.4 calls "process_timeouts".
func (p *Poller) Wait(timeoutMS int, buf []unix.EpollEvent) ([]Event, error) {
	n, err := unix.EpollWait(p.epfd, buf, timeoutMS)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	out := make([]Event, 0, n)
	for i := range n {
		ev := buf[i]
		out = append(out, Event{
			FD:       int(ev.Fd),
			Readable: ev.Events&unix.EPOLLIN != 0,
			Writable: ev.Events&unix.EPOLLOUT != 0,
			Error:    ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0,
		})
	}
	return out, nil
}

// Close releases the epoll fd.
func (p *Poller) Close() error { return unix.Close(p.epfd) }

//go:build linux

package sock

import (
	"errors"
	"net/netip"

	"golang.org/x/sys/unix"
)

// unixDialer is the default [Dialer], grounded in the same
// golang.org/x/sys/unix primitives HydraDNS's UDP/TCP servers use for
// SO_REUSEPORT and socket-buffer tuning — the difference is that every
// socket here is non-blocking from creation (SOCK_NONBLOCK) because the
// channel polls readiness itself instead of parking a goroutine in a
// blocking read.
type unixDialer struct{}

// NewDialer returns the production [Dialer]: real non-blocking sockets via
// golang.org/x/sys/unix.
func NewDialer() Dialer { return unixDialer{} }

func (unixDialer) DialUDP(addr netip.AddrPort) (PacketConn, error) {
	domain := unix.AF_INET
	if addr.Addr().Is6() {
		domain = unix.AF_INET6
	}
	fd, err := unix.Socket(domain, unix.SOCK_DGRAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_UDP)
	if err != nil {
		return nil, &DialError{Err: err}
	}
	sa := toSockaddr(addr)
	if err := unix.Connect(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, &DialError{Err: err}
	}
	local, _ := unix.Getsockname(fd)
	return &udpConn{fd: fd, remote: addr, local: fromSockaddr(local)}, nil
}

func (unixDialer) DialTCP(addr netip.AddrPort) (StreamConn, error) {
	domain := unix.AF_INET
	if addr.Addr().Is6() {
		domain = unix.AF_INET6
	}
	fd, err := unix.Socket(domain, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, &DialError{Err: err}
	}
	sa := toSockaddr(addr)
	err = unix.Connect(fd, sa)
	connected := true
	if err != nil {
		if errors.Is(err, unix.EINPROGRESS) {
			connected = false
		} else {
			_ = unix.Close(fd)
			return nil, &DialError{Err: err}
		}
	}
	return &tcpConn{fd: fd, remote: addr, connected: connected}, nil
}

type udpConn struct {
	fd     int
	remote netip.AddrPort
	local  netip.AddrPort
}

func (c *udpConn) Send(b []byte) (int, error) {
	n, err := unix.Write(c.fd, b)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) {
			return 0, ErrWouldBlock
		}
		return 0, err
	}
	return n, nil
}

func (c *udpConn) Recv(b []byte) (int, netip.AddrPort, error) {
	n, err := unix.Read(c.fd, b)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) {
			return 0, netip.AddrPort{}, ErrWouldBlock
		}
		return 0, netip.AddrPort{}, err
	}
	// A connected UDP socket only ever delivers datagrams from its peer;
	// the kernel enforces the source check. We still report RemoteAddr
	// so the channel's redundant application-level check (spec 4.5) has
	// something to compare against.
	return n, c.remote, nil
}

func (c *udpConn) LocalAddr() netip.AddrPort  { return c.local }
func (c *udpConn) RemoteAddr() netip.AddrPort { return c.remote }
func (c *udpConn) FD() int                    { return c.fd }
func (c *udpConn) Close() error               { return unix.Close(c.fd) }

type tcpConn struct {
	fd        int
	remote    netip.AddrPort
	connected bool
}

func (c *tcpConn) Connected() (bool, error) {
	if c.connected {
		return true, nil
	}
	errno, err := unix.GetsockoptInt(c.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return false, err
	}
	if errno != 0 {
		return false, unix.Errno(errno)
	}
	c.connected = true
	return true, nil
}

func (c *tcpConn) Send(b []byte) (int, error) {
	n, err := unix.Write(c.fd, b)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) {
			return 0, ErrWouldBlock
		}
		return 0, err
	}
	return n, nil
}

func (c *tcpConn) Recv(b []byte) (int, error) {
	n, err := unix.Read(c.fd, b)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) {
			return 0, ErrWouldBlock
		}
		return 0, err
	}
	return n, nil
}

func (c *tcpConn) RemoteAddr() netip.AddrPort { return c.remote }
func (c *tcpConn) FD() int                    { return c.fd }
func (c *tcpConn) Close() error               { return unix.Close(c.fd) }

// IsRetryableDial reports whether a Dial failure is the "try another
// server" kind the channel's dispatcher retries (connection refused,
// unreachable, address family unsupported) as opposed to a fatal one
// (out of file descriptors, permission denied) that should end the query
// outright. Errors from non-unix dialers (the fake, for tests) are
// retryable by default since fakes only ever simulate outage conditions.
func IsRetryableDial(err error) bool {
	switch {
	case errors.Is(err, unix.ECONNREFUSED),
		errors.Is(err, unix.EHOSTUNREACH),
		errors.Is(err, unix.ENETUNREACH),
		errors.Is(err, unix.EAFNOSUPPORT),
		errors.Is(err, unix.ETIMEDOUT):
		return true
	case errors.Is(err, unix.EMFILE), errors.Is(err, unix.ENFILE), errors.Is(err, unix.EACCES):
		return false
	default:
		return true
	}
}

func toSockaddr(addr netip.AddrPort) unix.Sockaddr {
	if addr.Addr().Is4() {
		return &unix.SockaddrInet4{Port: int(addr.Port()), Addr: addr.Addr().As4()}
	}
	return &unix.SockaddrInet6{Port: int(addr.Port()), Addr: addr.Addr().As16()}
}

func fromSockaddr(sa unix.Sockaddr) netip.AddrPort {
	switch s := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(s.Addr), uint16(s.Port))
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(s.Addr), uint16(s.Port))
	default:
		return netip.AddrPort{}
	}
}

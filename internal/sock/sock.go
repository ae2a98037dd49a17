// Package sock is the socket syscall boundary the resolver channel dials
// through. The channel never calls net.Dial or touches a file descriptor
// directly: it asks a [Dialer] for a [PacketConn] or [StreamConn], issues
// non-blocking Send/Recv calls, and is told by its embedder when a socket
// is ready via an external event loop (see [Poller] for the reference
// one). This mirrors how HydraDNS's server package keeps raw
// golang.org/x/sys/unix socket-option tweaks behind a net.ListenConfig.Control
// hook rather than hand-rolling the syscalls themselves — here the same
// boundary exists so tests can swap in an in-memory fake (see fake.go)
// instead of binding real sockets.
package sock

import (
	"errors"
	"net/netip"
	"time"
)

// ErrWouldBlock is returned by Send/Recv when the operation cannot complete
// without waiting. The channel treats this as "try again once the embedder
// reports readiness", never as a failure worth reporting to the caller.
var ErrWouldBlock = errors.New("sock: operation would block")

// IsTemporary reports whether err represents a transient condition the
// channel should retry rather than surface as a connection failure:
// EAGAIN/EWOULDBLOCK (no data/buffer space yet) and EINTR (interrupted
// syscall). Anything else — ECONNREFUSED, EHOSTUNREACH, a closed fd — is
// a real error the dispatcher must act on (see [DialError]).
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrWouldBlock) {
		return true
	}
	var te interface{ Temporary() bool }
	if errors.As(err, &te) {
		return te.Temporary()
	}
	return false
}

// PacketConn is a non-blocking, connected UDP-style socket: it is bound to
// exactly one remote address for its lifetime, so Recv need not — but per
// spec still does — re-verify the sender matches before handing data to the
// channel. "Connected" here means the kernel (or the fake) filters
// datagrams by source; it is not a stream.
type PacketConn interface {
	// Send writes one datagram. It never blocks: if the socket buffer is
	// full it returns ErrWouldBlock.
	Send(b []byte) (n int, err error)
	// Recv reads one datagram into b. It never blocks: if nothing has
	// arrived it returns ErrWouldBlock. from reports the datagram's
	// source address, which the channel checks against the server's.
	Recv(b []byte) (n int, from netip.AddrPort, err error)
	// LocalAddr reports the ephemeral local address the kernel assigned.
	LocalAddr() netip.AddrPort
	// RemoteAddr reports the address this socket is connected to.
	RemoteAddr() netip.AddrPort
	// FD exposes the raw descriptor for registration with a [Poller].
	// An implementation without a descriptor may return -1; the channel
	// neither registers nor lists such a socket.
	FD() int
	Close() error
}

// StreamConn is a non-blocking TCP-style socket.
type StreamConn interface {
	// Send writes as much of b as the socket buffer currently has room
	// for. It never blocks; n may be less than len(b), and n==0 with
	// ErrWouldBlock means "try again once writable".
	Send(b []byte) (n int, err error)
	// Recv reads available bytes into b. Zero bytes with a nil error
	// means the peer closed its write side (EOF).
	Recv(b []byte) (n int, err error)
	// Connected reports whether a non-blocking Dial has completed.
	// Callers must poll this (via writability) before using Send/Recv.
	Connected() (bool, error)
	RemoteAddr() netip.AddrPort
	FD() int
	Close() error
}

// Dialer creates non-blocking sockets. The channel holds one Dialer and
// never imports net or golang.org/x/sys/unix itself.
type Dialer interface {
	// DialUDP creates a UDP socket connected to addr. Unlike TCP, UDP
	// "connect" is instantaneous (no handshake), so the returned
	// PacketConn is immediately usable.
	DialUDP(addr netip.AddrPort) (PacketConn, error)
	// DialTCP begins a non-blocking TCP connect to addr. The connection
	// may still be in progress when this returns; use Connected (driven
	// by write-readiness) to find out when it finishes.
	DialTCP(addr netip.AddrPort) (StreamConn, error)
}

// DialError wraps a Dial failure. The bundled dialers leave When zero,
// and the channel does not read it.
type DialError struct {
	Err  error
	When time.Time
}

func (e *DialError) Error() string { return e.Err.Error() }
func (e *DialError) Unwrap() error { return e.Err }

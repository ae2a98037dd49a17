package sock

import (
	"net/netip"
	"sync"

	"github.com/hydradns/aresgo/internal/wire"
)

// FakeDialer is an in-memory [Dialer] for channel tests: it never touches
// a real socket, so tests can run the resolver channel's full send/retry/
// timeout state machine deterministically and concurrently without flaky
// network dependencies — the same role HydraDNS's test suite gets from
// its own net.Pipe-backed fakes, adapted here to the channel's own Dialer
// seam.
type FakeDialer struct {
	mu      sync.Mutex
	servers map[netip.AddrPort]*FakeServer
	lastFD  int
}

// NewFakeDialer creates a dialer with no servers; Register adds them,
// keyed by address. Dialing an unregistered address, or a transport the
// server has down, fails with connection-refused semantics. Every dialed
// conn reports its own positive FD so the channel can register and list it.
func NewFakeDialer() *FakeDialer {
	return &FakeDialer{servers: make(map[netip.AddrPort]*FakeServer)}
}

// Register installs a fake server reachable at addr.
func (d *FakeDialer) Register(addr netip.AddrPort, s *FakeServer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.servers[addr] = s
}

func (d *FakeDialer) DialUDP(addr netip.AddrPort) (PacketConn, error) {
	d.mu.Lock()
	s, ok := d.servers[addr]
	d.lastFD++
	fd := d.lastFD
	d.mu.Unlock()
	if !ok || !s.udpUp {
		return nil, &DialError{Err: errConnRefused}
	}
	local := netip.MustParseAddrPort("127.0.0.1:0")
	c := &fakePacketConn{fd: fd, remote: addr, local: local, server: s, inbox: make(chan fakeDatagram, 64)}
	s.addUDPClient(c)
	return c, nil
}

func (d *FakeDialer) DialTCP(addr netip.AddrPort) (StreamConn, error) {
	d.mu.Lock()
	s, ok := d.servers[addr]
	d.lastFD++
	fd := d.lastFD
	d.mu.Unlock()
	if !ok || !s.tcpUp {
		return nil, &DialError{Err: errConnRefused}
	}
	c := &fakeStreamConn{fd: fd, remote: addr, server: s, connected: true, inbox: make(chan []byte, 64)}
	s.addTCPClient(c)
	return c, nil
}

// FakeServer simulates a nameserver's behavior: a function that maps an
// inbound query to a response (or no response at all, to simulate a
// silent/unreachable server), plus knobs for truncation and outages.
type FakeServer struct {
	mu        sync.Mutex
	Handle    func(query []byte) (response []byte, respond bool)
	udpUp     bool
	tcpUp     bool
	udpPeers  []*fakePacketConn
	tcpPeers  []*fakeStreamConn
}

// NewFakeServer creates a server that is up on both UDP and TCP.
func NewFakeServer(handle func(query []byte) (response []byte, respond bool)) *FakeServer {
	return &FakeServer{Handle: handle, udpUp: true, tcpUp: true}
}

// SetUDPUp/SetTCPUp simulate a server going down on one transport, used to
// exercise the dispatcher's skip_server and automatic TCP upgrade paths.
func (s *FakeServer) SetUDPUp(up bool) { s.mu.Lock(); s.udpUp = up; s.mu.Unlock() }
func (s *FakeServer) SetTCPUp(up bool) { s.mu.Lock(); s.tcpUp = up; s.mu.Unlock() }

func (s *FakeServer) addUDPClient(c *fakePacketConn) {
	s.mu.Lock()
	s.udpPeers = append(s.udpPeers, c)
	s.mu.Unlock()
}

func (s *FakeServer) addTCPClient(c *fakeStreamConn) {
	s.mu.Lock()
	s.tcpPeers = append(s.tcpPeers, c)
	s.mu.Unlock()
}

func (s *FakeServer) deliverUDP(c *fakePacketConn, query []byte) {
	s.mu.Lock()
	up := s.udpUp
	s.mu.Unlock()
	if !up {
		return
	}
	resp, ok := s.Handle(query)
	if !ok {
		return
	}
	c.inbox <- fakeDatagram{data: resp, from: c.remote}
}

func (s *FakeServer) deliverTCP(c *fakeStreamConn, query []byte) {
	s.mu.Lock()
	up := s.tcpUp
	s.mu.Unlock()
	if !up {
		return
	}
	// Handle sees the first length-prefixed message of the Send, unframed,
	// mirroring the framing applied to its reply below; bytes that do not
	// hold a complete frame are passed through as sent.
	if msg, _, err := wire.DecodeTCPFrame(query); err == nil {
		query = msg
	}
	resp, ok := s.Handle(query)
	if !ok {
		return
	}
	c.inbox <- wire.EncodeTCPFrame(resp)
}

type fakeDatagram struct {
	data []byte
	from netip.AddrPort
}

type fakePacketConn struct {
	fd     int
	remote netip.AddrPort
	local  netip.AddrPort
	server *FakeServer
	inbox  chan fakeDatagram
	closed bool
}

// Send delivers synchronously rather than mimicking real network latency:
// channel tests drive time explicitly via the `now` they pass to event
// entry points, so an async goroutine here would just be a race to
// reproduce — the fake's job is determinism, not realism.
func (c *fakePacketConn) Send(b []byte) (int, error) {
	cp := append([]byte(nil), b...)
	c.server.deliverUDP(c, cp)
	return len(b), nil
}

func (c *fakePacketConn) Recv(b []byte) (int, netip.AddrPort, error) {
	select {
	case dg := <-c.inbox:
		n := copy(b, dg.data)
		return n, dg.from, nil
	default:
		return 0, netip.AddrPort{}, ErrWouldBlock
	}
}

func (c *fakePacketConn) LocalAddr() netip.AddrPort  { return c.local }
func (c *fakePacketConn) RemoteAddr() netip.AddrPort { return c.remote }
func (c *fakePacketConn) FD() int                    { return c.fd }
func (c *fakePacketConn) Close() error               { c.closed = true; return nil }

type fakeStreamConn struct {
	fd        int
	remote    netip.AddrPort
	server    *FakeServer
	connected bool
	inbox     chan []byte
	pending   []byte
	closed    bool
}

func (c *fakeStreamConn) Send(b []byte) (int, error) {
	cp := append([]byte(nil), b...)
	c.server.deliverTCP(c, cp)
	return len(b), nil
}

func (c *fakeStreamConn) Recv(b []byte) (int, error) {
	if len(c.pending) > 0 {
		n := copy(b, c.pending)
		c.pending = c.pending[n:]
		return n, nil
	}
	select {
	case chunk := <-c.inbox:
		n := copy(b, chunk)
		if n < len(chunk) {
			c.pending = chunk[n:]
		}
		return n, nil
	default:
		return 0, ErrWouldBlock
	}
}

func (c *fakeStreamConn) Connected() (bool, error) { return c.connected, nil }
func (c *fakeStreamConn) RemoteAddr() netip.AddrPort { return c.remote }
func (c *fakeStreamConn) FD() int                    { return c.fd }
func (c *fakeStreamConn) Close() error               { c.closed = true; return nil }

var errConnRefused = fakeErr("sock: connection refused")

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

package channel_test

import (
	"net/netip"
	"testing"
	"time"

	"github.com/hydradns/aresgo/internal/channel"
	"github.com/hydradns/aresgo/internal/sock"
	"github.com/hydradns/aresgo/internal/wire"
	"github.com/stretchr/testify/require"
)

func question() wire.Question {
	return wire.Question{Name: "example.com.", Type: uint16(wire.TypeA), Class: uint16(wire.ClassIN)}
}

func queryPacket() wire.Packet {
	return wire.Packet{
		Header:    wire.Header{Flags: 0x0100}, // RD
		Questions: []wire.Question{question()},
	}
}

// successResponder builds a Handle func that answers every query with a
// SUCCESS response carrying one A record, echoing the request's id and
// question section.
func successResponder(t *testing.T) func([]byte) ([]byte, bool) {
	return func(q []byte) ([]byte, bool) {
		pkt, err := wire.ParsePacket(q)
		require.NoError(t, err)
		resp := wire.Packet{
			Header:    wire.Header{ID: pkt.Header.ID, Flags: wire.QRFlag},
			Questions: pkt.Questions,
			Answers: []wire.Record{
				{Name: "example.com.", Type: uint16(wire.TypeA), Class: uint16(wire.ClassIN), TTL: 300, Data: []byte{93, 184, 216, 34}},
			},
		}
		b, err := resp.Marshal()
		require.NoError(t, err)
		return b, true
	}
}

func rcodeResponder(t *testing.T, rcode wire.RCode) func([]byte) ([]byte, bool) {
	return func(q []byte) ([]byte, bool) {
		pkt, err := wire.ParsePacket(q)
		require.NoError(t, err)
		resp := wire.Packet{
			Header:    wire.Header{ID: pkt.Header.ID, Flags: wire.QRFlag | uint16(rcode)},
			Questions: pkt.Questions,
		}
		b, err := resp.Marshal()
		require.NoError(t, err)
		return b, true
	}
}

func newTestChannel(t *testing.T, dialer *sock.FakeDialer, addrs ...netip.AddrPort) *channel.Channel {
	t.Helper()
	var servers []channel.ServerAddr
	for _, a := range addrs {
		servers = append(servers, channel.ServerAddr{UDP: a, TCP: a})
	}
	ch, err := channel.New(channel.Config{
		Servers: servers,
		Timeout: 100 * time.Millisecond,
		Tries:   2,
		Dialer:  dialer,
	})
	require.NoError(t, err)
	return ch
}

func TestUDPImmediateSuccess(t *testing.T) {
	addr := netip.MustParseAddrPort("203.0.113.10:53")
	dialer := sock.NewFakeDialer()
	dialer.Register(addr, sock.NewFakeServer(successResponder(t)))
	ch := newTestChannel(t, dialer, addr)

	var gotStatus channel.Status
	var gotTimeouts int
	now := time.Unix(0, 0)
	_, err := ch.Submit(queryPacket(), func(s channel.Status, timeouts int, payload []byte) {
		gotStatus, gotTimeouts = s, timeouts
	}, now)
	require.NoError(t, err)

	sockets := ch.Sockets()
	require.Len(t, sockets, 1)
	ch.Readable([]int{sockets[0].FD}, now)

	require.Equal(t, channel.StatusSuccess, gotStatus)
	require.Equal(t, 0, gotTimeouts)
}

func TestTimeoutDoublingSequence(t *testing.T) {
	// tries=3, nservers=2, timeout=1000ms: deadlines across six tries are
	// 1000,1000,2000,2000,4000,4000ms after each send (spec §8).
	addrA := netip.MustParseAddrPort("203.0.113.11:53")
	addrB := netip.MustParseAddrPort("203.0.113.12:53")
	dialer := sock.NewFakeDialer()
	silent := func([]byte) ([]byte, bool) { return nil, false }
	dialer.Register(addrA, sock.NewFakeServer(silent))
	dialer.Register(addrB, sock.NewFakeServer(silent))

	ch, err := channel.New(channel.Config{
		Servers: []channel.ServerAddr{{UDP: addrA, TCP: addrA}, {UDP: addrB, TCP: addrB}},
		Timeout: 1000 * time.Millisecond,
		Tries:   3,
		Dialer:  dialer,
	})
	require.NoError(t, err)

	var finalStatus channel.Status
	var finalTimeouts int
	start := time.Unix(1000, 0)
	_, err = ch.Submit(queryPacket(), func(s channel.Status, timeouts int, payload []byte) {
		finalStatus, finalTimeouts = s, timeouts
	}, start)
	require.NoError(t, err)

	wantGapsMS := []int64{1000, 1000, 2000, 2000, 4000}
	now := start
	for _, gap := range wantGapsMS {
		now = now.Add(time.Duration(gap) * time.Millisecond)
		ch.Timeouts(now)
	}
	// Final attempt: one more 4000ms wait ends the query (6 tries total).
	now = now.Add(4000 * time.Millisecond)
	ch.Timeouts(now)

	require.Equal(t, channel.StatusTimeout, finalStatus)
	require.Equal(t, 6, finalTimeouts)
}

func TestTruncationUpgradesToTCP(t *testing.T) {
	addr := netip.MustParseAddrPort("203.0.113.20:53")
	dialer := sock.NewFakeDialer()
	udpTruncated := func(q []byte) ([]byte, bool) {
		pkt, err := wire.ParsePacket(q)
		require.NoError(t, err)
		resp := wire.Packet{Header: wire.Header{ID: pkt.Header.ID, Flags: wire.QRFlag | wire.TCFlag}, Questions: pkt.Questions}
		b, _ := resp.Marshal()
		return b, true
	}
	srv := sock.NewFakeServer(udpTruncated)
	dialer.Register(addr, srv)
	ch := newTestChannel(t, dialer, addr)

	var gotStatus channel.Status
	now := time.Unix(0, 0)
	_, err := ch.Submit(queryPacket(), func(s channel.Status, timeouts int, payload []byte) {
		gotStatus = s
	}, now)
	require.NoError(t, err)

	// First UDP datagram carries the TC=1 response that triggers upgrade.
	socks := ch.Sockets()
	require.Len(t, socks, 1)
	ch.Readable([]int{socks[0].FD}, now)

	// Swap the server's responder now that the query is expected over TCP.
	tcpOK := successResponder(t)
	srv.Handle = func(q []byte) ([]byte, bool) {
		if len(q) > 0 {
			return tcpOK(q)
		}
		return nil, false
	}

	// After the upgrade, a TCP socket is registered and writable (the send
	// buffer was populated by the resubmit dispatch). The UDP socket stays
	// open beside it: it has no query quota and saw no error.
	socks = ch.Sockets()
	require.Len(t, socks, 2)
	var fds []int
	for _, s := range socks {
		fds = append(fds, s.FD)
	}
	ch.Writable(fds, now)
	ch.Readable(fds, now)

	require.Equal(t, channel.StatusSuccess, gotStatus)
}

func TestEDNSFallbackOnFormErr(t *testing.T) {
	addr := netip.MustParseAddrPort("203.0.113.30:53")
	dialer := sock.NewFakeDialer()
	calls := 0
	srv := sock.NewFakeServer(func(q []byte) ([]byte, bool) {
		calls++
		pkt, err := wire.ParsePacket(q)
		require.NoError(t, err)
		if wire.ExtractOPT(pkt.Additionals) != nil {
			resp := wire.Packet{Header: wire.Header{ID: pkt.Header.ID, Flags: wire.QRFlag | uint16(wire.RCodeFormErr)}, Questions: pkt.Questions}
			b, _ := resp.Marshal()
			return b, true
		}
		resp := wire.Packet{
			Header:    wire.Header{ID: pkt.Header.ID, Flags: wire.QRFlag},
			Questions: pkt.Questions,
			Answers:   []wire.Record{{Name: "example.com.", Type: uint16(wire.TypeA), Class: uint16(wire.ClassIN), TTL: 60, Data: []byte{1, 2, 3, 4}}},
		}
		b, _ := resp.Marshal()
		return b, true
	})
	dialer.Register(addr, srv)

	ch, err := channel.New(channel.Config{
		Servers:        []channel.ServerAddr{{UDP: addr, TCP: addr}},
		Timeout:        100 * time.Millisecond,
		Tries:          2,
		EDNSEnabled:    true,
		EDNSPacketSize: 1280,
		Dialer:         dialer,
	})
	require.NoError(t, err)

	var gotStatus channel.Status
	now := time.Unix(0, 0)
	_, err = ch.Submit(queryPacket(), func(s channel.Status, timeouts int, payload []byte) {
		gotStatus = s
	}, now)
	require.NoError(t, err)

	socks := ch.Sockets()
	require.Len(t, socks, 1)
	ch.Readable([]int{socks[0].FD}, now) // FORMERR triggers disable+resubmit; the no-OPT answer is read in the same call
	ch.Readable([]int{socks[0].FD}, now) // nothing left to read

	require.Equal(t, channel.StatusSuccess, gotStatus)
	require.Equal(t, 2, calls)
}

func TestTwoServersOneSilentRetrySequencing(t *testing.T) {
	// spec §8 scenario 4: server A silent, server B answers; tries=2,
	// timeout=100ms. send->A(t=0), timeout(t=100), send->B(t=100),
	// answer(t=120). Callback SUCCESS, timeouts=1.
	addrA := netip.MustParseAddrPort("203.0.113.40:53")
	addrB := netip.MustParseAddrPort("203.0.113.41:53")
	dialer := sock.NewFakeDialer()
	dialer.Register(addrA, sock.NewFakeServer(func([]byte) ([]byte, bool) { return nil, false }))
	dialer.Register(addrB, sock.NewFakeServer(successResponder(t)))

	ch, err := channel.New(channel.Config{
		Servers: []channel.ServerAddr{{UDP: addrA, TCP: addrA}, {UDP: addrB, TCP: addrB}},
		Timeout: 100 * time.Millisecond,
		Tries:   2,
		Dialer:  dialer,
	})
	require.NoError(t, err)

	var gotStatus channel.Status
	var gotTimeouts int
	start := time.Unix(2000, 0)
	_, err = ch.Submit(queryPacket(), func(s channel.Status, timeouts int, payload []byte) {
		gotStatus, gotTimeouts = s, timeouts
	}, start)
	require.NoError(t, err)

	t100 := start.Add(100 * time.Millisecond)
	ch.Timeouts(t100) // times out on A, retries on B

	t120 := start.Add(120 * time.Millisecond)
	// A's idle UDP socket stays open beside B's (no quota, no error).
	socks := ch.Sockets()
	require.Len(t, socks, 2)
	var fds []int
	for _, s := range socks {
		fds = append(fds, s.FD)
	}
	ch.Readable(fds, t120)

	require.Equal(t, channel.StatusSuccess, gotStatus)
	require.Equal(t, 1, gotTimeouts)
}


package channel

import (
	"log/slog"
	"net/netip"
	"testing"
	"time"

	"github.com/hydradns/aresgo/internal/pool"
	"github.com/hydradns/aresgo/internal/sock"
	"github.com/hydradns/aresgo/internal/wire"
	"github.com/stretchr/testify/require"
)

// stubStreamConn is a minimal sock.StreamConn that returns a single
// fixed buffer from its first Recv call — used to feed readTCP two
// complete, concatenated DNS messages in one read (spec §8 scenario 6),
// which a real socket can legitimately deliver since TCP has no message
// boundaries of its own.
type stubStreamConn struct {
	data   []byte
	served bool
}

func (s *stubStreamConn) Send(b []byte) (int, error) { return len(b), nil }
func (s *stubStreamConn) Recv(b []byte) (int, error) {
	if s.served {
		return 0, sock.ErrWouldBlock
	}
	s.served = true
	n := copy(b, s.data)
	return n, nil
}
func (s *stubStreamConn) Connected() (bool, error)   { return true, nil }
func (s *stubStreamConn) RemoteAddr() netip.AddrPort { return netip.AddrPort{} }
func (s *stubStreamConn) FD() int                    { return 42 }
func (s *stubStreamConn) Close() error                { return nil }

func buildAnswer(t *testing.T, id uint16, q wire.Question) []byte {
	t.Helper()
	pkt := wire.Packet{
		Header:    wire.Header{ID: id, Flags: wire.QRFlag},
		Questions: []wire.Question{q},
		Answers:   []wire.Record{{Name: q.Name, Type: q.Type, Class: q.Class, TTL: 60, Data: []byte{1, 2, 3, 4}}},
	}
	b, err := pkt.Marshal()
	require.NoError(t, err)
	return b
}

func TestTwoConcatenatedTCPResponsesInOneRead(t *testing.T) {
	q := wire.Question{Name: "a.example.", Type: uint16(wire.TypeA), Class: uint16(wire.ClassIN)}

	srv := newServer(0, netip.MustParseAddrPort("203.0.113.60:53"), netip.MustParseAddrPort("203.0.113.60:53"))
	conn := newConnection(srv, true)

	msg1 := buildAnswer(t, 1, q)
	msg2 := buildAnswer(t, 2, q)
	concatenated := append(append([]byte{}, wire.EncodeTCPFrame(msg1)...), wire.EncodeTCPFrame(msg2)...)
	conn.tcp = &stubStreamConn{data: concatenated}

	ch := &Channel{
		cfg:         Config{Timeout: time.Second, Tries: 1},
		servers:     []*Server{srv},
		registry:    newRegistry(1),
		ids:         newIDGenerator(),
		logger:      slog.Default(),
		tcpReadBufs: pool.New(func() []byte { return make([]byte, tcpReadBufSize) }),
	}
	ch.registry.registerSocket(conn.fd(), conn)

	var fired []uint16
	for _, id := range []uint16{1, 2} {
		query := &Query{id: id, questions: []wire.Question{q}, perServer: make([]serverSlot, 1)}
		query.callback = func(s Status, timeouts int, payload []byte) {
			require.Equal(t, StatusSuccess, s)
			fired = append(fired, id)
		}
		ch.registry.insert(query)
		conn.attach(query)
	}

	ch.readTCP(conn, time.Unix(0, 0))

	require.ElementsMatch(t, []uint16{1, 2}, fired)
}

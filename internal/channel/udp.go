package channel

import (
	"time"

	"github.com/hydradns/aresgo/internal/sock"
)

// maxUDPReadSize mirrors spec §4.5: "read a datagram (up to max(512,
// ednspsz) + 1 bytes)" — the +1 lets us detect an oversized datagram
// rather than silently truncating it.
func (ch *Channel) maxUDPReadSize() int {
	sz := 512
	if ch.ednsEnabled && ch.cfg.EDNSPacketSize > sz {
		sz = ch.cfg.EDNSPacketSize
	}
	return sz + 1
}

// readUDP is spec §4.5's UDP read path: loop reading datagrams until the
// socket would block, dropping zero-length datagrams and datagrams from
// an unexpected source, and handing the rest to process_answer.
func (ch *Channel) readUDP(conn *Connection, now time.Time) {
	buf := ch.udpReadBufs.Get()
	defer ch.udpReadBufs.Put(buf)
	for {
		n, from, err := conn.udp.Recv(buf)
		if err != nil {
			if sock.IsTemporary(err) {
				return
			}
			ch.handleError(conn, now)
			return
		}
		if n == 0 {
			continue // UDP is message-oriented; a zero-length datagram is ignored
		}
		if from != conn.server.udp {
			continue // cache-poisoning defense: source address must match the server
		}
		ch.processAnswer(conn, wirecopy(buf[:n]), now)

		// The connection may have been destroyed as a side effect of
		// process_answer (e.g. a callback that destroyed the channel).
		if _, ok := ch.registry.connForSocket(conn.fd()); !ok {
			return
		}
	}
}

func wirecopy(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

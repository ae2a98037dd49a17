package channel

import (
	"errors"
	"time"

	"github.com/hydradns/aresgo/internal/sock"
	"github.com/hydradns/aresgo/internal/wire"
)

// readTCP is spec §4.6's TCP read path: accumulate bytes into the
// server's TCP receive buffer, then repeatedly tag/try-consume a framed
// message, rolling back to the tag when the buffer doesn't yet hold a
// complete frame. A single read can and does yield more than one
// message (spec §8 scenario 6: "two concatenated responses in one read").
func (ch *Channel) readTCP(conn *Connection, now time.Time) {
	buf := ch.tcpReadBufs.Get()
	defer ch.tcpReadBufs.Put(buf)
	for {
		n, err := conn.tcp.Recv(buf)
		if err != nil {
			if sock.IsTemporary(err) {
				return
			}
			ch.handleError(conn, now)
			return
		}
		if n == 0 {
			ch.handleError(conn, now) // peer closed its write side
			return
		}
		conn.tcpRecvBuf = append(conn.tcpRecvBuf, buf[:n]...)

		for {
			payload, consumed, ferr := wire.DecodeTCPFrame(conn.tcpRecvBuf)
			if ferr != nil {
				if errors.Is(ferr, wire.ErrFrameIncomplete) {
					break // await more bytes; tag is implicitly the buffer start
				}
				ch.handleError(conn, now)
				return
			}
			msg := wirecopy(payload)
			conn.tcpRecvBuf = conn.tcpRecvBuf[consumed:]
			if len(conn.tcpRecvBuf) == 0 {
				conn.tcpRecvBuf = nil // let a large backing array be reclaimed
			}
			ch.processAnswer(conn, msg, now)
			if _, ok := ch.registry.connForSocket(conn.fd()); !ok {
				return // this connection no longer exists
			}
		}
	}
}

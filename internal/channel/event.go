package channel

import (
	"time"

	"github.com/hydradns/aresgo/internal/sock"
)

// Writable is one of the embedder's three entry points (spec §4.4): for
// every server with a non-empty TCP send buffer whose socket is in fds,
// write as much as possible.
func (ch *Channel) Writable(fds []int, now time.Time) {
	for _, fd := range fds {
		conn, ok := ch.registry.connForSocket(fd)
		if !ok || !conn.isTCP {
			continue
		}
		ch.writableConn(conn, now)
	}
}

func (ch *Channel) writableConn(conn *Connection, now time.Time) {
	if conn.tcpConnecting {
		connected, err := conn.tcp.Connected()
		if err != nil {
			ch.handleError(conn, now)
			return
		}
		if !connected {
			return // still in progress; embedder will notify again
		}
		conn.tcpConnecting = false
	}

	for len(conn.tcpSendBuf) > 0 {
		n, err := conn.tcp.Send(conn.tcpSendBuf)
		if err != nil {
			if sock.IsTemporary(err) {
				return
			}
			ch.handleError(conn, now)
			return
		}
		conn.tcpSendBuf = conn.tcpSendBuf[n:]
		if n == 0 {
			return
		}
	}
	conn.tcpWantWrite = false
}

// Readable is spec §4.4's second entry point: for each matched socket,
// dispatch to the UDP or TCP read path.
func (ch *Channel) Readable(fds []int, now time.Time) {
	for _, fd := range fds {
		conn, ok := ch.registry.connForSocket(fd)
		if !ok {
			continue
		}
		if conn.isTCP {
			ch.readTCP(conn, now)
		} else {
			ch.readUDP(conn, now)
		}
	}
}

// Timeouts is spec §4.4's third entry point: walk queries_by_deadline
// from the head while the head deadline is due, retrying each via
// next_server and reaping any connection left empty behind it.
func (ch *Channel) Timeouts(now time.Time) {
	for {
		front := ch.registry.byDeadline.Front()
		if front == nil {
			return
		}
		q := front.Value()
		if q.deadline.After(now) {
			return
		}
		prevConn := q.conn
		q.errorStatus = StatusTimeout
		q.timeouts++
		if q.noRetries {
			ch.endQuery(q, StatusCancelled, nil)
		} else {
			if prevConn != nil {
				prevConn.detach(q)
			}
			ch.nextServer(q, now)
		}
		if prevConn != nil {
			ch.reapIfIdle(prevConn)
		}
	}
}

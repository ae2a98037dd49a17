package channel

import (
	"container/list"

	"github.com/hydradns/aresgo/internal/sock"
)

// Connection is exclusively owned by one [Server] (spec §3). It wraps
// either a UDP or a TCP socket and tracks the queries currently awaiting
// an answer on it.
type Connection struct {
	server *Server // back-reference only, not ownership
	isTCP  bool

	udp sock.PacketConn // set when !isTCP
	tcp sock.StreamConn // set when isTCP

	totalQueries int // lifetime count, for udp_max_queries enforcement
	queries      *list.List

	// TCP-only framing buffers (spec §4.6).
	tcpRecvBuf    []byte
	tcpSendBuf    []byte
	tcpWantWrite  bool // embedder has been told this socket is write-interested
	tcpConnecting bool // non-blocking connect still in progress

	generation uint64 // snapshot of server.tcpGeneration at creation, TCP only
}

func newConnection(s *Server, isTCP bool) *Connection {
	return &Connection{server: s, isTCP: isTCP, queries: list.New()}
}

func (c *Connection) fd() int {
	if c.isTCP {
		if c.tcp == nil {
			return -1
		}
		return c.tcp.FD()
	}
	if c.udp == nil {
		return -1
	}
	return c.udp.FD()
}

// attach adds q to this connection's query list and records the handle it
// needs for O(1) detach later.
func (c *Connection) attach(q *Query) {
	q.connElem = c.queries.PushBack(q)
	q.conn = c
}

// detach removes q from this connection's query list without touching any
// other index. Safe to call even if q is not actually on c (no-op).
func (c *Connection) detach(q *Query) {
	if q.connElem == nil || q.conn != c {
		return
	}
	c.queries.Remove(q.connElem)
	q.connElem = nil
	q.conn = nil
}

// stealAll detaches every query currently on this connection and returns
// them, per spec §4.3's handle_error: "detach the connection's query
// list" as a single atomic step before destroying the connection.
func (c *Connection) stealAll() []*Query {
	out := make([]*Query, 0, c.queries.Len())
	for e := c.queries.Front(); e != nil; {
		next := e.Next()
		q := e.Value.(*Query)
		c.queries.Remove(e)
		q.connElem = nil
		q.conn = nil
		out = append(out, q)
		e = next
	}
	return out
}

func (c *Connection) empty() bool { return c.queries.Len() == 0 }

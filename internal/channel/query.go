package channel

import (
	"container/list"
	"time"

	"github.com/hydradns/aresgo/internal/skiplist"
	"github.com/hydradns/aresgo/internal/wire"
)

// Callback is invoked exactly once per submitted query, per spec §4.8. The
// handle the query was submitted under is invalid the instant this
// function is entered — the callback must not operate on it again.
type Callback func(status Status, timeouts int, payload []byte)

// serverSlot is the per-query, per-server retry bookkeeping named in spec
// §3 ("a per-server vector of (skip: bool, last_generation: u64)").
type serverSlot struct {
	skip           bool
	lastGeneration uint64
}

// Query is one submitted request and its retry state (spec §3).
type Query struct {
	id          uint16
	deadline    time.Time
	questions   []wire.Question // echoed question section, for response matching
	framed      []byte          // length-prefixed form: 2-byte length + payload, usable for TCP
	callback    Callback
	tryCount    int
	timeouts    int
	serverIndex int
	usingTCP    bool
	noRetries   bool
	errorStatus Status
	perServer   []serverSlot

	conn *Connection // connection currently carrying this query, nil if none

	// Index handles (spec §4.1: "retains its node handles" for O(1) removal).
	deadlineNode   *skiplist.Node[*Query]
	allQueriesElem *list.Element
	connElem       *list.Element // this query's element within conn.queries
}

// payload returns the UDP-sendable bytes (the framed form minus its 2-byte
// TCP length prefix).
func (q *Query) payload() []byte {
	if len(q.framed) < 2 {
		return nil
	}
	return q.framed[2:]
}

type deadlineKey struct {
	t   time.Time
	seq uint64 // submission-order tiebreaker for equal timestamps
}

func (k deadlineKey) Less(other skiplist.Key) bool {
	o := other.(deadlineKey)
	if k.t.Equal(o.t) {
		return k.seq < o.seq
	}
	return k.t.Before(o.t)
}

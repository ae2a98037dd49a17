package channel

import (
	"container/list"
	"time"

	"github.com/hydradns/aresgo/internal/skiplist"
)

// registry owns the four indexes over in-flight queries named in spec §3:
// queries_by_id, queries_by_deadline, all_queries, connection_by_socket.
// A query is uniquely owned via allQueries; the other two query indexes
// are relations holding the same pointer.
type registry struct {
	byID         map[uint16]*Query
	byDeadline   *skiplist.Skiplist[*Query]
	allQueries   *list.List
	connBySocket map[int]*Connection
	seq          uint64
}

func newRegistry(seed int64) *registry {
	return &registry{
		byID:         make(map[uint16]*Query),
		byDeadline:   skiplist.New[*Query](seed),
		allQueries:   list.New(),
		connBySocket: make(map[int]*Connection),
	}
}

// insert adds q to all three query indexes in one logical step. Per spec
// §4.1, a failure partway rolls back whatever was already inserted; the
// only realistic failure here is an id collision, which callers must
// already have resolved via idgen before calling insert.
func (r *registry) insert(q *Query) {
	r.byID[q.id] = q
	r.seq++
	q.deadlineNode = r.byDeadline.Insert(deadlineKey{t: q.deadline, seq: r.seq}, q)
	q.allQueriesElem = r.allQueries.PushBack(q)
}

// remove deletes q from all three query indexes. It does not touch any
// connection's query list — callers detach from the connection (or find
// it already detached) separately.
func (r *registry) remove(q *Query) {
	delete(r.byID, q.id)
	if q.deadlineNode != nil {
		r.byDeadline.Remove(q.deadlineNode)
		q.deadlineNode = nil
	}
	if q.allQueriesElem != nil {
		r.allQueries.Remove(q.allQueriesElem)
		q.allQueriesElem = nil
	}
}

// rekeyDeadline removes and reinserts q at a new deadline — used by
// send_query (spec §4.2: "remove the query from its old deadline slot;
// compute the new deadline... insert into queries_by_deadline").
func (r *registry) rekeyDeadline(q *Query, deadline time.Time) {
	if q.deadlineNode != nil {
		r.byDeadline.Remove(q.deadlineNode)
	}
	r.seq++
	q.deadline = deadline
	q.deadlineNode = r.byDeadline.Insert(deadlineKey{t: deadline, seq: r.seq}, q)
}

func (r *registry) byIDLookup(id uint16) (*Query, bool) {
	q, ok := r.byID[id]
	return q, ok
}

func (r *registry) has(id uint16) bool {
	_, ok := r.byID[id]
	return ok
}

func (r *registry) registerSocket(fd int, c *Connection) {
	if fd >= 0 {
		r.connBySocket[fd] = c
	}
}

func (r *registry) unregisterSocket(fd int) {
	delete(r.connBySocket, fd)
}

func (r *registry) connForSocket(fd int) (*Connection, bool) {
	c, ok := r.connBySocket[fd]
	return c, ok
}

func (r *registry) len() int { return r.allQueries.Len() }

package channel

import (
	"errors"
	"time"

	"github.com/hydradns/aresgo/internal/sock"
)

// sendQuery performs the actual socket work for one attempt against
// q.serverIndex (spec §4.2). It does not touch try_count, deadlines or
// indexes beyond attaching the query to its connection — that bookkeeping
// lives in dispatch, the single caller, so the timeout-doubling formula
// sees try_count as the attempts made (and candidates skipped by
// nextServer) so far, before this one.
func (ch *Channel) sendQuery(q *Query, now time.Time) error {
	srv := ch.servers[q.serverIndex]

	var conn *Connection
	if q.usingTCP {
		c, err := ch.ensureTCPConn(srv, now)
		if err != nil {
			if errors.Is(err, errSkip) {
				ch.skipServer(q, srv)
			}
			return err
		}
		conn = c
		wasEmpty := len(conn.tcpSendBuf) == 0
		conn.tcpSendBuf = append(conn.tcpSendBuf, q.framed...)
		if wasEmpty {
			conn.tcpWantWrite = true
		}
	} else {
		c, err := ch.ensureUDPConn(srv)
		if err != nil {
			if errors.Is(err, errSkip) {
				ch.skipServer(q, srv)
			}
			return err
		}
		conn = c
		if _, err := conn.udp.Send(q.payload()); err != nil && !sock.IsTemporary(err) {
			ch.skipServer(q, srv)
			return errSkip
		}
	}

	conn.totalQueries++
	conn.attach(q)
	q.perServer[srv.index].lastGeneration = srv.tcpGeneration

	return nil
}

// errSkip is a private sentinel meaning "this attempt failed in a
// retryable way; the caller (dispatch) should move to the next server".
// It never reaches a query's callback.
var errSkip = errors.New("channel: retry on next server")

// dispatch applies the try_count increment and the query's new deadline
// around a send attempt (spec §4.2's "after a successful enqueue"
// bookkeeping), and is the recursive entry point next_server calls back
// into after skipping ineligible candidates (nextServer itself also
// increments try_count once per skipped candidate).
func (ch *Channel) dispatch(q *Query, now time.Time) {
	n := len(ch.servers)
	shift := q.tryCount / n
	timeplus := ch.cfg.Timeout
	if shift > 0 && shift < 20 {
		timeplus = ch.cfg.Timeout << shift
	} else if shift >= 20 {
		timeplus = ch.cfg.Timeout << 19
	}

	err := ch.sendQuery(q, now)
	if err == nil {
		q.tryCount++
		ch.registry.rekeyDeadline(q, now.Add(timeplus))
		return
	}

	var se *statusError
	if errors.As(err, &se) {
		// Fatal open/encode failure (spec §4.2: "any other failure → end
		// the query with that error").
		ch.endQuery(q, se.s, nil)
		return
	}
	// Retryable: the server was already skipped by sendQuery/ensure*Conn.
	ch.nextServer(q, now)
}

// nextServer advances through candidate servers per spec §4.3, skipping
// any already marked skip_server or whose TCP generation the query has
// already tried, bounded by nservers*tries total rotations.
func (ch *Channel) nextServer(q *Query, now time.Time) {
	n := len(ch.servers)
	limit := n * ch.cfg.Tries
	for q.tryCount < limit {
		q.serverIndex = (q.serverIndex + 1) % n
		srv := ch.servers[q.serverIndex]
		slot := &q.perServer[srv.index]

		if slot.skip {
			q.tryCount++
			continue
		}
		if q.usingTCP && slot.lastGeneration != 0 && slot.lastGeneration == srv.tcpGeneration {
			q.tryCount++
			continue
		}
		ch.dispatch(q, now)
		return
	}
	ch.endQuery(q, q.errorStatus, nil)
}

// skipServer marks server ineligible for further attempts by q. A
// single-server channel never skips (spec §4.3, §9 open question:
// retrying the same server may still succeed).
func (ch *Channel) skipServer(q *Query, srv *Server) {
	if len(ch.servers) > 1 {
		q.perServer[srv.index].skip = true
	}
}

// ensureUDPConn returns a reusable UDP connection for srv or opens one.
func (ch *Channel) ensureUDPConn(srv *Server) (*Connection, error) {
	if c := srv.reusableUDPConn(ch.cfg.UDPMaxQueries); c != nil {
		return c, nil
	}
	addr := srv.udp
	pc, err := ch.cfg.Dialer.DialUDP(addr)
	if err != nil {
		if isRetryableDialErr(err) {
			return nil, errSkip
		}
		return nil, &statusError{StatusConnRefused}
	}
	conn := newConnection(srv, false)
	conn.udp = pc
	srv.addConn(conn)
	ch.registry.registerSocket(pc.FD(), conn)
	return conn, nil
}

// ensureTCPConn returns the server's live TCP connection or opens one,
// incrementing the server's generation counter on open (spec §5: "the
// server's TCP generation counter increments on reopen").
func (ch *Channel) ensureTCPConn(srv *Server, now time.Time) (*Connection, error) {
	if c := srv.tcpConn(); c != nil {
		return c, nil
	}
	sc, err := ch.cfg.Dialer.DialTCP(srv.tcp)
	if err != nil {
		if isRetryableDialErr(err) {
			return nil, errSkip
		}
		return nil, &statusError{StatusConnRefused}
	}
	srv.tcpGeneration++
	conn := newConnection(srv, true)
	conn.tcp = sc
	conn.generation = srv.tcpGeneration
	if ok, _ := sc.Connected(); !ok {
		conn.tcpConnecting = true
	}
	srv.addConn(conn)
	ch.registry.registerSocket(sc.FD(), conn)
	return conn, nil
}

// handleError is spec §4.3's handle_error: detach the connection's query
// list, destroy the connection, then requeue every detached query via
// next_server (onto a different server when more than one is configured;
// a single-server channel retries the same server on a fresh socket).
// Destroy-then-requeue order guarantees a retry never lands back on the
// dying socket.
func (ch *Channel) handleError(conn *Connection, now time.Time) {
	detached := conn.stealAll()
	srv := conn.server
	ch.closeConn(conn)
	for _, q := range detached {
		ch.skipServer(q, srv)
		ch.nextServer(q, now)
	}
}

func (ch *Channel) closeConn(conn *Connection) {
	fd := conn.fd()
	ch.registry.unregisterSocket(fd)
	conn.server.removeConn(conn)
	if conn.isTCP {
		if conn.tcp != nil {
			_ = conn.tcp.Close()
		}
	} else if conn.udp != nil {
		_ = conn.udp.Close()
	}
}

// reapIfIdle closes a UDP connection once its query list is empty and its
// total query count has reached UDPMaxQueries (0 means unlimited, so such
// a connection stays open). Errored connections, UDP or TCP, are closed by
// handleError instead; TCP connections are never reaped merely for being
// idle (spec §5).
func (ch *Channel) reapIfIdle(conn *Connection) {
	if conn.isTCP || !conn.empty() {
		return
	}
	if ch.cfg.UDPMaxQueries != 0 && conn.totalQueries >= ch.cfg.UDPMaxQueries {
		ch.closeConn(conn)
	}
}

func isRetryableDialErr(err error) bool {
	var de *sock.DialError
	if errors.As(err, &de) {
		return sock.IsRetryableDial(de.Err)
	}
	return sock.IsRetryableDial(err)
}

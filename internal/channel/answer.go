package channel

import (
	"encoding/binary"
	"time"

	"github.com/hydradns/aresgo/internal/wire"
)

// processAnswer implements spec §4.7. payload is the raw (unframed) DNS
// message for either transport: for UDP it is the datagram; for TCP it is
// one already-deframed message.
func (ch *Channel) processAnswer(conn *Connection, payload []byte, now time.Time) {
	pkt, err := wire.ParseResponseBounded(payload)
	if err != nil {
		return // malformed response: drop silently, untrusted input
	}

	q, ok := ch.registry.byIDLookup(pkt.Header.ID)
	if !ok {
		return
	}
	// The response must have arrived on the connection this query is
	// actually waiting on; a stale answer from a reaped connection (or a
	// response for a query retried elsewhere) is not a match.
	if q.conn != conn {
		return
	}
	if !wire.QuestionsEqual(q.questions, pkt.Questions) {
		return
	}

	// Detach from the connection now so it becomes eligible for reaping
	// regardless of how processAnswer concludes (spec §4.7 step 4).
	conn.detach(q)

	rcode := wire.RCodeFromFlags(pkt.Header.Flags)

	// EDNS fallback (step 5): channel-wide EDNS, FORMERR, no OPT in the
	// response → disable EDNS, strip OPT from the request, resubmit.
	if ch.ednsEnabled && rcode == wire.RCodeFormErr && wire.ExtractOPT(pkt.Additionals) == nil {
		ch.ednsEnabled = false
		ch.stripEDNSAndResubmit(q, now)
		return
	}

	// Truncation upgrade (step 6): UDP response truncated or oversized.
	if !conn.isTCP && !ch.cfg.IgnoreTC {
		packetSize := 512
		if ch.ednsEnabled {
			packetSize = ch.cfg.EDNSPacketSize
		}
		if wire.IsTruncated(payload) || len(payload) > packetSize {
			q.usingTCP = true
			ch.dispatch(q, now)
			return
		}
	}

	// Response-code filtering (step 7), unless NOCHECKRESP.
	if !ch.cfg.NoCheckResp {
		switch rcode {
		case wire.RCodeServFail:
			q.errorStatus = StatusServFail
			ch.skipServer(q, ch.servers[q.serverIndex])
			ch.nextServer(q, now)
			return
		case wire.RCodeNotImp:
			q.errorStatus = StatusNotImp
			ch.skipServer(q, ch.servers[q.serverIndex])
			ch.nextServer(q, now)
			return
		case wire.RCodeRefused:
			q.errorStatus = StatusRefused
			ch.skipServer(q, ch.servers[q.serverIndex])
			ch.nextServer(q, now)
			return
		}
	}

	ch.endQuery(q, StatusSuccess, payload)
}

// stripEDNSAndResubmit removes the OPT record's 11-byte fixed encoding
// (root name + TYPE + CLASS + TTL + RDLENGTH, with zero-length RDATA as
// the channel always emits) from the outbound request, decrements
// ARCOUNT, rewrites the TCP length prefix, and resends.
func (ch *Channel) stripEDNSAndResubmit(q *Query, now time.Time) {
	payload := q.payload()
	opt := wire.ExtractOPT(mustParseAdditionals(payload))
	if opt == nil {
		ch.dispatch(q, now)
		return
	}
	const fixedOPTLen = 11 // 1-byte root name + 2 TYPE + 2 CLASS + 4 TTL + 2 RDLENGTH
	if len(payload) < fixedOPTLen {
		ch.dispatch(q, now)
		return
	}
	trimmed := payload[:len(payload)-fixedOPTLen]
	if len(trimmed) >= 12 {
		ar := binary.BigEndian.Uint16(trimmed[10:12])
		if ar > 0 {
			binary.BigEndian.PutUint16(trimmed[10:12], ar-1)
		}
	}
	q.framed = wire.EncodeTCPFrame(trimmed)
	ch.dispatch(q, now)
}

// mustParseAdditionals re-parses just enough of the outbound request to
// find its own OPT record; a request the channel itself encoded is
// always well-formed, so a parse error here means there is no OPT to
// strip.
func mustParseAdditionals(payload []byte) []wire.Record {
	pkt, err := wire.ParsePacket(payload)
	if err != nil {
		return nil
	}
	return pkt.Additionals
}

// endQuery is spec §4.8: remove the query from every index, fire its
// callback exactly once, and leave the handle invalid.
func (ch *Channel) endQuery(q *Query, status Status, payload []byte) {
	if q.conn != nil {
		q.conn.detach(q)
	}
	ch.registry.remove(q)
	cb := q.callback
	q.callback = nil
	if cb != nil {
		cb(status, q.timeouts, payload)
	}
}

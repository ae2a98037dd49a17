package channel

import "net/netip"

// ServerSnapshot is one server's point-in-time introspection state, for
// statsapi's read-only server list — never consulted on the query path.
type ServerSnapshot struct {
	Index         int
	UDP           netip.AddrPort
	TCP           netip.AddrPort
	TCPGeneration uint64
	Connections   int
}

// Snapshot is a consistent point-in-time view of the channel's live state
// (spec §3's indexes, flattened to plain data). The embedder calls this
// from the same goroutine that drives the channel's event-dispatch entry
// points and publishes the result for statsapi to read — the channel
// itself is never queried concurrently (spec §5).
type Snapshot struct {
	LiveQueries int
	EDNSEnabled bool
	Servers     []ServerSnapshot
}

// Snapshot captures the channel's current introspection state.
func (ch *Channel) Snapshot() Snapshot {
	snap := Snapshot{
		LiveQueries: ch.registry.len(),
		EDNSEnabled: ch.ednsEnabled,
		Servers:     make([]ServerSnapshot, 0, len(ch.servers)),
	}
	for _, s := range ch.servers {
		snap.Servers = append(snap.Servers, ServerSnapshot{
			Index:         s.index,
			UDP:           s.udp,
			TCP:           s.tcp,
			TCPGeneration: s.tcpGeneration,
			Connections:   len(s.conns),
		})
	}
	return snap
}

package statsapi

import (
	"sync/atomic"

	"github.com/hydradns/aresgo/internal/channel"
)

// SnapshotSource hands the HTTP handlers a thread-safe view of the
// channel's last-published state. The embedder calls Publish from the same
// goroutine that drives the channel's event-dispatch entry points (spec
// §5); handlers only ever call Load, so the channel itself is never
// touched from an HTTP request goroutine.
type SnapshotSource struct {
	v atomic.Pointer[channel.Snapshot]
}

// Publish stores the channel's current snapshot for handlers to read.
func (s *SnapshotSource) Publish(snap channel.Snapshot) {
	s.v.Store(&snap)
}

// Load returns the most recently published snapshot, or the zero value if
// none has been published yet.
func (s *SnapshotSource) Load() channel.Snapshot {
	if p := s.v.Load(); p != nil {
		return *p
	}
	return channel.Snapshot{}
}

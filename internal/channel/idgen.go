package channel

import (
	"crypto/rand"
	"encoding/binary"
)

// idGenerator draws unpredictable 16-bit query ids (spec §4.1). Every id
// is read straight from crypto/rand: a non-cryptographic PRNG's internal
// state is recoverable from a handful of observed outputs even when its
// seed came from a good source, which would defeat the cache-poisoning
// resistance this id space exists to provide.
type idGenerator struct{}

func newIDGenerator() *idGenerator {
	return &idGenerator{}
}

// allocate draws an id not currently taken per the given predicate,
// retrying on collision. With at most 65535 live queries (spec's own id
// collision boundary test), a free id always exists.
func (g *idGenerator) allocate(taken func(id uint16) bool) (uint16, bool) {
	const maxAttempts = 65536
	var b [2]byte
	for range maxAttempts {
		if _, err := rand.Read(b[:]); err != nil {
			return 0, false
		}
		id := binary.BigEndian.Uint16(b[:])
		if !taken(id) {
			return id, true
		}
	}
	return 0, false
}

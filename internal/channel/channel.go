// Package channel implements the resolver channel: the single long-lived
// object that owns the server table, connection manager, query registry
// and dispatcher described in spec §2–§4. It is the core this repository
// exists to provide; every other package is a service the channel
// consumes through an injected interface (wire codec, socket dialer,
// configuration loader).
package channel

import (
	"errors"
	"log/slog"
	"net/netip"
	"time"

	"github.com/hydradns/aresgo/internal/pool"
	"github.com/hydradns/aresgo/internal/sock"
	"github.com/hydradns/aresgo/internal/wire"
)

// ErrNoServers is returned by New when Config.Servers is empty — spec §3's
// channel invariant "the server table is non-empty" must hold from
// construction onward.
var ErrNoServers = errors.New("channel: at least one server is required")

// Config is the channel's immutable-after-init resolver policy (spec §3
// "Channel configuration"). Values left zero take the built-in defaults
// named in spec §6; internal/resolvconf is responsible for applying the
// higher-precedence sources before constructing this.
type Config struct {
	Servers []ServerAddr

	Timeout       time.Duration // base per-attempt timeout; default 2000ms
	Tries         int           // default 3
	UDPMaxQueries int           // 0 == unlimited

	EDNSEnabled    bool
	EDNSPacketSize int // default 1280

	IgnoreTC    bool // IGNTC: never upgrade to TCP on truncation
	NoCheckResp bool // NOCHECKRESP: skip rcode-triggered retry (spec §4.7 step 7)

	Dialer sock.Dialer
	Logger *slog.Logger
}

// ServerAddr is one configured upstream, already resolved to concrete
// UDP/TCP endpoints (internal/resolvconf turns address strings into this).
type ServerAddr struct {
	UDP netip.AddrPort
	TCP netip.AddrPort
}

func (c *Config) setDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 2000 * time.Millisecond
	}
	if c.Tries <= 0 {
		c.Tries = 3
	}
	if c.EDNSPacketSize <= 0 {
		c.EDNSPacketSize = 1280
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Channel is the root object of spec §3: it owns the server table,
// connection manager (via each Server), query registry and dispatcher.
// A Channel must be driven from one goroutine at a time (spec §5); it
// never spawns goroutines and never blocks on I/O itself.
type Channel struct {
	cfg      Config
	servers  []*Server
	registry *registry
	ids      *idGenerator

	// ednsEnabled starts as cfg.EDNSEnabled but can be latched false
	// channel-wide by a FORMERR-without-OPT response (spec §4.7 step 5,
	// §9 open question: disablement is channel-wide, preserved as-is).
	ednsEnabled bool

	destroyed bool
	logger    *slog.Logger

	// udpReadBufs/tcpReadBufs recycle the per-call scratch buffers
	// readUDP/readTCP fill from the socket, avoiding a fresh allocation on
	// every readiness event.
	udpReadBufs *pool.Pool[[]byte]
	tcpReadBufs *pool.Pool[[]byte]
}

// tcpReadBufSize is the scratch buffer readTCP fills per Recv call; frames
// larger than this simply accumulate across multiple reads.
const tcpReadBufSize = 65535

// New constructs a Channel. nservers ≥ 1 is enforced immediately per the
// spec §3 invariant.
func New(cfg Config) (*Channel, error) {
	if len(cfg.Servers) == 0 {
		return nil, ErrNoServers
	}
	if cfg.Dialer == nil {
		return nil, errors.New("channel: Config.Dialer is required")
	}
	cfg.setDefaults()

	ch := &Channel{
		cfg:         cfg,
		registry:    newRegistry(1),
		ids:         newIDGenerator(),
		ednsEnabled: cfg.EDNSEnabled,
		logger:      cfg.Logger,
	}
	udpBufSize := ch.maxUDPReadSize()
	ch.udpReadBufs = pool.New(func() []byte { return make([]byte, udpBufSize) })
	ch.tcpReadBufs = pool.New(func() []byte { return make([]byte, tcpReadBufSize) })
	for i, sa := range cfg.Servers {
		ch.servers = append(ch.servers, newServer(i, sa.UDP, sa.TCP))
	}
	return ch, nil
}

// Submit encodes pkt, assigns it an unpredictable id, and dispatches the
// first send attempt. now is supplied by the embedder (spec §4.4: "the
// core does not read the clock except at entry into the event
// functions"). cb fires exactly once.
func (ch *Channel) Submit(pkt wire.Packet, cb Callback, now time.Time) (uint16, error) {
	if ch.destroyed {
		return 0, statusErr(StatusDestruction)
	}
	id, ok := ch.ids.allocate(ch.registry.has)
	if !ok {
		return 0, statusErr(StatusNoMem)
	}
	pkt.Header.ID = id

	payload, err := pkt.Marshal()
	if err != nil {
		return 0, statusErr(StatusBadQuery)
	}
	if ch.ednsEnabled {
		payload = wire.AddEDNSToRequestBytes(pkt, payload, ch.cfg.EDNSPacketSize)
	}

	q := &Query{
		id:          id,
		deadline:    now,
		questions:   pkt.Questions,
		framed:      wire.EncodeTCPFrame(payload),
		callback:    cb,
		serverIndex: 0,
		errorStatus: StatusTimeout,
		perServer:   make([]serverSlot, len(ch.servers)),
	}
	ch.registry.insert(q)
	ch.dispatch(q, now)
	return id, nil
}

// Cancel marks a live query for no-retry and forces it to end on the next
// timeout sweep (spec §5 "Cancellation and timeouts").
func (ch *Channel) Cancel(id uint16, now time.Time) bool {
	q, ok := ch.registry.byIDLookup(id)
	if !ok {
		return false
	}
	q.noRetries = true
	ch.registry.rekeyDeadline(q, now)
	ch.Timeouts(now)
	return true
}

// CancelAll walks all_queries setting no_retries, then forces an
// immediate timeout sweep (spec §5).
func (ch *Channel) CancelAll(now time.Time) {
	for e := ch.registry.allQueries.Front(); e != nil; e = e.Next() {
		q := e.Value.(*Query)
		q.noRetries = true
		ch.registry.rekeyDeadline(q, now)
	}
	ch.Timeouts(now)
}

// Destroy ends every live query with EDESTRUCTION and releases sockets.
// The Channel must not be used afterward.
func (ch *Channel) Destroy() {
	if ch.destroyed {
		return
	}
	ch.destroyed = true
	for e := ch.registry.allQueries.Front(); e != nil; {
		next := e.Next()
		q := e.Value.(*Query)
		ch.endQuery(q, StatusDestruction, nil)
		e = next
	}
	for _, s := range ch.servers {
		// closeConn removes c from s.conns, so walk a copy.
		for _, c := range append([]*Connection(nil), s.conns...) {
			ch.closeConn(c)
		}
	}
}

// SocketInfo describes one socket the embedder should poll, and whether
// the channel currently wants write-readiness on it (spec §6: "Enumerate
// sockets of interest").
type SocketInfo struct {
	FD        int
	WantWrite bool
}

// Sockets enumerates every live socket for the embedder's poll set.
func (ch *Channel) Sockets() []SocketInfo {
	var out []SocketInfo
	for _, s := range ch.servers {
		for _, c := range s.conns {
			fd := c.fd()
			if fd < 0 {
				continue
			}
			out = append(out, SocketInfo{FD: fd, WantWrite: c.isTCP && (c.tcpWantWrite || c.tcpConnecting)})
		}
	}
	return out
}

// NextTimeout returns how long the embedder may safely poll before it
// must call Timeouts again — the gap to the earliest deadline in
// queries_by_deadline, or negative if there are no live queries.
func (ch *Channel) NextTimeout(now time.Time) time.Duration {
	front := ch.registry.byDeadline.Front()
	if front == nil {
		return -1
	}
	q := front.Value()
	if d := q.deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

func statusErr(s Status) error { return &statusError{s} }

type statusError struct{ s Status }

func (e *statusError) Error() string  { return "channel: " + e.s.String() }
func (e *statusError) Status() Status { return e.s }

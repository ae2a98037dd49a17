// Command aresdig is the reference embedder for the resolver channel: it
// resolves a single name against a configured server set and prints the
// answer, driving the channel's event loop with the Linux epoll Poller the
// way cmd/hydradns drives its UDP/TCP server loops.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/hydradns/aresgo/internal/channel"
	"github.com/hydradns/aresgo/internal/diag"
	"github.com/hydradns/aresgo/internal/logging"
	"github.com/hydradns/aresgo/internal/resolvconf"
	"github.com/hydradns/aresgo/internal/sock"
	"github.com/hydradns/aresgo/internal/statsapi"
	"github.com/hydradns/aresgo/internal/store"
	"github.com/hydradns/aresgo/internal/wire"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

type cliFlags struct {
	name       string
	qtype      uint
	resolvConf string
	dbPath     string
	apiAddr    string
	apiKey     string
	jsonLogs   bool
	debug      bool
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.name, "name", "example.com", "Query name")
	flag.UintVar(&f.qtype, "type", uint(wire.TypeA), "Query type (numeric)")
	flag.StringVar(&f.resolvConf, "resolv-conf", "/etc/resolv.conf", "Path to a resolv.conf-formatted file")
	flag.StringVar(&f.dbPath, "db", "", "Path to a SQLite diagnostics database (empty disables persistence)")
	flag.StringVar(&f.apiAddr, "api-addr", "", "Introspection API bind address (empty disables the API)")
	flag.StringVar(&f.apiKey, "api-key", "", "Introspection API key (empty disables auth)")
	flag.BoolVar(&f.jsonLogs, "json-logs", false, "Enable JSON structured logging")
	flag.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	flag.Parse()
	return f
}

func run() error {
	flags := parseFlags()

	level := "INFO"
	if flags.debug {
		level = "DEBUG"
	}
	logger := logging.Configure(logging.Config{
		Level:            level,
		Structured:       flags.jsonLogs,
		StructuredFormat: "json",
		IncludePID:       true,
	})

	opts, err := resolvconf.Load(resolvconf.Options{}, resolvconf.NewFileDiscoverer(flags.resolvConf))
	if err != nil {
		return fmt.Errorf("aresdig: load resolver config: %w", err)
	}

	servers, err := toServerAddrs(opts.Servers)
	if err != nil {
		return fmt.Errorf("aresdig: %w", err)
	}

	var st *store.Store
	if flags.dbPath != "" {
		st, err = store.Open(flags.dbPath)
		if err != nil {
			return fmt.Errorf("aresdig: open store: %w", err)
		}
		defer st.Close()
	}

	poller, err := sock.NewPoller()
	if err != nil {
		return fmt.Errorf("aresdig: create poller: %w", err)
	}
	defer poller.Close()

	ch, err := channel.New(channel.Config{
		Servers:        servers,
		Timeout:        time.Duration(opts.Timeout) * time.Millisecond,
		Tries:          opts.Tries,
		EDNSEnabled:    true,
		EDNSPacketSize: opts.EDNSPacketSize,
		Dialer:         sock.NewDialer(),
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("aresdig: new channel: %w", err)
	}
	defer ch.Destroy()

	sampler, err := diag.NewSampler()
	if err != nil {
		return fmt.Errorf("aresdig: new sampler: %w", err)
	}
	var snapshots statsapi.SnapshotSource

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var apiSrv *statsapi.Server
	if flags.apiAddr != "" {
		apiSrv = statsapi.New(statsapi.Config{
			Addr:    flags.apiAddr,
			APIKey:  flags.apiKey,
			Sampler: sampler,
			Store:   st,
		}, logger, &snapshots)
		go func() {
			if serveErr := apiSrv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				logger.Error("introspection API error", "err", serveErr)
			}
		}()
		logger.Info("introspection API starting", "addr", apiSrv.Addr())
	}

	done := make(chan struct{})
	var finalStatus channel.Status
	var finalPayload []byte

	now := time.Now()
	pkt := buildQuery(flags.name, uint16(flags.qtype))
	id, err := ch.Submit(pkt, func(status channel.Status, timeouts int, payload []byte) {
		finalStatus = status
		finalPayload = payload
		if st != nil {
			_ = st.RecordQuery(store.QueryDiagnostic{
				Status:     status.String(),
				TryCount:   opts.Tries,
				Timeouts:   timeouts,
				UsedTCP:    false,
				RecordedAt: time.Now(),
			})
		}
		close(done)
	}, now)
	if err != nil {
		return fmt.Errorf("aresdig: submit query: %w", err)
	}
	logger.Info("query submitted", "id", id, "name", flags.name, "type", flags.qtype)

	tracked := map[int]bool{}
	epollBuf := make([]unix.EpollEvent, 16)

loop:
	for {
		reconcilePoller(poller, ch, tracked)
		snapshots.Publish(ch.Snapshot())

		timeout := ch.NextTimeout(time.Now())
		timeoutMS := -1
		if timeout >= 0 {
			timeoutMS = int(timeout / time.Millisecond)
			if timeoutMS < 1 {
				timeoutMS = 1
			}
		}

		events, err := poller.Wait(timeoutMS, epollBuf)
		if err != nil {
			return fmt.Errorf("aresdig: poll: %w", err)
		}

		now := time.Now()
		var readable, writable []int
		for _, ev := range events {
			if ev.Readable || ev.Error {
				readable = append(readable, ev.FD)
			}
			if ev.Writable {
				writable = append(writable, ev.FD)
			}
		}
		if len(writable) > 0 {
			ch.Writable(writable, now)
		}
		if len(readable) > 0 {
			ch.Readable(readable, now)
		}
		ch.Timeouts(now)

		select {
		case <-done:
			break loop
		case <-ctx.Done():
			logger.Info("interrupted")
			break loop
		default:
		}
	}

	if apiSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = apiSrv.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	select {
	case <-done:
	default:
		return fmt.Errorf("aresdig: interrupted before query completed")
	}

	if finalStatus != channel.StatusSuccess {
		return fmt.Errorf("aresdig: query failed: %s", finalStatus)
	}
	resp, err := wire.ParsePacket(finalPayload)
	if err != nil {
		return fmt.Errorf("aresdig: parse response: %w", err)
	}
	printAnswer(resp)
	return nil
}

// reconcilePoller adds fds the channel has opened since the last iteration
// and drops fds it has since closed, keeping the epoll interest set in
// sync with channel.Sockets().
func reconcilePoller(poller *sock.Poller, ch *channel.Channel, tracked map[int]bool) {
	live := map[int]bool{}
	for _, si := range ch.Sockets() {
		live[si.FD] = true
		if !tracked[si.FD] {
			_ = poller.Add(si.FD, si.WantWrite)
			tracked[si.FD] = true
		} else {
			_ = poller.Modify(si.FD, si.WantWrite)
		}
	}
	for fd := range tracked {
		if !live[fd] {
			_ = poller.Remove(fd)
			delete(tracked, fd)
		}
	}
}

const defaultDNSPort = 53

func toServerAddrs(raw []string) ([]channel.ServerAddr, error) {
	out := make([]channel.ServerAddr, 0, len(raw))
	for _, s := range raw {
		a, err := resolvconf.ParseServerAddr(s)
		if err != nil {
			return nil, fmt.Errorf("parse server %q: %w", s, err)
		}
		port := a.Port
		if port == 0 {
			port = defaultDNSPort
		}
		ap := netip.AddrPortFrom(a.Addr, port)
		out = append(out, channel.ServerAddr{UDP: ap, TCP: ap})
	}
	return out, nil
}

func buildQuery(name string, qtype uint16) wire.Packet {
	return wire.Packet{
		Header: wire.Header{
			Flags: wire.RDFlag,
		},
		Questions: []wire.Question{
			{Name: name, Type: qtype, Class: uint16(wire.ClassIN)},
		},
	}
}

func printAnswer(pkt wire.Packet) {
	fmt.Printf(";; status: NOERROR, id: %d\n", pkt.Header.ID)
	fmt.Printf(";; ANSWER: %d, AUTHORITY: %d, ADDITIONAL: %d\n\n", pkt.Header.ANCount, pkt.Header.NSCount, pkt.Header.ARCount)
	for _, rr := range pkt.Answers {
		fmt.Printf("%s\t%d\t%s\n", rr.Name, rr.TTL, formatRData(rr))
	}
}

func formatRData(rr wire.Record) string {
	switch v := rr.Data.(type) {
	case string:
		return v
	case []byte:
		if ip, ok := rr.IPv4(); ok {
			return ip
		}
		if ip, ok := rr.IPv6(); ok {
			return ip
		}
		return fmt.Sprintf("% x", v)
	case wire.MXData:
		return fmt.Sprintf("%d %s", v.Preference, v.Exchange)
	default:
		return fmt.Sprintf("%v", v)
	}
}

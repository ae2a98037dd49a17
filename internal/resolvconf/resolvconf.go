// Package resolvconf discovers channel configuration the way the platform
// resolver would: environment variables, /etc/resolv.conf (or an injected
// equivalent), and built-in defaults, applied only where the caller hasn't
// already supplied a value (spec §6).
//
// Precedence, highest first: caller options (fields already set on the
// Options passed to Load) > LOCALDOMAIN/RES_OPTIONS environment variables >
// platform resolver configuration > built-in defaults. A field counts as
// "already set" using the same zero-value convention channel.Config uses —
// this package never distinguishes "explicitly zero" from "unset".
package resolvconf

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hydradns/aresgo/internal/wire"
)

// Options is the resolver policy this package assembles, independent of
// channel.Config so resolvconf has no import-time dependency on channel.
type Options struct {
	Servers        []string // address strings, server-address grammar (§6)
	SearchDomains  []string
	Sortlist       []SortlistItem
	Timeout        int // milliseconds
	Tries          int
	Ndots          int
	Rotate         bool
	EDNSPacketSize int
}

// Discoverer is spec §9's "platform discovery as a pluggable step": a
// source of resolver configuration beyond environment variables, with a
// default file-based implementation and room for Windows IP-helper,
// Android connectivity, or BSD libresolv equivalents.
type Discoverer interface {
	DiscoverServers() ([]string, error)
	DiscoverSearchDomains() ([]string, error)
	DiscoverOptions() (Options, error)
}

// FileDiscoverer reads resolver configuration from a resolv.conf-formatted
// file (default /etc/resolv.conf).
type FileDiscoverer struct {
	Path string
}

// NewFileDiscoverer returns a Discoverer reading path, or /etc/resolv.conf
// if path is empty.
func NewFileDiscoverer(path string) *FileDiscoverer {
	if path == "" {
		path = "/etc/resolv.conf"
	}
	return &FileDiscoverer{Path: path}
}

func (d *FileDiscoverer) open() (io.ReadCloser, error) {
	return os.Open(d.Path)
}

func (d *FileDiscoverer) DiscoverServers() ([]string, error) {
	opts, err := d.parse()
	if err != nil {
		return nil, err
	}
	return opts.Servers, nil
}

func (d *FileDiscoverer) DiscoverSearchDomains() ([]string, error) {
	opts, err := d.parse()
	if err != nil {
		return nil, err
	}
	return opts.SearchDomains, nil
}

func (d *FileDiscoverer) DiscoverOptions() (Options, error) {
	return d.parse()
}

// parse reads the resolv.conf grammar: "nameserver <addr>", "domain <name>"
// / "search <name>...", "sortlist <item>...", "options <token>...". Unknown
// directives and comment/blank lines are ignored, matching the original's
// tolerant line-oriented parser.
func (d *FileDiscoverer) parse() (Options, error) {
	f, err := d.open()
	if err != nil {
		return Options{}, err
	}
	defer f.Close()

	var opts Options
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		keyword, rest := fields[0], fields[1:]
		switch keyword {
		case "nameserver":
			opts.Servers = append(opts.Servers, rest[0])
		case "domain":
			opts.SearchDomains = []string{rest[0]}
		case "search":
			opts.SearchDomains = append([]string(nil), rest...)
		case "sortlist":
			items, err := ParseSortlist(strings.Join(rest, " "))
			if err == nil {
				opts.Sortlist = append(opts.Sortlist, items...)
			}
		case "options":
			applyOptionTokens(&opts, rest)
		}
	}
	if err := sc.Err(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Load assembles the final Options by merging, in descending precedence:
// caller, the LOCALDOMAIN/RES_OPTIONS environment variables, disc (platform
// discovery), then built-in defaults (spec §6). caller is passed by value
// and left unchanged; the merged Options are returned.
func Load(caller Options, disc Discoverer) (Options, error) {
	out := caller

	if ld := os.Getenv("LOCALDOMAIN"); ld != "" && len(out.SearchDomains) == 0 {
		out.SearchDomains = strings.Fields(ld)
	}
	if ro := os.Getenv("RES_OPTIONS"); ro != "" {
		applyOptionTokens(&out, strings.Fields(ro))
	}

	if disc != nil {
		if len(out.Servers) == 0 {
			if servers, err := disc.DiscoverServers(); err == nil {
				out.Servers = servers
			}
		}
		if len(out.SearchDomains) == 0 {
			if domains, err := disc.DiscoverSearchDomains(); err == nil {
				out.SearchDomains = domains
			}
		}
		if discOpts, err := disc.DiscoverOptions(); err == nil {
			mergeOptionFields(&out, discOpts)
		}
	}

	applyDefaults(&out)
	return out, nil
}

// applyDefaults fills every field resolvconf itself is responsible for
// (spec §6's built-in defaults); port, lookups and EDNS size beyond
// ednspsz are the channel's own concern.
func applyDefaults(o *Options) {
	if len(o.Servers) == 0 {
		o.Servers = []string{"127.0.0.1"}
	}
	if o.Timeout <= 0 {
		o.Timeout = 2000
	}
	if o.Tries <= 0 {
		o.Tries = 3
	}
	if o.Ndots <= 0 {
		o.Ndots = 1
	}
	if o.EDNSPacketSize <= 0 {
		o.EDNSPacketSize = wire.EDNSDefaultUDPPayloadSize
	}
}

// mergeOptionFields copies fields from src into dst wherever dst's field is
// still unset, the "lower-precedence source fills only unset fields" rule
// applied across two already-built Options values (platform discovery vs.
// whatever caller+env already decided).
func mergeOptionFields(dst *Options, src Options) {
	if len(dst.Servers) == 0 {
		dst.Servers = src.Servers
	}
	if len(dst.SearchDomains) == 0 {
		dst.SearchDomains = src.SearchDomains
	}
	if len(dst.Sortlist) == 0 {
		dst.Sortlist = src.Sortlist
	}
	if dst.Timeout == 0 {
		dst.Timeout = src.Timeout
	}
	if dst.Tries == 0 {
		dst.Tries = src.Tries
	}
	if dst.Ndots == 0 {
		dst.Ndots = src.Ndots
	}
	if !dst.Rotate {
		dst.Rotate = src.Rotate
	}
	if dst.EDNSPacketSize == 0 {
		dst.EDNSPacketSize = src.EDNSPacketSize
	}
}

// applyOptionTokens implements the RES_OPTIONS grammar (spec §6):
// whitespace-separated tokens from {ndots:N, retrans:MS, retry:N, rotate},
// each applied only if the field is still unset.
func applyOptionTokens(o *Options, tokens []string) {
	for _, tok := range tokens {
		switch {
		case strings.HasPrefix(tok, "ndots:"):
			if o.Ndots == 0 {
				if n, err := strconv.Atoi(tok[len("ndots:"):]); err == nil {
					o.Ndots = n
				}
			}
		case strings.HasPrefix(tok, "retrans:"):
			if o.Timeout == 0 {
				if n, err := strconv.Atoi(tok[len("retrans:"):]); err == nil {
					o.Timeout = n
				}
			}
		case strings.HasPrefix(tok, "retry:"):
			if o.Tries == 0 {
				if n, err := strconv.Atoi(tok[len("retry:"):]); err == nil {
					o.Tries = n
				}
			}
		case tok == "rotate":
			o.Rotate = true
		}
	}
}

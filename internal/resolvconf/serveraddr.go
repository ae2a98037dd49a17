package resolvconf

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// ServerAddr is a parsed server-address-string (spec §6): a family, an
// address and a port, where port 0 means "use the channel's default port".
type ServerAddr struct {
	Addr netip.Addr
	Port uint16
}

// fec0 is the deprecated IPv6 site-local block; the original resolver
// silently refuses to use addresses in it as name servers.
var fec0 = netip.MustParsePrefix("fec0::/10")

// ParseServerAddr parses one address per the grammar `addr` | `[addr]` |
// `[addr]:port`, where addr is an IPv4 dotted-quad or an IPv6 literal.
// Bracket form without a port is accepted (bare IPv6 literals need no
// brackets, but the grammar allows them unconditionally).
func ParseServerAddr(s string) (ServerAddr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ServerAddr{}, fmt.Errorf("resolvconf: empty server address")
	}

	var portStr string
	if strings.HasPrefix(s, "[") {
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return ServerAddr{}, fmt.Errorf("resolvconf: unterminated bracket in %q", s)
		}
		addrStr := s[1:end]
		rest := s[end+1:]
		if strings.HasPrefix(rest, ":") {
			portStr = rest[1:]
		} else if rest != "" {
			return ServerAddr{}, fmt.Errorf("resolvconf: trailing garbage after %q", s)
		}
		return buildServerAddr(addrStr, portStr)
	}

	// Bare form: could be "addr", "addr:port" (IPv4 only — an unbracketed
	// IPv6 literal contains colons that would be ambiguous with a port).
	if strings.Count(s, ":") == 1 {
		addrStr, p, _ := strings.Cut(s, ":")
		if addr, err := netip.ParseAddr(addrStr); err == nil && addr.Is4() {
			return buildServerAddr(addrStr, p)
		}
	}
	return buildServerAddr(s, "")
}

func buildServerAddr(addrStr, portStr string) (ServerAddr, error) {
	addr, err := netip.ParseAddr(addrStr)
	if err != nil {
		return ServerAddr{}, fmt.Errorf("resolvconf: invalid address %q: %w", addrStr, err)
	}
	if addr.Is6() && fec0.Contains(addr) {
		return ServerAddr{}, fmt.Errorf("resolvconf: %s is in the deprecated fec0::/10 range, refusing as a server", addr)
	}
	var port uint16
	if portStr != "" {
		n, err := strconv.ParseUint(portStr, 10, 16)
		if err != nil {
			return ServerAddr{}, fmt.Errorf("resolvconf: invalid port %q: %w", portStr, err)
		}
		port = uint16(n)
	}
	return ServerAddr{Addr: addr, Port: port}, nil
}

// String re-emits s in the grammar ParseServerAddr accepts, bracketing IPv6
// literals so the round-trip law in spec §8 holds: re-parsing yields the
// same (family, address, port).
func (s ServerAddr) String() string {
	addr := s.Addr.String()
	if s.Addr.Is6() {
		addr = "[" + addr + "]"
	}
	if s.Port == 0 {
		return addr
	}
	return fmt.Sprintf("%s:%d", addr, s.Port)
}

// ParseServerList splits a comma- or whitespace-separated list of server
// address strings and parses each (spec §6: "Lists of servers are
// separated by commas or whitespace").
func ParseServerList(s string) ([]ServerAddr, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	out := make([]ServerAddr, 0, len(fields))
	for _, f := range fields {
		sa, err := ParseServerAddr(f)
		if err != nil {
			return nil, err
		}
		out = append(out, sa)
	}
	return out, nil
}

// Package wire is the DNS wire-format adapter consumed by the resolver
// channel: it parses bytes into [Packet] values and encodes [Packet]
// values (or raw query buffers) back into bytes, including the TCP
// length-prefix framing and EDNS(0) OPT record handling. The channel
// treats this package as an opaque service per its external-interfaces
// contract — it never inspects wire bytes itself.
package wire

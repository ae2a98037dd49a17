package channel

import "net/netip"

// Server identifies one upstream name server (spec §3). It holds the live
// connections to that server — at most one of which is TCP — plus the
// monotonically increasing generation counter used to detect whether a
// retry would land back on the same TCP socket incarnation.
type Server struct {
	index int
	udp   netip.AddrPort
	tcp   netip.AddrPort // usually same address, configured TCP port

	conns         []*Connection
	tcpGeneration uint64
}

func newServer(index int, udpAddr, tcpAddr netip.AddrPort) *Server {
	return &Server{index: index, udp: udpAddr, tcp: tcpAddr}
}

// tcpConn returns the server's live TCP connection, or nil.
func (s *Server) tcpConn() *Connection {
	for _, c := range s.conns {
		if c.isTCP {
			return c
		}
	}
	return nil
}

// reusableUDPConn returns the front UDP connection eligible for another
// query: under quota (0 == unlimited) and not already torn down.
func (s *Server) reusableUDPConn(udpMaxQueries int) *Connection {
	for _, c := range s.conns {
		if c.isTCP {
			continue
		}
		if udpMaxQueries == 0 || c.totalQueries < udpMaxQueries {
			return c
		}
	}
	return nil
}

func (s *Server) addConn(c *Connection) {
	s.conns = append(s.conns, c)
}

func (s *Server) removeConn(target *Connection) {
	for i, c := range s.conns {
		if c == target {
			s.conns = append(s.conns[:i], s.conns[i+1:]...)
			return
		}
	}
}

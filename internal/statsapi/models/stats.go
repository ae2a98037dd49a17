package models

import "time"

// HealthResponse is the /health endpoint's body: liveness plus a resource
// sample (spec's ambient stack — not part of the resolver's own taxonomy).
type HealthResponse struct {
	Status      string  `json:"status"`
	Goroutines  int     `json:"goroutines"`
	RSSBytes    uint64  `json:"rss_bytes"`
	OpenFDs     int32   `json:"open_fds"`
	CPUPercent  float64 `json:"cpu_percent"`
	MemPercent  float64 `json:"mem_percent"`
	StoreHealth bool    `json:"store_health"`
}

// ServerInfo is one upstream server's introspection state.
type ServerInfo struct {
	Index         int    `json:"index"`
	UDP           string `json:"udp"`
	TCP           string `json:"tcp"`
	TCPGeneration uint64 `json:"tcp_generation"`
	Connections   int    `json:"connections"`
}

// StatsResponse is the /stats endpoint's body: the channel's current live
// state plus uptime, mirroring the teacher's ServerStatsResponse shape.
type StatsResponse struct {
	Uptime        string       `json:"uptime"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     time.Time    `json:"start_time"`
	LiveQueries   int          `json:"live_queries"`
	EDNSEnabled   bool         `json:"edns_enabled"`
	Servers       []ServerInfo `json:"servers"`
}

// QueryDiagnosticResponse is one recorded finished-query outcome.
type QueryDiagnosticResponse struct {
	Status     string    `json:"status"`
	TryCount   int       `json:"try_count"`
	Timeouts   int       `json:"timeouts"`
	Server     string    `json:"server"`
	UsedTCP    bool      `json:"used_tcp"`
	RecordedAt time.Time `json:"recorded_at"`
}

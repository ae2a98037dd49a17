package store

import (
	"fmt"
	"strings"
	"time"
)

// ConfigSnapshot is a recorded point-in-time channel configuration, for
// offline comparison across restarts/deploys.
type ConfigSnapshot struct {
	ID             int64
	Servers        []string
	TimeoutMS      int
	Tries          int
	Ndots          int
	Rotate         bool
	EDNSPacketSize int
	CreatedAt      time.Time
}

// SaveConfigSnapshot records the channel's current configuration.
func (s *Store) SaveConfigSnapshot(snap ConfigSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(
		`INSERT INTO config_snapshots (servers, timeout_ms, tries, ndots, rotate, edns_packet_size)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		strings.Join(snap.Servers, ","), snap.TimeoutMS, snap.Tries, snap.Ndots, boolToInt(snap.Rotate), snap.EDNSPacketSize,
	)
	if err != nil {
		return fmt.Errorf("store: save config snapshot: %w", err)
	}
	return nil
}

// LatestConfigSnapshot returns the most recently recorded snapshot, or
// ErrNoRows-wrapped error if none exist yet.
func (s *Store) LatestConfigSnapshot() (ConfigSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snap ConfigSnapshot
	var servers string
	var rotate int
	row := s.conn.QueryRow(
		`SELECT id, servers, timeout_ms, tries, ndots, rotate, edns_packet_size, created_at
		 FROM config_snapshots ORDER BY id DESC LIMIT 1`,
	)
	if err := row.Scan(&snap.ID, &servers, &snap.TimeoutMS, &snap.Tries, &snap.Ndots, &rotate, &snap.EDNSPacketSize, &snap.CreatedAt); err != nil {
		return ConfigSnapshot{}, fmt.Errorf("store: latest config snapshot: %w", err)
	}
	if servers != "" {
		snap.Servers = strings.Split(servers, ",")
	}
	snap.Rotate = rotate != 0
	return snap, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

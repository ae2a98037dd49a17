package store

import (
	"fmt"
	"time"
)

// QueryDiagnostic is one finished query's outcome (spec §7: status and
// timeouts are already part of the callback contract; try_count, server
// and whether TCP was used are recorded here for offline analysis only —
// this is a log of *outcomes*, not a cache of *answers*).
type QueryDiagnostic struct {
	Status     string
	TryCount   int
	Timeouts   int
	Server     string
	UsedTCP    bool
	RecordedAt time.Time
}

// RecordQuery appends one finished query's diagnostics.
func (s *Store) RecordQuery(d QueryDiagnostic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(
		`INSERT INTO query_diagnostics (status, try_count, timeouts, server, used_tcp)
		 VALUES (?, ?, ?, ?, ?)`,
		d.Status, d.TryCount, d.Timeouts, d.Server, boolToInt(d.UsedTCP),
	)
	if err != nil {
		return fmt.Errorf("store: record query diagnostic: %w", err)
	}
	return nil
}

// RecentQueries returns the most recently recorded diagnostics, newest
// first, bounded by limit.
func (s *Store) RecentQueries(limit int) ([]QueryDiagnostic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query(
		`SELECT status, try_count, timeouts, server, used_tcp, recorded_at
		 FROM query_diagnostics ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: recent queries: %w", err)
	}
	defer rows.Close()

	var out []QueryDiagnostic
	for rows.Next() {
		var d QueryDiagnostic
		var usedTCP int
		if err := rows.Scan(&d.Status, &d.TryCount, &d.Timeouts, &d.Server, &usedTCP, &d.RecordedAt); err != nil {
			return nil, fmt.Errorf("store: scan query diagnostic: %w", err)
		}
		d.UsedTCP = usedTCP != 0
		out = append(out, d)
	}
	return out, rows.Err()
}

// Package runstore persists a record of every preprocessing run and
// benchmark query in a local SQLite database, so cmd/ch-stats has
// something to plot without re-running contraction.
package runstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store wraps a SQLite connection opened in WAL mode, with the schema
// applied on open.
type Store struct {
	conn *sql.DB
}

// Open opens (creating if necessary) the database at path and applies
// the schema.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("runstore: open %s: %w", path, err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("runstore: set WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("runstore: enable foreign keys: %w", err)
	}
	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id               TEXT PRIMARY KEY,
	network_path     TEXT NOT NULL,
	num_nodes        INTEGER NOT NULL,
	num_edges        INTEGER NOT NULL,
	num_shortcuts    INTEGER NOT NULL,
	build_duration_ms INTEGER NOT NULL,
	created_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS queries (
	id              TEXT PRIMARY KEY,
	run_id          TEXT NOT NULL REFERENCES runs(id),
	src_node        INTEGER NOT NULL,
	dst_node        INTEGER NOT NULL,
	cost            INTEGER NOT NULL,
	hops            INTEGER NOT NULL,
	elapsed_micros  INTEGER NOT NULL,
	created_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_queries_run_id ON queries(run_id);
`
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("runstore: apply schema: %w", err)
	}
	return nil
}

// Run is one completed preprocessing run.
type Run struct {
	ID              string
	NetworkPath     string
	NumNodes        uint32
	NumEdges        int
	NumShortcuts    int
	BuildDurationMs int64
	CreatedAt       time.Time
}

// RecordRun inserts a completed preprocessing run and returns its
// generated ID.
func (s *Store) RecordRun(networkPath string, numNodes uint32, numEdges, numShortcuts int, buildDuration time.Duration) (string, error) {
	id := uuid.NewString()
	_, err := s.conn.Exec(
		`INSERT INTO runs (id, network_path, num_nodes, num_edges, num_shortcuts, build_duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, networkPath, numNodes, numEdges, numShortcuts, buildDuration.Milliseconds(), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("runstore: record run: %w", err)
	}
	return id, nil
}

// Query is one benchmarked shortest-path query.
type Query struct {
	RunID         string
	SrcNode       uint32
	DstNode       uint32
	Cost          uint32
	Hops          int
	ElapsedMicros int64
}

// RecordQuery inserts a single benchmarked query against a run.
func (s *Store) RecordQuery(q Query) error {
	_, err := s.conn.Exec(
		`INSERT INTO queries (id, run_id, src_node, dst_node, cost, hops, elapsed_micros, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), q.RunID, q.SrcNode, q.DstNode, q.Cost, q.Hops, q.ElapsedMicros, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("runstore: record query: %w", err)
	}
	return nil
}

// LatestRun returns the most recently recorded run, or nil if none
// exist yet.
func (s *Store) LatestRun() (*Run, error) {
	row := s.conn.QueryRow(
		`SELECT id, network_path, num_nodes, num_edges, num_shortcuts, build_duration_ms, created_at
		 FROM runs ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	)
	var r Run
	var createdAt string
	if err := row.Scan(&r.ID, &r.NetworkPath, &r.NumNodes, &r.NumEdges, &r.NumShortcuts, &r.BuildDurationMs, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("runstore: latest run: %w", err)
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("runstore: parse created_at: %w", err)
	}
	r.CreatedAt = t
	return &r, nil
}

// QueryLatencies returns every recorded elapsed-microsecond sample for
// a run, in insertion order — the raw series cmd/ch-stats histograms.
func (s *Store) QueryLatencies(runID string) ([]int64, error) {
	rows, err := s.conn.Query(`SELECT elapsed_micros FROM queries WHERE run_id = ? ORDER BY created_at, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("runstore: query latencies: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("runstore: scan latency: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

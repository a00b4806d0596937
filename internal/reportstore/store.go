// Package reportstore is the on-disk cache behind repeated verify runs:
// solver outcomes keyed by query hash and whole reports keyed by domain
// content hash, so an unchanged spec never re-solves a query it already
// settled. Backed by sqlite (CGo-free driver), one file per project.
package reportstore

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/specverify/verifier/internal/resolve"
)

const schema = `
CREATE TABLE IF NOT EXISTS queries (
	query_hash  TEXT PRIMARY KEY,
	solver      TEXT NOT NULL,
	status      TEXT NOT NULL,
	model       TEXT,
	reason      TEXT,
	duration_ms INTEGER NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS reports (
	id          TEXT PRIMARY KEY,
	domain_hash TEXT NOT NULL,
	report      TEXT NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS reports_domain_hash ON reports (domain_hash, created_at);
`

// Store is an open cache handle. It is constructed per run and closed
// when the run ends; nothing in it is shared process-wide.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache at path. Pass ":memory:"
// for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DomainHash is the content hash reports are keyed by.
func DomainHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// PutQuery records one solver outcome. An existing row for the same
// query hash is replaced — the solve is deterministic, so the newest
// row is as good as the oldest.
func (s *Store) PutQuery(ev resolve.SolverEvidence) error {
	model, err := json.Marshal(ev.Model)
	if err != nil {
		return fmt.Errorf("encoding model for %s: %w", ev.QueryHash, err)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO queries (query_hash, solver, status, model, reason, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.QueryHash, ev.Solver, ev.Status, string(model), ev.Reason, ev.DurationMs,
		ev.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("caching query %s: %w", ev.QueryHash, err)
	}
	return nil
}

// GetQuery looks up a previously-settled query by hash. Only definite
// outcomes are worth caching, so callers should skip PutQuery for
// unknown results; GetQuery returns whatever was stored.
func (s *Store) GetQuery(queryHash string) (*resolve.SolverEvidence, bool, error) {
	row := s.db.QueryRow(
		`SELECT solver, status, model, reason, duration_ms, created_at FROM queries WHERE query_hash = ?`,
		queryHash,
	)
	var ev resolve.SolverEvidence
	var model, createdAt string
	err := row.Scan(&ev.Solver, &ev.Status, &model, &ev.Reason, &ev.DurationMs, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cached query %s: %w", queryHash, err)
	}
	ev.QueryHash = queryHash
	if model != "" && model != "null" {
		if err := json.Unmarshal([]byte(model), &ev.Model); err != nil {
			return nil, false, fmt.Errorf("decoding cached model for %s: %w", queryHash, err)
		}
	}
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		ev.Timestamp = ts
	}
	return &ev, true, nil
}

// PutReport stores a full report under the domain's content hash,
// returning the stored report's generated id.
func (s *Store) PutReport(domainHash string, report interface{}) (string, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}
	id := uuid.NewString()
	_, err = s.db.Exec(
		`INSERT INTO reports (id, domain_hash, report, created_at) VALUES (?, ?, ?, ?)`,
		id, domainHash, string(data), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("caching report for %s: %w", domainHash, err)
	}
	return id, nil
}

// LatestReport returns the newest stored report for the given domain
// hash as raw JSON.
func (s *Store) LatestReport(domainHash string) ([]byte, bool, error) {
	row := s.db.QueryRow(
		`SELECT report FROM reports WHERE domain_hash = ? ORDER BY created_at DESC LIMIT 1`,
		domainHash,
	)
	var data string
	err := row.Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cached report for %s: %w", domainHash, err)
	}
	return []byte(data), true, nil
}

package runstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/dlevin/pitchforge/internal/pitch"
)

var ErrNotFound = errors.New("run not found")

// Store persists completed run envelopes to SQLite. Rows are write-once: a
// new run is a new row, and nothing is ever updated in place.
type Store struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	status       TEXT NOT NULL,
	source_chars INTEGER NOT NULL DEFAULT 0,
	started_at   TEXT NOT NULL,
	completed_at TEXT NOT NULL,
	envelope     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_completed_at ON runs (completed_at DESC);
`

func Open(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RunSummary is the listing row, without the envelope payload.
type RunSummary struct {
	RunID       string    `db:"run_id" json:"run_id"`
	Status      string    `db:"status" json:"status"`
	SourceChars int       `db:"source_chars" json:"source_chars"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

func (s *Store) Save(env pitch.ResponseEnvelope, sourceChars int) error {
	blob, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO runs (run_id, status, source_chars, started_at, completed_at, envelope) VALUES (?, ?, ?, ?, ?, ?)`,
		env.RunID,
		string(env.Status),
		sourceChars,
		env.Metadata.StartedAt.UTC().Format(time.RFC3339Nano),
		env.Metadata.CompletedAt.UTC().Format(time.RFC3339Nano),
		string(blob),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *Store) Get(runID string) (pitch.ResponseEnvelope, error) {
	var blob string
	err := s.db.Get(&blob, `SELECT envelope FROM runs WHERE run_id = ?`, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return pitch.ResponseEnvelope{}, ErrNotFound
	}
	if err != nil {
		return pitch.ResponseEnvelope{}, fmt.Errorf("select run: %w", err)
	}
	var env pitch.ResponseEnvelope
	if err := json.Unmarshal([]byte(blob), &env); err != nil {
		return pitch.ResponseEnvelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return env, nil
}

func (s *Store) List(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT run_id, status, source_chars, started_at, completed_at FROM runs ORDER BY completed_at DESC, run_id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := []RunSummary{}
	for rows.Next() {
		var r RunSummary
		var started, completed string
		if err := rows.Scan(&r.RunID, &r.Status, &r.SourceChars, &started, &completed); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.CompletedAt, _ = time.Parse(time.RFC3339Nano, completed)
		out = append(out, r)
	}
	return out, rows.Err()
}

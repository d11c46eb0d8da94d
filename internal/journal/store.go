// Package journal keeps a SQLite history of notable play events. It is a log
// for display only; nothing is ever restored from it.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Entry is one journal row.
type Entry struct {
	ID        uuid.UUID       `json:"id"`
	Kind      string          `json:"kind"`
	Summary   string          `json:"summary"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// KindCount is one CountByKind row.
type KindCount struct {
	Kind  string `json:"kind"`
	Count int64  `json:"count"`
}

type Store struct {
	db *sql.DB
}

// New opens/creates a SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite is not concurrent for writes
	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS journal_entries (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			summary TEXT NOT NULL DEFAULT '',
			payload TEXT,
			created_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_journal_created ON journal_entries(created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_journal_kind ON journal_entries(kind);`,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// NewEntry builds an entry with a fresh id, marshalling payload to JSON.
func NewEntry(kind, summary string, payload any) (Entry, error) {
	e := Entry{ID: uuid.New(), Kind: kind, Summary: summary, CreatedAt: time.Now().UTC()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Entry{}, fmt.Errorf("journal: marshal payload for %s: %w", kind, err)
		}
		e.Payload = raw
	}
	return e, nil
}

// Record inserts a single entry.
func (s *Store) Record(ctx context.Context, e Entry) error {
	return s.RecordBatch(ctx, []Entry{e})
}

// RecordBatch inserts entries in one transaction.
func (s *Store) RecordBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal: begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO journal_entries(id, kind, summary, payload, created_at) VALUES(?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("journal: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now().UTC()
		}
		var payload any
		if len(e.Payload) > 0 {
			payload = string(e.Payload)
		}
		if _, err := stmt.ExecContext(ctx, e.ID.String(), e.Kind, e.Summary, payload, e.CreatedAt); err != nil {
			tx.Rollback()
			return fmt.Errorf("journal: insert %s: %w", e.Kind, err)
		}
	}
	return tx.Commit()
}

// Recent returns the newest entries first. limit is clamped to [1, 500].
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, summary, payload, created_at
		FROM journal_entries
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: query recent: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e       Entry
			idStr   string
			payload sql.NullString
		)
		if err := rows.Scan(&idStr, &e.Kind, &e.Summary, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("journal: bad id %q: %w", idStr, err)
		}
		e.ID = id
		if payload.Valid {
			e.Payload = json.RawMessage(payload.String)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountByKind returns how many entries exist per kind, most frequent first.
func (s *Store) CountByKind(ctx context.Context) ([]KindCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*) FROM journal_entries
		GROUP BY kind ORDER BY COUNT(*) DESC, kind ASC`)
	if err != nil {
		return nil, fmt.Errorf("journal: count by kind: %w", err)
	}
	defer rows.Close()

	var out []KindCount
	for rows.Next() {
		var kc KindCount
		if err := rows.Scan(&kc.Kind, &kc.Count); err != nil {
			return nil, fmt.Errorf("journal: scan count: %w", err)
		}
		out = append(out, kc)
	}
	return out, rows.Err()
}

// Package ledger remembers which documents have been ingested, keyed by
// output path and content hash, so unchanged files can be skipped on the
// next batch run.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one ingested document.
type Entry struct {
	RelPath     string
	ContentHash string
	Source      string
	Records     int
	IngestedAt  time.Time
}

// Ledger is a SQLite-backed ingest log.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger database at path with WAL mode enabled.
func Open(ctx context.Context, path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection serializes writers from concurrent workers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Ledger{db: db}, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS ingested (
	rel_path TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL,
	source TEXT NOT NULL,
	records INTEGER NOT NULL,
	ingested_at TEXT NOT NULL
);`)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// Seen reports whether relPath was last ingested with the same content hash.
func (l *Ledger) Seen(ctx context.Context, relPath, contentHash string) (bool, error) {
	var stored string
	err := l.db.QueryRowContext(ctx,
		"SELECT content_hash FROM ingested WHERE rel_path = ?", relPath).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query ledger: %w", err)
	}
	return stored == contentHash, nil
}

// Mark records a successful ingestion, replacing any earlier entry.
func (l *Ledger) Mark(ctx context.Context, e Entry) error {
	if e.IngestedAt.IsZero() {
		e.IngestedAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx, `
INSERT INTO ingested (rel_path, content_hash, source, records, ingested_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(rel_path) DO UPDATE SET
	content_hash = excluded.content_hash,
	source = excluded.source,
	records = excluded.records,
	ingested_at = excluded.ingested_at`,
		e.RelPath, e.ContentHash, e.Source, e.Records, e.IngestedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("update ledger: %w", err)
	}
	return nil
}

// Forget drops the entry for relPath so it is ingested again.
func (l *Ledger) Forget(ctx context.Context, relPath string) error {
	_, err := l.db.ExecContext(ctx, "DELETE FROM ingested WHERE rel_path = ?", relPath)
	return err
}

// Reset clears every entry, e.g. after the collection was dropped.
func (l *Ledger) Reset(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, "DELETE FROM ingested")
	return err
}

// Entries lists all entries ordered by path.
func (l *Ledger) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT rel_path, content_hash, source, records, ingested_at FROM ingested ORDER BY rel_path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.RelPath, &e.ContentHash, &e.Source, &e.Records, &at); err != nil {
			return nil, err
		}
		if e.IngestedAt, err = time.Parse(time.RFC3339, at); err != nil {
			return nil, fmt.Errorf("parse ingested_at %q: %w", at, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Package history keeps a local record of every record delimiter that was
// successfully stored for a dataset.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgallion1/xmlray/internal/structure"

	_ "modernc.org/sqlite"
)

// Entry is one stored delimiter choice.
type Entry struct {
	ID        int64               `json:"id"`
	Dataset   string              `json:"dataset"`
	Delimiter structure.Delimiter `json:"delimiter"`
	CreatedAt time.Time           `json:"created_at"`
}

// Store is an SQLite-backed delimiter history.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path. Use
// ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
		PRAGMA synchronous = NORMAL;

		CREATE TABLE IF NOT EXISTS delimiters (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			dataset TEXT NOT NULL,
			record_root TEXT NOT NULL,
			unique_id TEXT NOT NULL,
			record_count INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_delimiters_dataset ON delimiters(dataset, id);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("setup history: %w", err)
	}
	return &Store{db: db}, nil
}

// Record appends a stored delimiter for dataset.
func (s *Store) Record(ctx context.Context, dataset string, d structure.Delimiter) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO delimiters (dataset, record_root, unique_id, record_count, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, dataset, d.RecordRoot, d.UniqueID, d.RecordCount, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("record delimiter: %w", err)
	}
	return nil
}

// List returns the history of dataset, newest first, at most limit entries
// (all when limit <= 0).
func (s *Store) List(ctx context.Context, dataset string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, dataset, record_root, unique_id, record_count, created_at
		FROM delimiters
		WHERE dataset = ?
		ORDER BY id DESC
		LIMIT ?
	`, dataset, limit)
	if err != nil {
		return nil, fmt.Errorf("list delimiters: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.ID, &e.Dataset, &e.Delimiter.RecordRoot, &e.Delimiter.UniqueID, &e.Delimiter.RecordCount, &created); err != nil {
			return nil, fmt.Errorf("scan delimiter: %w", err)
		}
		e.CreatedAt = time.UnixMilli(created).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Latest returns the most recent delimiter stored for dataset.
func (s *Store) Latest(ctx context.Context, dataset string) (Entry, bool, error) {
	entries, err := s.List(ctx, dataset, 1)
	if err != nil || len(entries) == 0 {
		return Entry{}, false, err
	}
	return entries[0], true, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Package store persists the line store and the file table in SQLite.
//
// Every line of every indexed revision is stored once in the lines table;
// files records a revision as the ordered keys of its lines plus its
// lineage. Rows are only ever added.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS lines (
	line BLOB PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS files (
	hash TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	rowids TEXT NOT NULL,
	parents TEXT NOT NULL DEFAULT 'none',
	trailing_newline INTEGER NOT NULL DEFAULT 1,
	indexed_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_files_parents ON files(parents);
`

// DB is an open store.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens or creates the store at path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps ":memory:" stores and the one-writer
	// model consistent.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &DB{db: db, path: path}, nil
}

// Path returns the path the store was opened with.
func (d *DB) Path() string {
	return d.path
}

// Close closes the store.
func (d *DB) Close() error {
	return d.db.Close()
}

// Begin starts the single transaction of an invocation. All reads and
// writes go through it; nothing is visible to other sessions until
// Commit.
func (d *DB) Begin(ctx context.Context) (*Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Tx is a store session.
type Tx struct {
	tx   *sql.Tx
	done bool
}

// Commit makes the session's writes durable.
func (t *Tx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback discards the session's writes. It is a no-op after Commit, so
// it can be deferred.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback()
}

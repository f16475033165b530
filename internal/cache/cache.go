// Package cache persists parsed file syntax to a SQLite snapshot so repeat
// loads of an unchanged repository skip tree-sitter entirely. A snapshot
// is keyed by the repository's HEAD commit hash; when the hash moves, the
// whole snapshot is invalidated and rewritten after the next full load.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jward/graft/internal/graph"
)

// Cache is the SQLite-backed snapshot store.
type Cache struct {
	db *sql.DB
}

// Entry is one cached file: its identity and extracted syntax.
type Entry struct {
	Path     string
	Language string
	Hash     string
	Source   string
	Syntax   *graph.FileSyntax
}

// Open opens (or creates) a snapshot database at dbPath.
func Open(dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open snapshot database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping snapshot database: %w", err)
	}
	c := &Cache{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) migrate() error {
	_, err := c.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate snapshot schema: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS meta (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshot_files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  language        TEXT NOT NULL,
  hash            TEXT NOT NULL,
  source          TEXT NOT NULL,
  syntax          TEXT NOT NULL,
  cached_at       TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_snapshot_files_hash ON snapshot_files(hash);
`

// CommitHash returns the commit hash the current snapshot was built at,
// or "" when the snapshot is empty.
func (c *Cache) CommitHash() (string, error) {
	var v string
	err := c.db.QueryRow("SELECT value FROM meta WHERE key = 'commit_hash'").Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read snapshot commit hash: %w", err)
	}
	return v, nil
}

// Lookup returns the cached entry for path when its content hash matches,
// or nil on a miss. Callers must have validated CommitHash first.
func (c *Cache) Lookup(path, hash string) (*Entry, error) {
	var e Entry
	var syntaxJSON string
	err := c.db.QueryRow(
		"SELECT path, language, hash, source, syntax FROM snapshot_files WHERE path = ? AND hash = ?",
		path, hash,
	).Scan(&e.Path, &e.Language, &e.Hash, &e.Source, &syntaxJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup snapshot entry %s: %w", path, err)
	}
	e.Syntax = &graph.FileSyntax{}
	if err := json.Unmarshal([]byte(syntaxJSON), e.Syntax); err != nil {
		return nil, fmt.Errorf("decode snapshot syntax for %s: %w", path, err)
	}
	return &e, nil
}

// Save replaces the snapshot with entries keyed at commitHash, in a single
// transaction.
func (c *Cache) Save(commitHash string, entries []Entry) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("save snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM snapshot_files"); err != nil {
		return fmt.Errorf("save snapshot: clear: %w", err)
	}
	if _, err := tx.Exec(
		"INSERT INTO meta(key, value) VALUES('commit_hash', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		commitHash,
	); err != nil {
		return fmt.Errorf("save snapshot: meta: %w", err)
	}
	now := time.Now()
	for _, e := range entries {
		syntaxJSON, err := json.Marshal(e.Syntax)
		if err != nil {
			return fmt.Errorf("save snapshot: encode %s: %w", e.Path, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO snapshot_files(path, language, hash, source, syntax, cached_at) VALUES(?, ?, ?, ?, ?, ?)",
			e.Path, e.Language, e.Hash, e.Source, string(syntaxJSON), now,
		); err != nil {
			return fmt.Errorf("save snapshot: insert %s: %w", e.Path, err)
		}
	}
	return tx.Commit()
}

package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// DB wraps the local SQLite database holding credentials and drafts.
type DB struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex

	seal *sealer
}

// Open opens or creates the database at dbPath. keyPath locates the seal
// key used for the credential token at rest; it is created on first use.
func Open(dbPath, keyPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL mode for better concurrency between autosave writes and reads
	if _, err := db.Exec(`
		PRAGMA foreign_keys = ON;
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS _meta (
			key   TEXT PRIMARY KEY,
			value TEXT
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create meta table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS credentials (
			id         INTEGER PRIMARY KEY CHECK (id = 1),
			owner      TEXT NOT NULL,
			repo       TEXT NOT NULL,
			token      BLOB NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create credentials table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS drafts (
			path        TEXT PRIMARY KEY,
			body        TEXT NOT NULL,
			frontmatter TEXT NOT NULL DEFAULT '{}',
			saved_at    INTEGER NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create drafts table: %w", err)
	}

	seal, err := newSealer(keyPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init token seal: %w", err)
	}

	return &DB{db: db, path: dbPath, seal: seal}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

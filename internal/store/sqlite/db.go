// Package sqlite is the durable store backed by modernc.org/sqlite.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists facts and answers in a SQLite database
type Store struct {
	conn *sql.DB
	path string
	now  func() time.Time
}

// Open opens or creates a SQLite database at the given path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return initialize(conn, path)
}

// OpenInMemory creates an in-memory database (for testing)
func OpenInMemory() (*Store, error) {
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	// Every pooled connection would otherwise get its own empty database
	conn.SetMaxOpenConns(1)
	return initialize(conn, ":memory:")
}

func initialize(conn *sql.DB, path string) (*Store, error) {
	if _, err := conn.Exec(Schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{conn: conn, path: path, now: time.Now}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// Package audit records mutating file-tool invocations in a SQLite store so
// an administrator can reconstruct what a remote caller changed and when.
package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/renehagen/ha-mcp-file-server/internal/logger"
	_ "modernc.org/sqlite"
)

// Entry is one recorded mutation.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Tool      string    `json:"tool"`
	Path      string    `json:"path"`
	RequestID string    `json:"request_id,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// Store persists audit entries.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the audit database under dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "audit.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate audit database: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		tool TEXT NOT NULL,
		path TEXT NOT NULL,
		request_id TEXT,
		success INTEGER NOT NULL,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_entries_timestamp ON entries(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record persists an entry, filling in ID and timestamp when absent, and
// mirrors it to the structured log.
func (s *Store) Record(entry *Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO entries (id, timestamp, tool, path, request_id, success, error) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Timestamp, entry.Tool, entry.Path, entry.RequestID, entry.Success, entry.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	logger.Info("AUDIT tool=%s path=%s request_id=%s success=%t", entry.Tool, entry.Path, entry.RequestID, entry.Success)
	return nil
}

// Recent returns the newest entries, most recent first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		`SELECT id, timestamp, tool, path, request_id, success, error FROM entries ORDER BY timestamp DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var requestID, errMsg sql.NullString
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Tool, &e.Path, &requestID, &e.Success, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.RequestID = requestID.String
		e.Error = errMsg.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes entries older than the retention window and returns the
// number removed.
func (s *Store) Prune(retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	result, err := s.db.Exec(`DELETE FROM entries WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit entries: %w", err)
	}
	return result.RowsAffected()
}

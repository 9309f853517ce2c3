// Package files implements sandboxed file operations for the MCP tool
// surface: listing, reading, filtered reads for large logs, writes, directory
// creation and deletion. Every operation resolves its path through the
// sandbox guard before touching storage.
package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/renehagen/ha-mcp-file-server/internal/logger"
	"github.com/renehagen/ha-mcp-file-server/internal/sandbox"
)

// Policy holds the immutable access policy for file operations.
type Policy struct {
	ReadOnly    bool
	MaxFileSize int64 // bytes
}

// Store performs sandboxed file operations. It is stateless aside from the
// shared immutable guard and policy, so a single Store serves all requests
// concurrently. Two concurrent writers to the same path race at OS
// granularity; last write wins. That is accepted behavior, not a defect.
type Store struct {
	guard  *sandbox.Guard
	policy Policy
}

// NewStore creates a file store bound to the given sandbox and policy.
func NewStore(guard *sandbox.Guard, policy Policy) *Store {
	return &Store{guard: guard, policy: policy}
}

// Policy returns the store's access policy.
func (s *Store) Policy() Policy {
	return s.policy
}

// Entry describes one directory entry. Size is nil for directories, matching
// the wire format clients already consume.
type Entry struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Type     string    `json:"type"` // "file" or "directory"
	Size     *int64    `json:"size"`
	Modified time.Time `json:"modified"`
}

// List returns the entries of a directory, directories first, then sorted by
// name. Entries whose metadata cannot be read are logged and skipped; partial
// results are preferred over total failure.
func (s *Store) List(path string) ([]Entry, error) {
	dir, err := s.guard.Resolve(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, path)
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		fi, err := de.Info()
		if err != nil {
			logger.Info("Skipping unreadable entry %s: %v", de.Name(), err)
			continue
		}

		entry := Entry{
			Name:     de.Name(),
			Path:     filepath.Join(dir, de.Name()),
			Modified: fi.ModTime(),
		}
		if de.IsDir() {
			entry.Type = "directory"
		} else {
			entry.Type = "file"
			size := fi.Size()
			entry.Size = &size
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Type != entries[j].Type {
			return entries[i].Type == "directory"
		}
		return entries[i].Name < entries[j].Name
	})

	return entries, nil
}

// Read returns the text content of a file. The size limit is checked before
// reading, not after. Content that is not valid UTF-8 yields a placeholder
// describing the byte length; binary content never fails the operation.
func (s *Store) Read(path string) (string, error) {
	file, err := s.guard.Resolve(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(file)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotAFile, path)
	}
	if info.Size() > s.policy.MaxFileSize {
		return "", fmt.Errorf("%w: maximum size %d bytes", ErrTooLarge, s.policy.MaxFileSize)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	if !utf8.Valid(data) {
		return fmt.Sprintf("[Binary file, %d bytes]", len(data)), nil
	}
	return string(data), nil
}

// Write stores content at path, creating parent directories as needed and
// overwriting any existing file.
func (s *Store) Write(path, content string) error {
	if s.policy.ReadOnly {
		return ErrReadOnly
	}

	file, err := s.guard.Resolve(path)
	if err != nil {
		return err
	}

	if int64(len(content)) > s.policy.MaxFileSize {
		return fmt.Errorf("%w: maximum size %d bytes", ErrTooLarge, s.policy.MaxFileSize)
	}

	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", path, err)
	}

	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	logger.Info("File written: %s", file)
	return nil
}

// CreateDirectory creates a new directory, including intermediate parents.
// Fails if the path already exists.
func (s *Store) CreateDirectory(path string) error {
	if s.policy.ReadOnly {
		return ErrReadOnly
	}

	dir, err := s.guard.Resolve(path)
	if err != nil {
		return err
	}

	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}

	logger.Info("Directory created: %s", dir)
	return nil
}

// Delete removes a file, or an empty directory. Non-empty directories are
// refused; there is no recursive delete, a deliberate safety limit.
func (s *Store) Delete(path string) error {
	if s.policy.ReadOnly {
		return ErrReadOnly
	}

	target, err := s.guard.Resolve(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(target)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if info.IsDir() {
		entries, err := os.ReadDir(target)
		if err != nil {
			return fmt.Errorf("failed to read directory %s: %w", path, err)
		}
		if len(entries) > 0 {
			return fmt.Errorf("%w: %s", ErrNotEmpty, path)
		}
		if err := os.Remove(target); err != nil {
			return fmt.Errorf("failed to delete directory %s: %w", path, err)
		}
		logger.Info("Directory deleted: %s", target)
		return nil
	}

	if err := os.Remove(target); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", path, err)
	}
	logger.Info("File deleted: %s", target)
	return nil
}

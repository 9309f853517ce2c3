// Package search implements bounded concurrent content search over a
// sandboxed directory tree.
package search

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/renehagen/ha-mcp-file-server/internal/files"
	"github.com/renehagen/ha-mcp-file-server/internal/logger"
	"github.com/renehagen/ha-mcp-file-server/internal/metrics"
	"github.com/renehagen/ha-mcp-file-server/internal/sandbox"
)

const (
	// DefaultMaxResults caps matching files when the caller does not set a
	// limit.
	DefaultMaxResults = 100
	// DefaultWorkers bounds concurrent file scans. Sized independently of
	// max_results to cap open descriptors and memory, not completeness.
	DefaultWorkers = 8
	// DefaultPerFileTimeout is the budget for scanning a single file. One
	// slow or huge file must not stall the whole search.
	DefaultPerFileTimeout = 5 * time.Second

	// maxMatchesPerFile limits line matches collected per file.
	maxMatchesPerFile = 5
	// maxExcerptLen trims each matching line in the result.
	maxExcerptLen = 100
)

// LineMatch is one matching line within a file.
type LineMatch struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Match is one matching file with up to maxMatchesPerFile line matches.
type Match struct {
	Path    string      `json:"path"`
	Matches []LineMatch `json:"matches"`
}

// Result is the outcome of a search.
type Result struct {
	Matches []Match `json:"matches"`
	// Incomplete is set when the search was cancelled or timed out before
	// all candidate files were scanned; Matches then holds whatever was
	// collected up to that point.
	Incomplete bool `json:"incomplete,omitempty"`
}

// Searcher scans files under a sandboxed root for a text pattern.
type Searcher struct {
	guard          *sandbox.Guard
	maxFileSize    int64
	workers        int
	perFileTimeout time.Duration
}

// Options configures a Searcher.
type Options struct {
	MaxFileSize    int64 // files larger than this are skipped, not errored
	Workers        int
	PerFileTimeout time.Duration
}

// NewSearcher creates a Searcher bound to the given sandbox.
func NewSearcher(guard *sandbox.Guard, opts Options) *Searcher {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	perFileTimeout := opts.PerFileTimeout
	if perFileTimeout <= 0 {
		perFileTimeout = DefaultPerFileTimeout
	}
	return &Searcher{
		guard:          guard,
		maxFileSize:    opts.MaxFileSize,
		workers:        workers,
		perFileTimeout: perFileTimeout,
	}
}

// Search scans files under root for a case-insensitive substring pattern and
// returns at most maxResults matching files in enumeration order.
//
// Candidate enumeration stops after 2×maxResults files. This trades
// completeness for latency: a match deeper in the tree than the candidate cap
// will not be found even if fewer than maxResults files matched. Known
// approximation, kept deliberately.
//
// Symlinks are not followed during enumeration, which both prevents cycle
// loops and keeps scanned content inside the sandbox.
func (s *Searcher) Search(ctx context.Context, root, pattern string, maxResults int) (*Result, error) {
	dir, err := s.guard.Resolve(root)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", files.ErrNotFound, root)
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}

	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	candidates := s.enumerate(ctx, dir, 2*maxResults)
	metrics.SearchFilesScanned.Add(float64(len(candidates)))

	// Scan candidates with bounded fan-out. Results land in a slice indexed
	// by candidate position so output order stays deterministic for a
	// stable directory snapshot.
	found := make([]*Match, len(candidates))
	patternLower := strings.ToLower(pattern)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, path := range candidates {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fileCtx, cancel := context.WithTimeout(gctx, s.perFileTimeout)
			defer cancel()

			match, err := s.scanFile(fileCtx, path, patternLower)
			if err != nil {
				// Per-file failures (permission, transient I/O, timeout)
				// are logged and the file is skipped.
				logger.Info("Search skipping %s: %v", path, err)
				return nil
			}
			found[i] = match
			return nil
		})
	}
	_ = g.Wait()

	result := &Result{Matches: make([]Match, 0, maxResults)}
	for _, m := range found {
		if m == nil {
			continue
		}
		if len(result.Matches) >= maxResults {
			break
		}
		result.Matches = append(result.Matches, *m)
	}
	if ctx.Err() != nil {
		result.Incomplete = true
	}
	return result, nil
}

// enumerate walks the tree collecting regular files up to the candidate cap.
// Oversized and special files are skipped silently; unreadable directories
// are logged and skipped.
func (s *Searcher) enumerate(ctx context.Context, dir string, limit int) []string {
	var candidates []string

	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return fs.SkipAll
		}
		if err != nil {
			logger.Info("Search cannot enter %s: %v", path, err)
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if s.maxFileSize > 0 && info.Size() > s.maxFileSize {
			return nil
		}

		candidates = append(candidates, path)
		if len(candidates) >= limit {
			return fs.SkipAll
		}
		return nil
	})

	return candidates
}

// scanFile reads path line by line and collects up to maxMatchesPerFile
// matching lines. Returns nil when the file does not match.
func (s *Searcher) scanFile(ctx context.Context, path, patternLower string) (*Match, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var matches []LineMatch
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := scanner.Text()
		if !strings.Contains(strings.ToLower(line), patternLower) {
			continue
		}

		// Truncate on rune boundaries so multi-byte characters near the
		// cut stay valid UTF-8.
		excerpt := strings.TrimSpace(line)
		if len(excerpt) > maxExcerptLen {
			if runes := []rune(excerpt); len(runes) > maxExcerptLen {
				excerpt = string(runes[:maxExcerptLen])
			}
		}
		matches = append(matches, LineMatch{Line: lineNo, Text: excerpt})
		if len(matches) >= maxMatchesPerFile {
			break
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, bufio.ErrTooLong) {
		return nil, err
	}

	if len(matches) == 0 {
		return nil, nil
	}
	return &Match{Path: path, Matches: matches}, nil
}

package files

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// DefaultMaxLines caps filtered-read results when the caller does not set a
// limit.
const DefaultMaxLines = 1000

// maxScanLine bounds the working set for a single line during streaming.
const maxScanLine = 1024 * 1024

// maxTailLines bounds the tail ring buffer so a hostile tail_lines value
// cannot force a huge allocation.
const maxTailLines = 100000

// FilterOptions controls a filtered read.
type FilterOptions struct {
	// Pattern keeps only lines containing this substring, case-insensitive.
	// Empty means no filtering.
	Pattern string
	// TailLines restricts the source window to the last N lines of the
	// file before filtering. Zero means the whole file.
	TailLines int
	// MaxLines caps the number of returned lines. Zero means
	// DefaultMaxLines.
	MaxLines int
}

// FilteredResult is the outcome of a filtered read.
type FilteredResult struct {
	Content       string `json:"content"`
	LinesReturned int    `json:"lines_returned"`
	WindowLines   int    `json:"window_lines"`
	Truncated     bool   `json:"truncated"`
}

// ReadFiltered reads a file line by line, optionally restricted to a tail
// window and a case-insensitive substring filter, capped at MaxLines.
//
// Unlike Read, the whole-file size limit does not apply: this is the access
// path for large logs. The working set stays bounded regardless of file size:
// at most TailLines buffered lines when tailing, at most MaxLines collected
// lines otherwise, and one scan line at a time.
func (s *Store) ReadFiltered(ctx context.Context, path string, opts FilterOptions) (*FilteredResult, error) {
	file, err := s.guard.Resolve(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(file)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotAFile, path)
	}

	maxLines := opts.MaxLines
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxScanLine)

	if opts.TailLines > 0 {
		tail := opts.TailLines
		if tail > maxTailLines {
			tail = maxTailLines
		}
		return tailFiltered(ctx, scanner, opts.Pattern, tail, maxLines)
	}
	return streamFiltered(ctx, scanner, opts.Pattern, maxLines)
}

// tailFiltered keeps a ring buffer of the last tailLines lines, then applies
// the filter to that window only.
func tailFiltered(ctx context.Context, scanner *bufio.Scanner, pattern string, tailLines, maxLines int) (*FilteredResult, error) {
	ring := make([]string, tailLines)
	total := 0

	for scanner.Scan() {
		ring[total%tailLines] = scanner.Text()
		total++
		if total%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan file: %w", err)
	}

	// Reassemble the window in file order.
	windowSize := total
	if windowSize > tailLines {
		windowSize = tailLines
	}
	window := make([]string, 0, windowSize)
	for i := total - windowSize; i < total; i++ {
		window = append(window, ring[i%tailLines])
	}

	patternLower := strings.ToLower(pattern)
	kept := make([]string, 0, windowSize)
	truncated := false
	for _, line := range window {
		if pattern != "" && !strings.Contains(strings.ToLower(line), patternLower) {
			continue
		}
		if len(kept) >= maxLines {
			truncated = true
			break
		}
		kept = append(kept, line)
	}

	return &FilteredResult{
		Content:       strings.Join(kept, "\n"),
		LinesReturned: len(kept),
		WindowLines:   windowSize,
		Truncated:     truncated,
	}, nil
}

// streamFiltered scans the whole file, collecting matching lines up to
// maxLines while continuing to count the window size.
func streamFiltered(ctx context.Context, scanner *bufio.Scanner, pattern string, maxLines int) (*FilteredResult, error) {
	patternLower := strings.ToLower(pattern)
	kept := make([]string, 0, 64)
	windowLines := 0
	truncated := false

	for scanner.Scan() {
		windowLines++
		if windowLines%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := scanner.Text()
		if pattern != "" && !strings.Contains(strings.ToLower(line), patternLower) {
			continue
		}
		if len(kept) >= maxLines {
			truncated = true
			continue
		}
		kept = append(kept, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan file: %w", err)
	}

	return &FilteredResult{
		Content:       strings.Join(kept, "\n"),
		LinesReturned: len(kept),
		WindowLines:   windowLines,
		Truncated:     truncated,
	}, nil
}

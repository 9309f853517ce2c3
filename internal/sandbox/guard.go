// Package sandbox confines filesystem access to an allow-list of root
// directories. Every file tool resolves its path through a Guard before
// touching storage.
package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathViolation indicates a path that resolves outside all allowed roots.
var ErrPathViolation = errors.New("path is not within allowed directories")

// Guard validates caller-supplied paths against a fixed set of allowed roots.
// The root set is resolved once at construction and never mutated, so a Guard
// is safe for concurrent use without locking.
type Guard struct {
	roots []string
}

// NewGuard creates a Guard from the given root directories. Each root is
// resolved to an absolute, symlink-free form. Roots that do not exist are
// rejected; a sandbox anchored on a missing directory is a misconfiguration.
func NewGuard(roots []string) (*Guard, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("at least one allowed directory is required")
	}

	resolved := make([]string, 0, len(roots))
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed directory %s: %w", root, err)
		}
		canonical, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return nil, fmt.Errorf("cannot resolve allowed directory %s: %w", root, err)
		}
		info, err := os.Stat(canonical)
		if err != nil {
			return nil, fmt.Errorf("cannot stat allowed directory %s: %w", root, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("allowed directory %s is not a directory", root)
		}
		resolved = append(resolved, canonical)
	}

	return &Guard{roots: resolved}, nil
}

// Roots returns the canonical allowed roots.
func (g *Guard) Roots() []string {
	out := make([]string, len(g.roots))
	copy(out, g.roots)
	return out
}

// Resolve canonicalizes the requested path and verifies it falls under one of
// the allowed roots. Symlinks are resolved before the containment check, so a
// link inside a root cannot escape it. The path itself need not exist: the
// deepest existing ancestor is resolved and the remaining segments are
// appended lexically, which is what write/create operations require. A
// dangling symlink is not a missing path and is refused.
//
// The check fails closed: any resolution error yields ErrPathViolation.
func (g *Guard) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrPathViolation)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrPathViolation, path)
	}
	abs = filepath.Clean(abs)

	canonical, err := resolveExisting(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrPathViolation, path)
	}

	for _, root := range g.roots {
		if canonical == root || strings.HasPrefix(canonical, root+string(filepath.Separator)) {
			return canonical, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrPathViolation, path)
}

// resolveExisting resolves symlinks in the longest existing prefix of abs and
// rejoins the non-existent suffix. The suffix is already cleaned (no ".."
// segments survive filepath.Clean on an absolute path), so appending it
// cannot climb back out of the resolved prefix.
func resolveExisting(abs string) (string, error) {
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		// Permission failure or symlink cycle: refuse.
		return "", err
	}

	// Walk up until a component exists, then resolve that prefix. Each
	// component treated as missing must really be missing: a dangling
	// symlink also fails EvalSymlinks with ENOENT, but Lstat still sees it,
	// and following it later could leave the sandbox. Refuse those.
	prefix := abs
	var suffix []string
	for {
		if _, lerr := os.Lstat(prefix); lerr == nil {
			return "", fmt.Errorf("unresolvable component %s", filepath.Base(prefix))
		}

		parent := filepath.Dir(prefix)
		if parent == prefix {
			return "", os.ErrNotExist
		}
		suffix = append(suffix, filepath.Base(prefix))
		prefix = parent

		resolved, err = filepath.EvalSymlinks(prefix)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}

	for i := len(suffix) - 1; i >= 0; i-- {
		resolved = filepath.Join(resolved, suffix[i])
	}
	return resolved, nil
}

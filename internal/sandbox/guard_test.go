package sandbox

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewGuard(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		roots   []string
		wantErr bool
	}{
		{
			name:    "valid root",
			roots:   []string{dir},
			wantErr: false,
		},
		{
			name:    "empty root set",
			roots:   nil,
			wantErr: true,
		},
		{
			name:    "missing root",
			roots:   []string{filepath.Join(dir, "does-not-exist")},
			wantErr: true,
		},
		{
			name:    "root is a file",
			roots:   []string{mustWriteFile(t, dir, "plain.txt", "x")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGuard(tt.roots)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewGuard() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolve_InsideRoot(t *testing.T) {
	root := t.TempDir()
	guard := mustGuard(t, root)

	sub := filepath.Join(root, "config", "automations")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	resolved, err := guard.Resolve(sub)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !filepath.IsAbs(resolved) {
		t.Errorf("Resolve() returned non-absolute path %s", resolved)
	}

	// Re-validation of the canonical form is idempotent.
	again, err := guard.Resolve(resolved)
	if err != nil {
		t.Fatalf("Resolve(Resolve()) error = %v", err)
	}
	if again != resolved {
		t.Errorf("Resolve not idempotent: %s != %s", again, resolved)
	}
}

func TestResolve_RootItself(t *testing.T) {
	root := t.TempDir()
	guard := mustGuard(t, root)

	if _, err := guard.Resolve(root); err != nil {
		t.Errorf("Resolve(root) error = %v", err)
	}
}

func TestResolve_NonexistentUnderRoot(t *testing.T) {
	root := t.TempDir()
	guard := mustGuard(t, root)

	// Write targets do not exist yet; the guard must still accept them.
	target := filepath.Join(root, "new", "deep", "file.yaml")
	resolved, err := guard.Resolve(target)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved == "" {
		t.Error("Resolve() returned empty path")
	}
}

func TestResolve_OutsideRoot(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	guard := mustGuard(t, root)

	tests := []struct {
		name string
		path string
	}{
		{"sibling directory", outside},
		{"parent traversal", filepath.Join(root, "..", filepath.Base(outside))},
		{"filesystem root", "/"},
		{"empty path", ""},
		{"traversal through nonexistent segments", filepath.Join(root, "a", "..", "..", "escape")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := guard.Resolve(tt.path)
			if !errors.Is(err, ErrPathViolation) {
				t.Errorf("Resolve(%s) error = %v, want ErrPathViolation", tt.path, err)
			}
		})
	}
}

func TestResolve_SymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	guard := mustGuard(t, root)

	secret := mustWriteFile(t, outside, "secret.txt", "token")

	// A symlink inside the root pointing outside must be rejected even
	// though the requested path looks sandboxed.
	link := filepath.Join(root, "innocent.txt")
	if err := os.Symlink(secret, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	if _, err := guard.Resolve(link); !errors.Is(err, ErrPathViolation) {
		t.Errorf("Resolve(symlink escape) error = %v, want ErrPathViolation", err)
	}

	// Same for a symlinked directory component.
	dirLink := filepath.Join(root, "linked-dir")
	if err := os.Symlink(outside, dirLink); err != nil {
		t.Fatal(err)
	}
	if _, err := guard.Resolve(filepath.Join(dirLink, "secret.txt")); !errors.Is(err, ErrPathViolation) {
		t.Errorf("Resolve(path through symlinked dir) error = %v, want ErrPathViolation", err)
	}
}

func TestResolve_DanglingSymlink(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	guard := mustGuard(t, root)

	// A link whose target does not exist must not pass as a plain missing
	// path: writing through it would create the target outside the root.
	link := filepath.Join(root, "innocent.txt")
	if err := os.Symlink(filepath.Join(outside, "escaped.txt"), link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	if _, err := guard.Resolve(link); !errors.Is(err, ErrPathViolation) {
		t.Errorf("Resolve(dangling symlink) error = %v, want ErrPathViolation", err)
	}

	// Same when the dangling link is an intermediate component.
	dirLink := filepath.Join(root, "linked-dir")
	if err := os.Symlink(filepath.Join(outside, "missing-dir"), dirLink); err != nil {
		t.Fatal(err)
	}
	if _, err := guard.Resolve(filepath.Join(dirLink, "file.txt")); !errors.Is(err, ErrPathViolation) {
		t.Errorf("Resolve(path through dangling dir link) error = %v, want ErrPathViolation", err)
	}

	// Fail closed even when the dangling target would land inside the root.
	inLink := filepath.Join(root, "alias.txt")
	if err := os.Symlink(filepath.Join(root, "not-yet.txt"), inLink); err != nil {
		t.Fatal(err)
	}
	if _, err := guard.Resolve(inLink); !errors.Is(err, ErrPathViolation) {
		t.Errorf("Resolve(dangling symlink inside root) error = %v, want ErrPathViolation", err)
	}
}

func TestResolve_SymlinkWithinRoot(t *testing.T) {
	root := t.TempDir()
	guard := mustGuard(t, root)

	target := mustWriteFile(t, root, "actual.txt", "data")
	link := filepath.Join(root, "alias.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	resolved, err := guard.Resolve(link)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want, _ := filepath.EvalSymlinks(target)
	if resolved != want {
		t.Errorf("Resolve() = %s, want %s", resolved, want)
	}
}

func TestResolve_MultipleRoots(t *testing.T) {
	root1 := t.TempDir()
	root2 := t.TempDir()

	guard, err := NewGuard([]string{root1, root2})
	if err != nil {
		t.Fatal(err)
	}

	for _, root := range []string{root1, root2} {
		p := filepath.Join(root, "file.txt")
		if _, err := guard.Resolve(p); err != nil {
			t.Errorf("Resolve(%s) error = %v", p, err)
		}
	}
}

func mustGuard(t *testing.T, roots ...string) *Guard {
	t.Helper()
	guard, err := NewGuard(roots)
	if err != nil {
		t.Fatal(err)
	}
	return guard
}

func mustWriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

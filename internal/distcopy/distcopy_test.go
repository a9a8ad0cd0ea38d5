// SPDX-License-Identifier: MPL-2.0

package distcopy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bytefuse/webexport/internal/issue"
	"github.com/bytefuse/webexport/internal/testutil"
)

func TestCopy(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	src := filepath.Join(root, "admin", "dist")
	dest := filepath.Join(root, "pub", "web")

	testutil.MustWriteFile(t, filepath.Join(src, "index.html"), "<html></html>")
	testutil.MustWriteFile(t, filepath.Join(src, "assets", "app.js"), "console.log(1)")
	testutil.MustMkdirAll(t, filepath.Join(src, "empty"), 0o755)
	testutil.MustWriteFile(t, filepath.Join(dest, "stale.txt"), "old build")

	if err := Copy(src, dest); err != nil {
		t.Fatalf("Copy() error: %v", err)
	}

	for path, want := range map[string]string{
		"index.html":    "<html></html>",
		"assets/app.js": "console.log(1)",
	} {
		got, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(path)))
		if err != nil {
			t.Errorf("reading %s: %v", path, err)
			continue
		}
		if string(got) != want {
			t.Errorf("%s = %q, want %q", path, got, want)
		}
	}
	if info, err := os.Stat(filepath.Join(dest, "empty")); err != nil || !info.IsDir() {
		t.Errorf("empty directory not recreated: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "stale.txt")); !os.IsNotExist(err) {
		t.Errorf("stale file should be removed, stat err = %v", err)
	}
}

func TestCopy_KeepsFileMode(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	src := filepath.Join(root, "dist")
	dest := filepath.Join(root, "web")
	testutil.MustWriteFile(t, filepath.Join(src, "run.sh"), "#!/bin/sh\n")
	if err := os.Chmod(filepath.Join(src, "run.sh"), 0o750); err != nil {
		t.Fatal(err)
	}

	if err := Copy(src, dest); err != nil {
		t.Fatalf("Copy() error: %v", err)
	}
	info, err := os.Stat(filepath.Join(dest, "run.sh"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o750 {
		t.Errorf("mode = %v, want 0750", info.Mode().Perm())
	}
}

func TestCopy_MissingSource(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	dest := filepath.Join(root, "web")
	testutil.MustWriteFile(t, filepath.Join(dest, "keep.txt"), "x")

	err := Copy(filepath.Join(root, "dist"), dest)
	if !errors.Is(err, ErrDistNotFound) {
		t.Fatalf("Copy() = %v, want ErrDistNotFound", err)
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Issue != issue.DistNotFoundId {
		t.Errorf("expected DistNotFound actionable error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "keep.txt")); err != nil {
		t.Errorf("destination must be untouched when the source is missing: %v", err)
	}
}

func TestCopy_OverlappingPaths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string // relative to the temp root
		dest string
	}{
		{name: "source inside destination", src: "web/dist", dest: "web"},
		{name: "destination inside source", src: "dist", dest: "dist/web"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			root := t.TempDir()
			src := filepath.Join(root, tt.src)
			dest := filepath.Join(root, tt.dest)
			testutil.MustWriteFile(t, filepath.Join(src, "index.html"), "x")

			if err := Copy(src, dest); !errors.Is(err, ErrOverlappingPaths) {
				t.Fatalf("Copy() = %v, want ErrOverlappingPaths", err)
			}
			if _, err := os.Stat(filepath.Join(src, "index.html")); err != nil {
				t.Errorf("source must survive: %v", err)
			}
			if _, err := os.Stat(filepath.Join(dest, filepath.Base(dest))); err == nil {
				t.Error("destination was copied into itself")
			}
		})
	}
}

func TestWithin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dir, path string
		want      bool
	}{
		{"/a/web", "/a/web", true},
		{"/a/web", "/a/web/dist", true},
		{"/a/web", "/a/website", false},
		{"/a/web", "/a/admin/dist", false},
		{"/a/web", "/a/..b", false},
	}
	for _, tt := range tests {
		if got := within(filepath.FromSlash(tt.dir), filepath.FromSlash(tt.path)); got != tt.want {
			t.Errorf("within(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}

// SPDX-License-Identifier: MPL-2.0

// Package distcopy publishes a locally built dist directory into the export
// destination without running a container build.
package distcopy

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytefuse/webexport/internal/issue"
)

var (
	// ErrDistNotFound is returned when the source directory does not exist.
	ErrDistNotFound = errors.New("dist directory not found")
	// ErrOverlappingPaths is returned when the source and destination trees overlap.
	ErrOverlappingPaths = errors.New("source and destination directories overlap")
)

// Copy replaces dest with a copy of the tree rooted at src.
// dest is removed recursively first, so files that no longer exist in src
// do not survive.
func Copy(src, dest string) error {
	src = filepath.Clean(src)
	dest = filepath.Clean(dest)

	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		cause := ErrDistNotFound
		if err != nil && !os.IsNotExist(err) {
			cause = fmt.Errorf("%w: %w", ErrDistNotFound, err)
		}
		return issue.NewErrorContext().
			WithOperation("copy dist").
			WithResource(src).
			WithIssue(issue.DistNotFoundId).
			WithSuggestion("Build the frontend first (npm run build)").
			WithSuggestion("Point --src at the build output directory").
			Wrap(cause).
			BuildError()
	}

	if within(dest, src) {
		return fmt.Errorf("%w: %s is inside %s", ErrOverlappingPaths, src, dest)
	}
	if within(src, dest) {
		return fmt.Errorf("%w: %s is inside %s", ErrOverlappingPaths, dest, src)
	}

	if err := os.RemoveAll(dest); err != nil {
		return destError(err, dest)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return destError(err, dest)
	}

	return copyTree(src, dest)
}

func copyTree(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("failed to read source directory: %w", err)
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := os.MkdirAll(dstPath, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dstPath, err)
			}
			if err := copyTree(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

// copyFile copies a regular file, keeping its permission bits. Symlinks are
// followed.
func copyFile(src, dst string) (err error) {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer func() { _ = srcFile.Close() }() // Read-only file; close error non-critical

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source file: %w", err)
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer func() {
		if closeErr := dstFile.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close destination file: %w", closeErr)
		}
	}()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return nil
}

// within reports whether path equals dir or lies below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func destError(err error, dest string) error {
	return issue.NewErrorContext().
		WithOperation("prepare destination directory").
		WithResource(dest).
		WithIssue(issue.DestinationNotWritableId).
		WithSuggestion("Check write permissions on the destination and its parent").
		Wrap(err).
		BuildError()
}

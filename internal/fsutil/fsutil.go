// Package fsutil holds the filesystem primitives shared by the pipeline
// stages: recursive copies, page writes and Markdown sweeps.
package fsutil

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// MarkdownPattern matches every Markdown or MDX file below a root.
const MarkdownPattern = "**/*.{md,mdx}"

// CopyDir recursively copies a directory tree, overwriting existing files.
func CopyDir(src, dst string) error {
	_, err := CopyTree(src, dst)
	return err
}

// CopyTree recursively copies src into dst and returns the slash-separated
// paths of the copied files relative to dst, in walk order.
func CopyTree(src, dst string) ([]string, error) {
	var copied []string
	err := copyTree(src, dst, "", &copied)
	return copied, err
}

func copyTree(src, dst, rel string, copied *[]string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, srcInfo.Mode().Perm()|0o700); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		relPath := entry.Name()
		if rel != "" {
			relPath = rel + "/" + entry.Name()
		}

		if entry.IsDir() {
			if err := copyTree(srcPath, dstPath, relPath, copied); err != nil {
				return err
			}
			continue
		}
		if err := CopyFile(srcPath, dstPath); err != nil {
			return err
		}
		*copied = append(*copied, relPath)
	}
	return nil
}

// CopyFile copies a single file from src to dst, keeping its mode.
func CopyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = srcFile.Close()
	}()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = dstFile.Close()
	}()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return err
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.Chmod(dst, srcInfo.Mode())
}

// WriteFile writes data to path, creating parent directories as needed.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // site pages are world readable
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// MarkdownFiles returns every .md/.mdx file below root, sorted. A missing
// root yields no files.
func MarkdownFiles(root string) ([]string, error) {
	if !IsDir(root) {
		return nil, nil
	}
	matches, err := doublestar.Glob(os.DirFS(root), MarkdownPattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", root, err)
	}
	sort.Strings(matches)
	files := make([]string, 0, len(matches))
	for _, m := range matches {
		files = append(files, filepath.Join(root, filepath.FromSlash(m)))
	}
	return files, nil
}

// RewriteFunc transforms the content of one file.
type RewriteFunc func(path string, content []byte) []byte

// RewriteError carries the file a rewrite sweep failed on.
type RewriteError struct {
	Path string
	Err  error
}

func (e *RewriteError) Error() string { return e.Path + ": " + e.Err.Error() }
func (e *RewriteError) Unwrap() error { return e.Err }

// RewriteMarkdown applies rewrite to every Markdown file below root and
// writes back files whose content changed. Unreadable or unwritable files
// are returned as failures and the sweep continues.
func RewriteMarkdown(root string, rewrite RewriteFunc) (changed []string, failures []*RewriteError, err error) {
	files, err := MarkdownFiles(root)
	if err != nil {
		return nil, nil, err
	}
	for _, path := range files {
		content, readErr := os.ReadFile(path)
		if readErr != nil {
			failures = append(failures, &RewriteError{Path: path, Err: readErr})
			continue
		}
		out := rewrite(path, content)
		if string(out) == string(content) {
			continue
		}
		if writeErr := writeInPlace(path, out); writeErr != nil {
			failures = append(failures, &RewriteError{Path: path, Err: writeErr})
			continue
		}
		changed = append(changed, path)
	}
	return changed, failures, nil
}

func writeInPlace(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, info.Mode().Perm()&fs.ModePerm)
}

// Package docstree copies the project's general documentation into the site
// pages and rewrites asset paths so they point at the public assets tree.
package docstree

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/fsutil"
	"git.home.luguber.info/inful/docsite/internal/logfields"
)

// assetDirPattern matches an assets segment preceded by one or more "./".
var assetDirPattern = regexp.MustCompile(`((?:\./)+)assets`)

// imgSrcPattern matches a src attribute reaching public/assets through
// relative dot segments.
var imgSrcPattern = regexp.MustCompile(`src="((?:\.+/)+)public/assets`)

// RewriteAssetDirs rewrites ./assets to ./public/assets, keeping the
// leading dot segments:
//
//	![a](./assets/x.png)   -> ![a](./public/assets/x.png)
//	src="././assets/y.png" -> src="././public/assets/y.png"
func RewriteAssetDirs(content string) string {
	return assetDirPattern.ReplaceAllString(content, "${1}public/assets")
}

// RewriteImgSrc makes relative src attributes into public/assets absolute:
//
//	src="../../public/assets/x.png" -> src="/assets/x.png"
//
// It expects RewriteAssetDirs to have run first.
func RewriteImgSrc(content string) string {
	return imgSrcPattern.ReplaceAllString(content, `src="/assets`)
}

// Rewrite applies RewriteAssetDirs then RewriteImgSrc.
func Rewrite(content string) string {
	return RewriteImgSrc(RewriteAssetDirs(content))
}

// Tree copies a documentation directory into the pages root.
type Tree struct {
	DocsDir  string
	PagesDir string
	Logger   *slog.Logger
}

func (t *Tree) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}

// Copy copies every file below DocsDir into PagesDir. It returns the copied
// files relative to PagesDir in slash form. A file that cannot be copied is
// reported as a failure and skipped. A missing docs directory copies nothing.
func (t *Tree) Copy() (copied []string, failures []error) {
	if !fsutil.IsDir(t.DocsDir) {
		t.logger().Debug("No documentation tree", logfields.Path(t.DocsDir))
		return nil, nil
	}

	walkErr := filepath.WalkDir(t.DocsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			failures = append(failures, copyError(err, path))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(t.DocsDir, path)
		if relErr != nil {
			failures = append(failures, copyError(relErr, path))
			return nil
		}
		dst := filepath.Join(t.PagesDir, rel)
		if d.IsDir() {
			if mkErr := os.MkdirAll(dst, 0o750); mkErr != nil {
				failures = append(failures, copyError(mkErr, path))
				return filepath.SkipDir
			}
			return nil
		}
		if cpErr := fsutil.CopyFile(path, dst); cpErr != nil {
			failures = append(failures, copyError(cpErr, path))
			return nil
		}
		copied = append(copied, filepath.ToSlash(rel))
		return nil
	})
	if walkErr != nil {
		failures = append(failures, copyError(walkErr, t.DocsDir))
	}
	return copied, failures
}

// RewritePages applies Rewrite to every Markdown page below PagesDir.
func (t *Tree) RewritePages() (changed []string, failures []error, err error) {
	changed, rwFailures, err := fsutil.RewriteMarkdown(t.PagesDir, func(_ string, content []byte) []byte {
		return []byte(Rewrite(string(content)))
	})
	for _, f := range rwFailures {
		failures = append(failures, errors.WrapError(f.Err, errors.CategoryFileSystem, "failed to rewrite page").
			WithContext("path", f.Path).Build())
	}
	return changed, failures, err
}

func copyError(err error, path string) error {
	return errors.WrapError(err, errors.CategoryFileSystem, "failed to copy documentation file").
		WithContext("path", path).Build()
}

// Package assets relocates example and shared asset directories into the
// public assets tree.
package assets

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/fsutil"
	"git.home.luguber.info/inful/docsite/internal/logfields"
)

// Source is one directory to relocate. An empty Namespace copies into the
// public root.
type Source struct {
	Namespace string
	Dir       string
}

// Relocator copies asset directories into PublicDir.
type Relocator struct {
	PublicDir string
	Logger    *slog.Logger
}

// Relocate copies the shared directory (if it exists) into the public root,
// then every example source into PublicDir/{namespace}, replacing whatever
// was there. It returns the number of files copied. Any filesystem error
// aborts the run.
func (r *Relocator) Relocate(ctx context.Context, shared string, sources []Source) (int, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	total := 0
	if shared != "" && fsutil.IsDir(shared) {
		copied, err := fsutil.CopyTree(shared, r.PublicDir)
		if err != nil {
			return total, relocateError(err, shared, r.PublicDir)
		}
		total += len(copied)
		logger.Debug("Copied shared assets", logfields.Path(shared), logfields.Count(len(copied)))
	}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return total, errors.WrapError(err, errors.CategoryRuntime, "asset relocation canceled").Build()
		}
		if src.Dir == "" || !fsutil.IsDir(src.Dir) {
			continue
		}
		dst := filepath.Join(r.PublicDir, src.Namespace)
		if err := os.RemoveAll(dst); err != nil {
			return total, relocateError(err, src.Dir, dst)
		}
		copied, err := fsutil.CopyTree(src.Dir, dst)
		if err != nil {
			return total, relocateError(err, src.Dir, dst)
		}
		total += len(copied)
		logger.Debug("Relocated example assets",
			logfields.Example(src.Namespace), logfields.Path(dst), logfields.Count(len(copied)))
	}
	return total, nil
}

func relocateError(err error, src, dst string) error {
	return errors.WrapError(err, errors.CategoryFileSystem, "failed to relocate assets").
		Fatal().WithContext("path", src).WithContext("target", dst).Build()
}

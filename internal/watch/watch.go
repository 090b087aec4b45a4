// Package watch rebuilds the site when the source project changes.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/fsutil"
	"git.home.luguber.info/inful/docsite/internal/logfields"
)

// DefaultDebounce is the quiet window used when none is configured.
const DefaultDebounce = 500 * time.Millisecond

// RebuildFunc is called once per burst of changes with the changed paths.
type RebuildFunc func(ctx context.Context, changed []string) error

// Watcher watches source directories recursively and coalesces bursts of
// filesystem events into a single rebuild.
type Watcher struct {
	roots    []string
	ignore   []string
	debounce time.Duration
	rebuild  RebuildFunc
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithIgnore skips events below the given paths, typically the output root
// when it lives inside the source tree.
func WithIgnore(paths ...string) Option {
	return func(w *Watcher) {
		for _, p := range paths {
			if p != "" {
				w.ignore = append(w.ignore, filepath.Clean(p))
			}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a watcher over roots. Missing roots are skipped at Run time.
func New(roots []string, rebuild RebuildFunc, opts ...Option) (*Watcher, error) {
	if rebuild == nil {
		return nil, errors.ValidationError("rebuild function is required").Build()
	}
	if len(roots) == 0 {
		return nil, errors.ValidationError("at least one watch root is required").Build()
	}
	w := &Watcher{
		debounce: DefaultDebounce,
		rebuild:  rebuild,
		logger:   slog.Default(),
		pending:  make(map[string]struct{}),
	}
	for _, r := range roots {
		w.roots = append(w.roots, filepath.Clean(r))
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run blocks until ctx is cancelled. Rebuilds run on the watcher goroutine,
// so a burst arriving during a rebuild triggers exactly one follow-up.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "failed to create file watcher").Build()
	}
	defer func() {
		if cerr := fw.Close(); cerr != nil {
			w.logger.Error("Error closing file watcher", logfields.Error(cerr))
		}
	}()

	watched := 0
	for _, root := range w.roots {
		n, addErr := w.addRecursive(fw, root)
		if addErr != nil {
			return addErr
		}
		watched += n
	}
	if watched == 0 {
		return errors.ValidationError("none of the watch roots exist").
			WithContext("roots", strings.Join(w.roots, ",")).
			Build()
	}
	w.logger.Info("Watching source for changes",
		slog.Int("directories", watched),
		slog.Duration("debounce", w.debounce))

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if event.Op.Has(fsnotify.Create) && fsutil.IsDir(event.Name) {
				if _, addErr := w.addRecursive(fw, event.Name); addErr != nil {
					w.logger.Warn("Failed to watch new directory", logfields.Path(event.Name), logfields.Error(addErr))
				}
			}
			w.logger.Debug("Source change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
			w.mark(event.Name)
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("File watcher error", logfields.Error(err))

		case <-timer.C:
			changed := w.drain()
			if len(changed) == 0 {
				continue
			}
			w.logger.Info("Rebuilding after source change", logfields.Count(len(changed)))
			if rerr := w.rebuild(ctx, changed); rerr != nil {
				w.logger.Error("Rebuild failed", logfields.Error(rerr))
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(event.Name)
	for _, ig := range w.ignore {
		if name == ig || strings.HasPrefix(name, ig+string(filepath.Separator)) {
			return false
		}
	}
	base := filepath.Base(name)
	// Editor swap and backup files.
	if strings.HasPrefix(base, ".#") || strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") {
		return false
	}
	return true
}

func (w *Watcher) addRecursive(fw *fsnotify.Watcher, root string) (int, error) {
	if !fsutil.IsDir(root) {
		// A single file such as the project README is watched directly.
		if fsutil.Exists(root) {
			if err := fw.Add(root); err != nil {
				return 0, errors.WrapError(err, errors.CategoryFileSystem, "failed to watch file").
					WithContext("path", root).Build()
			}
			return 1, nil
		}
		return 0, nil
	}
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		for _, ig := range w.ignore {
			if filepath.Clean(path) == ig {
				return filepath.SkipDir
			}
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, errors.WrapError(err, errors.CategoryFileSystem, "failed to watch directory").
			WithContext("path", root).Build()
	}
	return count, nil
}

func (w *Watcher) mark(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = struct{}{}
}

func (w *Watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	w.pending = make(map[string]struct{})
	sort.Strings(changed)
	return changed
}

package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recorder) rebuild(_ context.Context, changed []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, changed)
	return nil
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func startWatcher(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	// Give the watcher time to register its directories.
	time.Sleep(100 * time.Millisecond)
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, func(context.Context, []string) error { return nil })
	require.Error(t, err)

	_, err = New([]string{t.TempDir()}, nil)
	require.Error(t, err)
}

func TestRunCoalescesBurst(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "hello")
	require.NoError(t, os.MkdirAll(sub, 0o750))

	rec := &recorder{}
	w, err := New([]string{root}, rec.rebuild, WithDebounce(150*time.Millisecond))
	require.NoError(t, err)
	startWatcher(t, w)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(sub, "README.md"), []byte("# Hello\n"), 0o600))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 5*time.Second, 20*time.Millisecond)
	// No follow-up rebuild after the burst settled.
	time.Sleep(300 * time.Millisecond)
	calls := rec.snapshot()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], filepath.Join(sub, "README.md"))
}

func TestRunWatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	rec := &recorder{}
	w, err := New([]string{root}, rec.rebuild, WithDebounce(100*time.Millisecond))
	require.NoError(t, err)
	startWatcher(t, w)

	dir := filepath.Join(root, "new-example")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.Eventually(t, func() bool { return len(rec.snapshot()) >= 1 }, 5*time.Second, 20*time.Millisecond)

	before := len(rec.snapshot())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# New\n"), 0o600))
	require.Eventually(t, func() bool { return len(rec.snapshot()) > before }, 5*time.Second, 20*time.Millisecond)
}

func TestRunIgnoresOutputTree(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "site")
	require.NoError(t, os.MkdirAll(out, 0o750))

	rec := &recorder{}
	w, err := New([]string{root}, rec.rebuild, WithDebounce(50*time.Millisecond), WithIgnore(out))
	require.NoError(t, err)
	startWatcher(t, w)

	require.NoError(t, os.WriteFile(filepath.Join(out, "index.md"), []byte("x"), 0o600))
	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestRunWithoutExistingRoots(t *testing.T) {
	w, err := New([]string{filepath.Join(t.TempDir(), "missing")}, func(context.Context, []string) error { return nil })
	require.NoError(t, err)
	require.Error(t, w.Run(context.Background()))
}

func TestRelevantFiltersEditorFiles(t *testing.T) {
	w, err := New([]string{"/src"}, func(context.Context, []string) error { return nil })
	require.NoError(t, err)
	assert.False(t, w.relevant(fsnotifyEvent("/src/a.md~")))
	assert.False(t, w.relevant(fsnotifyEvent("/src/.a.md.swp")))
	assert.True(t, w.relevant(fsnotifyEvent("/src/a.md")))
}

func fsnotifyEvent(name string) fsnotify.Event {
	return fsnotify.Event{Name: name, Op: fsnotify.Write}
}

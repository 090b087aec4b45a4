package assets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestRelocate(t *testing.T) {
	src := t.TempDir()
	public := filepath.Join(t.TempDir(), "public", "assets")
	writeFile(t, filepath.Join(src, "shared", "logo.svg"), "logo")
	writeFile(t, filepath.Join(src, "ex1", "assets", "diagram.png"), "one")
	writeFile(t, filepath.Join(src, "ex2", "assets", "diagram.png"), "two")
	writeFile(t, filepath.Join(public, "ex1", "stale.png"), "stale")

	r := &Relocator{PublicDir: public}
	n, err := r.Relocate(context.Background(), filepath.Join(src, "shared"), []Source{
		{Namespace: "ex1", Dir: filepath.Join(src, "ex1", "assets")},
		{Namespace: "ex2", Dir: filepath.Join(src, "ex2", "assets")},
		{Namespace: "ex3", Dir: ""},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.FileExists(t, filepath.Join(public, "logo.svg"))
	assert.NoFileExists(t, filepath.Join(public, "ex1", "stale.png"))
	one, err := os.ReadFile(filepath.Join(public, "ex1", "diagram.png"))
	require.NoError(t, err)
	two, err := os.ReadFile(filepath.Join(public, "ex2", "diagram.png"))
	require.NoError(t, err)
	assert.Equal(t, "one", string(one))
	assert.Equal(t, "two", string(two))
	assert.NoDirExists(t, filepath.Join(public, "ex3"))
}

func TestRelocate_MissingSharedIsSkipped(t *testing.T) {
	r := &Relocator{PublicDir: t.TempDir()}
	n, err := r.Relocate(context.Background(), filepath.Join(t.TempDir(), "absent"), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelocate_FailureIsFatal(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "ex1", "assets", "a.png"), "a")
	blocker := filepath.Join(t.TempDir(), "file")
	writeFile(t, blocker, "not a dir")

	r := &Relocator{PublicDir: blocker}
	_, err := r.Relocate(context.Background(), "", []Source{{Namespace: "ex1", Dir: filepath.Join(src, "ex1", "assets")}})
	require.Error(t, err)
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryFileSystem, ce.Category())
	assert.True(t, ce.IsFatal())
}

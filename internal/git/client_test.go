package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/retry"
)

func addCommit(t *testing.T, repo *git.Repository, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o600))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)
	_, err = wt.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

// newRemote creates a bare remote seeded from a working repository.
func newRemote(t *testing.T) (bare string, seed *git.Repository, seedPath string) {
	t.Helper()
	tmp := t.TempDir()
	bare = filepath.Join(tmp, "remote.git")
	_, err := git.PlainInit(bare, true)
	require.NoError(t, err)

	seedPath = filepath.Join(tmp, "seed")
	seed, err = git.PlainInit(seedPath, false)
	require.NoError(t, err)
	_, err = seed.CreateRemote(&ggitcfg.RemoteConfig{Name: "origin", URLs: []string{bare}})
	require.NoError(t, err)
	addCommit(t, seed, seedPath, "README.md")
	require.NoError(t, seed.Push(&git.PushOptions{RemoteName: "origin"}))
	return bare, seed, seedPath
}

func seedBranch(t *testing.T, seed *git.Repository) string {
	t.Helper()
	head, err := seed.Head()
	require.NoError(t, err)
	return head.Name().Short()
}

func TestSync_CloneThenUpdate(t *testing.T) {
	bare, seed, seedPath := newRemote(t)
	branch := seedBranch(t, seed)
	dir := filepath.Join(t.TempDir(), "checkout")
	client := NewClient(retry.NewPolicy(retry.BackoffFixed, time.Millisecond, time.Millisecond, 0), nil)
	opts := Options{URL: bare, Branch: branch, Dir: dir}

	res, err := client.Sync(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, res.Cloned)
	assert.FileExists(t, filepath.Join(dir, "README.md"))

	res, err = client.Sync(context.Background(), opts)
	require.NoError(t, err)
	assert.False(t, res.Cloned)
	assert.False(t, res.Changed)

	addCommit(t, seed, seedPath, "docs.md")
	require.NoError(t, seed.Push(&git.PushOptions{RemoteName: "origin"}))
	head, err := seed.Head()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("local edit"), 0o600))
	res, err = client.Sync(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, head.Hash().String(), res.Commit)
	assert.FileExists(t, filepath.Join(dir, "docs.md"))

	data, err := os.ReadFile(filepath.Join(dir, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "README.md", string(data), "local edits are discarded")
}

func TestSync_MissingRemoteFails(t *testing.T) {
	client := NewClient(retry.NewPolicy(retry.BackoffFixed, time.Millisecond, time.Millisecond, 0), nil)
	_, err := client.Sync(context.Background(), Options{
		URL: filepath.Join(t.TempDir(), "absent.git"),
		Dir: filepath.Join(t.TempDir(), "checkout"),
	})
	require.Error(t, err)
	assert.True(t, ferrors.IsClassified(err))
}

func TestClassifyGitError(t *testing.T) {
	tests := []struct {
		msg       string
		category  ferrors.ErrorCategory
		transient bool
	}{
		{"authentication required", ferrors.CategoryGit, false},
		{"repository not found", ferrors.CategoryNotFound, false},
		{"unsupported scheme", ferrors.CategoryConfig, false},
		{"read: connection reset by peer", ferrors.CategoryNetwork, true},
		{"something else", ferrors.CategoryGit, false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := ClassifyGitError(errors.New(tt.msg), "clone", "https://example.com/r.git")
			assert.Equal(t, tt.category, ferrors.GetCategory(err))
			assert.Equal(t, tt.transient, IsTransient(err))
		})
	}
	assert.NoError(t, ClassifyGitError(nil, "clone", ""))
}

package git

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/retry"
)

// Options describes the checkout to keep in sync.
type Options struct {
	URL    string
	Branch string
	Dir    string
	Token  string // HTTPS token; empty for anonymous access
	Depth  int
}

// Result reports what a sync did.
type Result struct {
	Commit   string
	Cloned   bool
	Changed  bool // HEAD moved
	Duration time.Duration
}

// Client syncs a source checkout.
type Client struct {
	policy retry.Policy
	logger *slog.Logger
}

// NewClient creates a client retrying transient failures with policy.
func NewClient(policy retry.Policy, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{policy: policy, logger: logger}
}

// Sync clones opts.URL into opts.Dir, or updates an existing clone to the
// remote head of opts.Branch. Local changes in the checkout are discarded.
func (c *Client) Sync(ctx context.Context, opts Options) (Result, error) {
	start := time.Now()
	var res Result
	err := c.policy.Do(ctx, func() error {
		var err error
		if isRepository(opts.Dir) {
			res, err = c.update(ctx, opts)
		} else {
			res, err = c.clone(ctx, opts)
		}
		return err
	}, IsTransient, func(attempt int, delay time.Duration, err error) {
		c.logger.Warn("Retrying git sync", logfields.URL(opts.URL),
			slog.Int("attempt", attempt), slog.Duration("delay", delay), logfields.Error(err))
	})
	res.Duration = time.Since(start)
	return res, err
}

func isRepository(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

func (c *Client) auth(opts Options) transport.AuthMethod {
	if opts.Token == "" {
		return nil
	}
	return &http.BasicAuth{Username: "x-access-token", Password: opts.Token}
}

func (c *Client) clone(ctx context.Context, opts Options) (Result, error) {
	c.logger.Info("Cloning source repository", logfields.URL(opts.URL), logfields.Path(opts.Dir))
	if err := os.RemoveAll(opts.Dir); err != nil {
		return Result{}, fmt.Errorf("failed to remove existing directory: %w", err)
	}

	cloneOptions := &git.CloneOptions{URL: opts.URL, Auth: c.auth(opts), Depth: opts.Depth}
	if opts.Branch != "" {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(opts.Branch)
		cloneOptions.SingleBranch = true
	}
	repository, err := git.PlainCloneContext(ctx, opts.Dir, false, cloneOptions)
	if err != nil {
		return Result{}, ClassifyGitError(err, "clone", opts.URL)
	}
	head, err := repository.Head()
	if err != nil {
		return Result{}, ClassifyGitError(err, "clone", opts.URL)
	}
	c.logger.Info("Source repository cloned", logfields.URL(opts.URL), slog.String("commit", shortHash(head.Hash())))
	return Result{Commit: head.Hash().String(), Cloned: true, Changed: true}, nil
}

func (c *Client) update(ctx context.Context, opts Options) (Result, error) {
	repository, err := git.PlainOpen(opts.Dir)
	if err != nil {
		return Result{}, ClassifyGitError(err, "open", opts.URL)
	}
	before, _ := repository.Head()

	fetchOpts := &git.FetchOptions{
		RemoteName: "origin",
		Tags:       git.NoTags,
		RefSpecs:   []ggitcfg.RefSpec{"+refs/heads/*:refs/remotes/origin/*"},
		Auth:       c.auth(opts),
		Depth:      opts.Depth,
	}
	if err := repository.FetchContext(ctx, fetchOpts); err != nil && !stderrors.Is(err, git.NoErrAlreadyUpToDate) {
		return Result{}, ClassifyGitError(err, "fetch", opts.URL)
	}

	branch := opts.Branch
	if branch == "" {
		if before != nil && before.Name().IsBranch() {
			branch = before.Name().Short()
		} else {
			branch = "main"
		}
	}
	remoteRef, err := repository.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err != nil {
		return Result{}, ClassifyGitError(fmt.Errorf("remote ref %s: %w", branch, err), "fetch", opts.URL)
	}

	wt, err := repository.Worktree()
	if err != nil {
		return Result{}, ClassifyGitError(err, "worktree", opts.URL)
	}
	localBranch := plumbing.NewBranchReferenceName(branch)
	if err := repository.Storer.SetReference(plumbing.NewHashReference(localBranch, remoteRef.Hash())); err != nil {
		return Result{}, ClassifyGitError(err, "checkout", opts.URL)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: localBranch, Force: true}); err != nil {
		return Result{}, ClassifyGitError(err, "checkout", opts.URL)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: remoteRef.Hash(), Mode: git.HardReset}); err != nil {
		return Result{}, ClassifyGitError(err, "reset", opts.URL)
	}

	changed := before == nil || before.Hash() != remoteRef.Hash()
	c.logger.Info("Source repository updated", logfields.URL(opts.URL),
		slog.String("branch", branch), slog.String("commit", shortHash(remoteRef.Hash())), slog.Bool("changed", changed))
	return Result{Commit: remoteRef.Hash().String(), Changed: changed}, nil
}

func shortHash(h plumbing.Hash) string {
	return h.String()[:8]
}

package commands

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/git"
)

// SyncCmd implements the 'sync' command.
type SyncCmd struct{}

func (s *SyncCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	if cfg.Source.CloneURL == "" {
		return errors.ConfigError("source.clone_url is required for sync").Build()
	}

	ctx, cancel := signalContext()
	defer cancel()

	res, err := git.NewClient(cfg.RetryPolicy(), logger(g)).Sync(ctx, syncOptions(cfg))
	if err != nil {
		return err
	}
	action := "Updated"
	if res.Cloned {
		action = "Cloned"
	} else if !res.Changed {
		action = "Already up to date"
	}
	fmt.Printf("%s %s at %s (%s)\n", action, cfg.Source.Root, res.Commit, res.Duration.Round(time.Millisecond))
	return nil
}

package commands

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/docsite/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Debounce    time.Duration `help:"Quiet window before rebuilding" default:"500ms"`
	MetricsAddr string        `name:"metrics-addr" help:"Serve /metrics and /healthz on this address"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	log := logger(g)

	ctx, cancel := signalContext()
	defer cancel()

	rt, err := newRuntime(ctx, cfg, log, runtimeOptions{metrics: w.MetricsAddr != ""})
	if err != nil {
		return err
	}
	defer rt.Close()
	if err := rt.serve(ctx, w.MetricsAddr); err != nil {
		return err
	}

	runOnce(ctx, rt, "watch")

	readme := cfg.ReadmePath()
	ext := filepath.Ext(readme)
	roots := []string{
		cfg.ExamplesPath(),
		cfg.DocsPath(),
		cfg.SharedAssetsPath(),
		readme,
		strings.TrimSuffix(readme, ext) + cfg.Locales.SecondaryMarker + ext,
	}
	watcher, err := watch.New(roots, func(ctx context.Context, _ []string) error {
		_, err := rt.build(ctx, "watch")
		return err
	},
		watch.WithDebounce(w.Debounce),
		watch.WithIgnore(cfg.PagesPath(), cfg.PublicAssetsPath()),
		watch.WithLogger(log),
	)
	if err != nil {
		return err
	}
	return watcher.Run(ctx)
}

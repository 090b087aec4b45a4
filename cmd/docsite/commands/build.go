package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/pipeline"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Source string `short:"s" help:"Override source.root" type:"path"`
	Output string `short:"o" help:"Override output.root" type:"path"`
	Audit  bool   `help:"Report relative links left in produced pages"`
	Strict bool   `help:"Exit non-zero when any file was skipped"`
	Sync   bool   `help:"Sync the source checkout from source.clone_url first"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	b.apply(cfg)

	ctx, cancel := signalContext()
	defer cancel()

	rt, err := newRuntime(ctx, cfg, logger(g), runtimeOptions{syncSource: b.Sync})
	if err != nil {
		return err
	}
	defer rt.Close()

	report, err := rt.build(ctx, "build")
	if report != nil {
		printReport(os.Stdout, report)
	}
	return err
}

func (b *BuildCmd) apply(cfg *config.Config) {
	if b.Source != "" {
		cfg.Source.Root = b.Source
	}
	if b.Output != "" {
		cfg.Output.Root = b.Output
	}
	if b.Audit {
		cfg.Build.Audit = true
	}
	if b.Strict {
		cfg.Build.Strict = true
	}
}

// printReport writes a short human summary of a run.
func printReport(w io.Writer, r *pipeline.Report) {
	_, _ = fmt.Fprintf(w, "Build %s: %s in %s\n", r.RunID, r.Outcome, r.Duration().Round(time.Millisecond))
	if r.Commit != "" {
		_, _ = fmt.Fprintf(w, "  source commit: %s\n", r.Commit)
	}
	_, _ = fmt.Fprintf(w, "  examples: %d, pages: %d, assets: %d\n", r.Examples, len(r.Pages), r.Assets)

	codes := make([]string, 0, len(r.PagesByLocale))
	for code := range r.PagesByLocale {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		_, _ = fmt.Fprintf(w, "  cookbook pages (%s): %d\n", code, r.PagesByLocale[code])
	}
	if len(r.Changed) > 0 {
		_, _ = fmt.Fprintf(w, "  changed since last run: %d\n", len(r.Changed))
	}
	for _, f := range r.Failures {
		_, _ = fmt.Fprintf(w, "  skipped: %v\n", f)
	}
	if len(r.Warnings) > 0 {
		_, _ = fmt.Fprintf(w, "  warnings: %d\n", len(r.Warnings))
	}
}

// runOnce is shared by watch and schedule for their initial build.
func runOnce(ctx context.Context, rt *runtime, trigger string) {
	report, err := rt.build(ctx, trigger)
	if report != nil {
		printReport(os.Stdout, report)
	}
	if err != nil {
		rt.logger.Error("Build failed", logfields.Error(err))
	}
}

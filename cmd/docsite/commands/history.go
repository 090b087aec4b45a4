package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/docsite/internal/eventstore"
	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int  `short:"n" help:"Number of runs to show" default:"10"`
	JSON  bool `help:"Print runs as JSON"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	if cfg.State.LedgerPath == "" {
		return errors.ConfigError("state.ledger_path is required for history").Build()
	}
	store, err := eventstore.NewSQLiteStore(cfg.State.LedgerPath)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to open build ledger").
			WithContext("path", cfg.State.LedgerPath).Build()
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := signalContext()
	defer cancel()

	projection := eventstore.NewHistoryProjection(store, h.Limit)
	if err := projection.Rebuild(ctx); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to read build ledger").Build()
	}
	return printHistory(os.Stdout, projection.History(), h.JSON)
}

func printHistory(w io.Writer, runs []*eventstore.RunSummary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "No builds recorded")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STARTED\tRUN\tTRIGGER\tSTATUS\tPAGES\tFAILURES\tWARNINGS\tDURATION\tCOMMIT")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.StartedAt.Local().Format(time.DateTime),
			shortID(r.RunID), r.Trigger, r.Status,
			r.Pages, r.Failures, r.Warnings,
			r.Duration.Round(time.Millisecond), r.Commit)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

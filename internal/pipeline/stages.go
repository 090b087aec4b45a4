package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/docsite/internal/assets"
	"git.home.luguber.info/inful/docsite/internal/audit"
	"git.home.luguber.info/inful/docsite/internal/docstree"
	"git.home.luguber.info/inful/docsite/internal/eventstore"
	"git.home.luguber.info/inful/docsite/internal/examples"
	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/linknorm"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/navigation"
)

func (o *Orchestrator) stageSync(ctx context.Context, st *state) error {
	res, err := o.sync(ctx)
	o.recorder.ObserveSyncDuration(res.Duration, err == nil)
	if err != nil {
		return err
	}
	st.report.Commit = res.Commit
	o.appendEvent(ctx, st.logger, func() (*eventstore.BaseEvent, error) {
		return eventstore.NewSourceSynced(st.report.RunID, eventstore.SourceSyncedPayload{
			URL:        o.cfg.Source.CloneURL,
			Commit:     res.Commit,
			Cloned:     res.Cloned,
			DurationMS: res.Duration.Milliseconds(),
		})
	})
	st.logger.Info("Source synced",
		logfields.URL(o.cfg.Source.CloneURL),
		slog.String("commit", res.Commit),
		slog.Bool("cloned", res.Cloned),
		slog.Bool("changed", res.Changed))
	return nil
}

func (o *Orchestrator) stageReset(_ context.Context, _ *state) error {
	return o.ws.Reset()
}

// stageAssets discovers the examples and relocates the shared and
// per-example asset directories.
func (o *Orchestrator) stageAssets(ctx context.Context, st *state) error {
	discovery, err := examples.Discover(o.cfg.ExamplesPath(), o.codes.Marker)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to discover examples").
			Fatal().WithContext("path", o.cfg.ExamplesPath()).Build()
	}
	for _, rej := range discovery.Rejected {
		st.logger.Warn("Skipping README", logfields.Example(rej.Example), logfields.Path(rej.Path), logfields.Error(rej.Err))
		st.report.Warnings = append(st.report.Warnings,
			errors.WrapError(rej.Err, errors.CategoryDocs, "README skipped").Warning().
				WithContext("example", rej.Example).WithContext("path", rej.Path).Build())
	}
	st.examples = discovery.Examples
	st.report.Examples = len(discovery.Examples)

	sources := make([]assets.Source, 0, len(discovery.Examples))
	for _, ex := range discovery.Examples {
		if ex.AssetsDir != "" {
			sources = append(sources, assets.Source{Namespace: ex.Name, Dir: ex.AssetsDir})
		}
	}
	relocator := &assets.Relocator{PublicDir: o.cfg.PublicAssetsPath(), Logger: st.logger}
	shared := ""
	if o.cfg.Source.AssetsDir != "" {
		shared = o.cfg.SharedAssetsPath()
	}
	n, err := relocator.Relocate(ctx, shared, sources)
	st.report.Assets = n
	if err != nil {
		return err
	}
	st.logger.Info("Assets relocated", logfields.Count(n), logfields.Path(o.cfg.PublicAssetsPath()))
	return nil
}

// stageExamples renders the example READMEs and writes the navigation
// metadata and tag index next to them.
func (o *Orchestrator) stageExamples(ctx context.Context, st *state) error {
	cookbook := o.cfg.CookbookPath()
	transformer := examples.NewTransformer(examples.Options{
		OutputDir:   cookbook,
		Codes:       o.codes,
		CodeURL:     o.cfg.CodeURL,
		Concurrency: o.cfg.Build.Concurrency,
	}, st.logger)

	nav := navigation.NewAggregator()
	tags := navigation.NewTagIndex()
	result := transformer.Transform(ctx, st.examples, nav, tags)

	for _, p := range result.Pages() {
		st.report.PagesByLocale[o.codes.Code(p.Locale)]++
	}
	st.report.Failures = append(st.report.Failures, result.Failures()...)
	st.report.Warnings = append(st.report.Warnings, result.Warnings()...)

	if _, err := nav.Write(cookbook, o.codes); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write navigation metadata").
			Fatal().WithContext("path", cookbook).Build()
	}
	if _, err := tags.Write(cookbook); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write tag index").
			Fatal().WithContext("path", cookbook).Build()
	}
	st.logger.Info("Examples rendered",
		logfields.Count(len(result.Pages())),
		slog.Int("entries", nav.Len()),
		slog.Int("tags", len(tags.Tags())),
		slog.Int("failures", len(result.Failures())))
	return nil
}

// stageDocs copies the documentation tree, publishes the project README as
// the index pages and rewrites asset paths in every page. The produced
// files are recorded in the manifest so the next reset removes them.
func (o *Orchestrator) stageDocs(_ context.Context, st *state) error {
	tree := &docstree.Tree{DocsDir: o.cfg.DocsPath(), PagesDir: o.cfg.PagesPath(), Logger: st.logger}

	copied, failures := tree.Copy()
	st.report.Failures = append(st.report.Failures, failures...)
	logFailures(st.logger, failures)
	st.generated = append(st.generated, copied...)

	if o.cfg.Source.Readme != "" {
		written, failures := tree.ProjectIndex(o.cfg.ReadmePath(), o.codes)
		st.report.Failures = append(st.report.Failures, failures...)
		logFailures(st.logger, failures)
		st.generated = append(st.generated, written...)
	}

	if err := o.ws.WriteManifest(st.generated); err != nil {
		return err
	}

	changed, failures, err := tree.RewritePages()
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to list pages").
			Fatal().WithContext("path", o.cfg.PagesPath()).Build()
	}
	st.report.Failures = append(st.report.Failures, failures...)
	logFailures(st.logger, failures)

	st.logger.Info("Documentation tree copied",
		logfields.Count(len(copied)),
		slog.Int("rewritten", len(changed)))
	return nil
}

func (o *Orchestrator) stageLinks(_ context.Context, st *state) error {
	n := linknorm.New(o.cfg.Source.RepositoryURL, filepath.ToSlash(o.cfg.Source.DocsDir))
	changed, failures, err := n.Run(o.cfg.PagesPath())
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to list pages").
			Fatal().WithContext("path", o.cfg.PagesPath()).Build()
	}
	st.report.Failures = append(st.report.Failures, failures...)
	logFailures(st.logger, failures)
	st.logger.Info("Links normalized", logfields.Count(len(changed)))
	return nil
}

func (o *Orchestrator) stageAudit(ctx context.Context, st *state) error {
	rep, err := audit.New(st.logger).Run(ctx, o.cfg.PagesPath())
	if err != nil {
		return err
	}
	st.report.Failures = append(st.report.Failures, rep.Failures...)
	st.report.Warnings = append(st.report.Warnings, rep.Warnings()...)
	return nil
}

func logFailures(logger *slog.Logger, failures []error) {
	for _, f := range failures {
		attrs := []any{logfields.Error(f)}
		if ce, ok := errors.AsClassified(f); ok {
			attrs = ce.LogAttrs()
		}
		logger.Warn("Skipping file", attrs...)
	}
}

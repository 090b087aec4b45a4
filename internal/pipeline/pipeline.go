// Package pipeline runs the site build: it resets the output workspace,
// relocates assets, renders example READMEs with their navigation, copies
// the documentation tree and normalizes links, in that order.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/eventstore"
	"git.home.luguber.info/inful/docsite/internal/examples"
	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/git"
	"git.home.luguber.info/inful/docsite/internal/locale"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/metrics"
	"git.home.luguber.info/inful/docsite/internal/notify"
	"git.home.luguber.info/inful/docsite/internal/workspace"
)

// Orchestrator runs pipeline stages against one configuration.
type Orchestrator struct {
	cfg      *config.Config
	codes    locale.Codes
	ws       *workspace.Manager
	recorder metrics.Recorder
	store    eventstore.Store
	notifier notify.Notifier
	sync     SourceSync
	logger   *slog.Logger
}

// SourceSync refreshes the source checkout before the stages run.
type SourceSync func(ctx context.Context) (git.Result, error)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithStore records run events in the build ledger.
func WithStore(s eventstore.Store) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithNotifier publishes a notice after every run.
func WithNotifier(n notify.Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithSourceSync runs fn as the first stage of every build.
func WithSourceSync(fn SourceSync) Option {
	return func(o *Orchestrator) { o.sync = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates an orchestrator for cfg.
func New(cfg *config.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg: cfg,
		codes: locale.Codes{
			Default:   cfg.Locales.Default,
			Secondary: cfg.Locales.Secondary,
			Marker:    cfg.Locales.SecondaryMarker,
		},
		recorder: metrics.NoopRecorder{},
		notifier: notify.Noop{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.ws = workspace.NewManager(workspace.Layout{
		PagesDir:        cfg.PagesPath(),
		CookbookDir:     cfg.CookbookPath(),
		PublicAssetsDir: cfg.PublicAssetsPath(),
	}, o.logger)
	return o
}

// Run executes every stage and returns the report. The returned error is
// the fatal error that aborted the run, or a validation error when strict
// mode is on and files were skipped; the report is returned in both cases.
func (o *Orchestrator) Run(ctx context.Context, trigger string) (*Report, error) {
	report := newReport(uuid.NewString(), trigger)
	logger := o.logger.With(logfields.RunID(report.RunID))
	logger.Info("Build started",
		slog.String("trigger", trigger),
		logfields.Path(o.cfg.Source.Root))

	o.appendEvent(ctx, logger, func() (*eventstore.BaseEvent, error) {
		return eventstore.NewBuildStarted(report.RunID, eventstore.BuildStartedPayload{
			SourceRoot: o.cfg.Source.Root,
			OutputRoot: o.cfg.Output.Root,
			Trigger:    trigger,
		})
	})

	st := &state{report: report, logger: logger}
	type step struct {
		name Stage
		run  func(context.Context, *state) error
	}
	var stages []step
	if o.sync != nil {
		stages = append(stages, step{StageSync, o.stageSync})
	}
	stages = append(stages, []step{
		{StageReset, o.stageReset},
		{StageAssets, o.stageAssets},
		{StageExamples, o.stageExamples},
		{StageDocs, o.stageDocs},
		{StageLinks, o.stageLinks},
	}...)
	if o.cfg.Build.Audit {
		stages = append(stages, step{StageAudit, o.stageAudit})
	}

	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			report.Err = errors.WrapError(err, errors.CategoryRuntime, "build canceled").
				WithContext("stage", string(s.name)).Build()
			break
		}
		if err := o.runStage(ctx, st, s.name, s.run); err != nil {
			report.Err = err
			break
		}
	}

	if report.Err == nil {
		pages, fps, err := fingerprintPages(o.cfg.PagesPath())
		if err != nil {
			logger.Warn("Failed to fingerprint pages", logfields.Error(err))
		} else {
			report.Pages = pages
			report.Fingerprints = fps
		}
		report.Changed = o.changedSinceLastRun(ctx, logger, report)
	}

	report.finish()
	o.recordBuild(report)
	o.appendEvent(ctx, logger, func() (*eventstore.BaseEvent, error) {
		return eventstore.NewBuildCompleted(report.RunID, report.Summary())
	})
	if err := o.notifier.Notify(ctx, report.Notice()); err != nil {
		logger.Warn("Failed to publish build notice", logfields.Error(err))
	}

	attrs := []any{
		slog.String("outcome", string(report.Outcome)),
		logfields.Count(len(report.Pages)),
		slog.Int("failures", len(report.Failures)),
		slog.Int("warnings", len(report.Warnings)),
		logfields.DurationMS(float64(report.Duration().Milliseconds())),
	}
	if report.Err != nil {
		logger.Error("Build failed", append(attrs, logfields.Error(report.Err))...)
		return report, report.Err
	}
	logger.Info("Build completed", attrs...)

	if o.cfg.Build.Strict && len(report.Failures) > 0 {
		return report, errors.ValidationError("files were skipped in strict mode").
			WithContext("failures", len(report.Failures)).
			WithContext("run_id", report.RunID).
			Build()
	}
	return report, nil
}

// state carries what earlier stages produced to later ones.
type state struct {
	report    *Report
	logger    *slog.Logger
	examples  []examples.Example
	generated []string // docs-tree pages for the manifest, relative to the pages root
}

func (o *Orchestrator) runStage(ctx context.Context, st *state, name Stage, run func(context.Context, *state) error) error {
	start := time.Now()
	failuresBefore := len(st.report.Failures)
	warningsBefore := len(st.report.Warnings)

	err := run(ctx, st)
	d := time.Since(start)

	result := metrics.ResultSuccess
	switch {
	case err != nil:
		result = metrics.ResultFatal
	case len(st.report.Failures) > failuresBefore || len(st.report.Warnings) > warningsBefore:
		result = metrics.ResultWarning
	}

	st.report.StageDurations[name] = d
	st.report.StageResults[name] = result
	o.recorder.ObserveStageDuration(string(name), d)
	o.recorder.IncStageResult(string(name), result)
	o.appendEvent(ctx, st.logger, func() (*eventstore.BaseEvent, error) {
		return eventstore.NewStageCompleted(st.report.RunID, string(name), string(result), d)
	})
	st.logger.Debug("Stage completed",
		logfields.Stage(string(name)),
		slog.String("result", string(result)),
		logfields.DurationMS(float64(d.Milliseconds())))
	return err
}

func (o *Orchestrator) recordBuild(r *Report) {
	o.recorder.ObserveBuildDuration(r.Duration())
	o.recorder.IncBuildOutcome(r.Outcome)
	for code, n := range r.PagesByLocale {
		o.recorder.AddPagesWritten(code, n)
	}
	for _, f := range r.Failures {
		category := string(errors.CategoryInternal)
		if ce, ok := errors.AsClassified(f); ok {
			category = string(ce.Category())
		}
		o.recorder.IncFileFailure(category)
	}
	o.recorder.AddLinkWarnings(len(r.Warnings))
}

// appendEvent writes to the ledger when one is configured. Ledger failures
// never fail the build.
func (o *Orchestrator) appendEvent(ctx context.Context, logger *slog.Logger, build func() (*eventstore.BaseEvent, error)) {
	if o.store == nil {
		return
	}
	event, err := build()
	if err == nil {
		err = eventstore.AppendEvent(ctx, o.store, event)
	}
	if err != nil {
		logger.Warn("Failed to record build event", logfields.Error(err))
	}
}

func (o *Orchestrator) changedSinceLastRun(ctx context.Context, logger *slog.Logger, r *Report) []string {
	if o.store == nil {
		return nil
	}
	history := eventstore.NewHistoryProjection(o.store, 1)
	if err := history.Rebuild(ctx); err != nil {
		logger.Warn("Failed to read build history", logfields.Error(err))
		return nil
	}
	return eventstore.ChangedPages(history.LastCompleted(), r.summaryRun())
}

// Package schedule runs the sync-and-build cycle periodically.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/logfields"
)

// Task is one scheduled unit of work.
type Task func(ctx context.Context) error

// Scheduler wraps a gocron scheduler running a single site job.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a scheduler. Call Start to begin running jobs.
func New(logger *slog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRuntime, "failed to create scheduler").Build()
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{scheduler: s, logger: logger, ctx: ctx, cancel: cancel}, nil
}

// Add registers task on a cron expression when cron is set, otherwise on a
// fixed interval. Runs never overlap: a tick that arrives while the
// previous run is still going is skipped. Returns the job id.
func (s *Scheduler) Add(name string, interval time.Duration, cron string, task Task) (string, error) {
	var def gocron.JobDefinition
	switch {
	case cron != "":
		def = gocron.CronJob(cron, false)
	case interval > 0:
		def = gocron.DurationJob(interval)
	default:
		return "", errors.ValidationError("schedule needs an interval or a cron expression").
			WithContext("job", name).Build()
	}

	job, err := s.scheduler.NewJob(
		def,
		gocron.NewTask(s.execute, name, task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryConfig, fmt.Sprintf("failed to schedule %s job", name)).
			WithContext("interval", interval.String()).
			WithContext("cron", cron).
			Build()
	}
	s.logger.Info("Scheduled job",
		slog.String("job", name),
		slog.Duration("interval", interval),
		slog.String("cron", cron))
	return job.ID().String(), nil
}

// RunNow triggers every registered job once, outside its schedule.
func (s *Scheduler) RunNow() error {
	for _, job := range s.scheduler.Jobs() {
		if err := job.RunNow(); err != nil {
			return errors.WrapError(err, errors.CategoryRuntime, "failed to trigger job").
				WithContext("job", job.Name()).Build()
		}
	}
	return nil
}

// NextRun returns the next scheduled time of the named job.
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	for _, job := range s.scheduler.Jobs() {
		if job.Name() != name {
			continue
		}
		next, err := job.NextRun()
		if err != nil {
			return time.Time{}, false
		}
		return next, true
	}
	return time.Time{}, false
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop cancels running tasks and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	s.cancel()
	return s.scheduler.Shutdown()
}

// execute is called by gocron for every tick.
func (s *Scheduler) execute(name string, task Task) {
	start := time.Now()
	s.logger.Info("Executing scheduled job", slog.String("job", name))
	if err := task(s.ctx); err != nil {
		s.logger.Error("Scheduled job failed",
			slog.String("job", name),
			logfields.Error(err),
			logfields.DurationMS(float64(time.Since(start).Milliseconds())))
		return
	}
	s.logger.Info("Scheduled job finished",
		slog.String("job", name),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
}

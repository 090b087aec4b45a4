package commands

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/schedule"
)

// ScheduleCmd implements the 'schedule' command.
type ScheduleCmd struct {
	Interval    time.Duration `help:"Override schedule.interval"`
	Cron        string        `help:"Override schedule.cron"`
	Now         bool          `help:"Run once immediately before waiting for the schedule"`
	MetricsAddr string        `name:"metrics-addr" help:"Serve /metrics and /healthz on this address"`
}

func (s *ScheduleCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	if s.Interval > 0 {
		cfg.Schedule.Interval = s.Interval
		cfg.Schedule.Cron = ""
	}
	if s.Cron != "" {
		cfg.Schedule.Cron = s.Cron
	}
	if cfg.Schedule.Interval <= 0 && cfg.Schedule.Cron == "" {
		return errors.ConfigError("schedule.interval or schedule.cron is required").Build()
	}
	log := logger(g)

	ctx, cancel := signalContext()
	defer cancel()

	rt, err := newRuntime(ctx, cfg, log, runtimeOptions{syncSource: true, metrics: s.MetricsAddr != ""})
	if err != nil {
		return err
	}
	defer rt.Close()
	if err := rt.serve(ctx, s.MetricsAddr); err != nil {
		return err
	}

	sched, err := schedule.New(log)
	if err != nil {
		return err
	}
	if _, err := sched.Add("site", cfg.Schedule.Interval, cfg.Schedule.Cron, func(ctx context.Context) error {
		_, err := rt.build(ctx, "schedule")
		return err
	}); err != nil {
		return err
	}
	sched.Start()
	if next, ok := sched.NextRun("site"); ok {
		log.Info("Next scheduled build", slog.Time("at", next))
	}
	if s.Now {
		if err := sched.RunNow(); err != nil {
			log.Warn("Failed to trigger immediate build", logfields.Error(err))
		}
	}

	<-ctx.Done()
	return sched.Stop()
}

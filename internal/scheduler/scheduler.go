package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/eazycard/eazycard/internal/statement"
)

// StatementRunner sends the weekly statements.
type StatementRunner interface {
	SendWeekly(ctx context.Context) (statement.Report, error)
}

// Scheduler triggers the weekly statement run on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	runner   StatementRunner
	schedule string
	timeout  time.Duration
	logger   *slog.Logger
}

// New creates a scheduler. Nothing runs until Start.
func New(runner StatementRunner, schedule string, timeout time.Duration, logger *slog.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)), cron.WithLocation(time.UTC))

	return &Scheduler{
		cron:     c,
		runner:   runner,
		schedule: schedule,
		timeout:  timeout,
		logger:   logger,
	}
}

// Start registers the weekly statement job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.runWeekly); err != nil {
		return fmt.Errorf("schedule weekly statements %q: %w", s.schedule, err)
	}
	s.logger.Info("scheduled weekly statements", "schedule", s.schedule)
	s.cron.Start()
	return nil
}

// Stop stops the cron loop. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runWeekly() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	report, err := s.runner.SendWeekly(ctx)
	if err != nil {
		s.logger.Error("weekly statement run failed", "error", err)
		return
	}
	s.logger.Info("weekly statement run finished",
		"sent", report.Sent,
		"failed", len(report.Failures),
		"duration", time.Since(start),
	)
}

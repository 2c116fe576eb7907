// Package sweeper deletes login challenges nobody redeemed. Redemption
// already removes a challenge and its siblings; this catches the rest.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/p3tuh/notello/internal/metrics"
	"github.com/p3tuh/notello/internal/repository"
	"github.com/p3tuh/notello/internal/usecase"
	"github.com/robfig/cron/v3"
)

type Sweeper struct {
	repo      repository.ChallengeRepository
	schedule  cron.Schedule
	expr      string
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// New parses expr as a standard five-field cron expression or descriptor
// such as "@hourly".
func New(repo repository.ChallengeRepository, expr string, retention time.Duration, logger *slog.Logger) (*Sweeper, error) {
	if retention <= usecase.ChallengeMaxAge {
		return nil, fmt.Errorf("sweep retention %s must exceed the %s link validity", retention, usecase.ChallengeMaxAge)
	}
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", expr, err)
	}
	return &Sweeper{
		repo:      repo,
		schedule:  schedule,
		expr:      expr,
		retention: retention,
		logger:    logger.With("component", "sweeper"),
		now:       time.Now,
	}, nil
}

// Start sweeps on the schedule until ctx is cancelled, then waits for a
// running sweep to finish.
func (s *Sweeper) Start(ctx context.Context) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(s.schedule, cron.FuncJob(func() { _, _ = s.Sweep(ctx) }))
	c.Start()

	s.logger.Info("sweeper started", "schedule", s.expr, "retention", s.retention)

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("sweeper shut down")
}

// Sweep deletes every challenge issued before now minus the retention.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	start := time.Now()
	cutoff := s.now().Add(-s.retention)

	n, err := s.repo.DeleteIssuedBefore(ctx, cutoff)
	metrics.SweepDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.ErrorContext(ctx, "sweep login challenges", "error", err)
		return 0, err
	}

	metrics.SweptChallengesTotal.Add(float64(n))
	if n > 0 {
		s.logger.InfoContext(ctx, "swept login challenges", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Wikid82/warden/internal/logger"
	"github.com/Wikid82/warden/internal/services"
)

// SecretSweeper migrates and purges stored secrets.
type SecretSweeper interface {
	Sweep(ctx context.Context) (services.SweepReport, error)
}

// Scheduler owns the process-wide cron runner.
type Scheduler struct {
	Cron    *cron.Cron
	timeout time.Duration
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		Cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		timeout: 5 * time.Minute,
	}
}

// AddVaultSweep schedules sweeper on spec. An empty spec schedules nothing.
func (s *Scheduler) AddVaultSweep(spec string, sweeper SecretSweeper) error {
	if spec == "" {
		return nil
	}
	_, err := s.Cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		RunVaultSweep(ctx, sweeper)
	})
	if err != nil {
		return fmt.Errorf("schedule vault sweep %q: %w", spec, err)
	}
	return nil
}

// RunVaultSweep performs one sweep and logs its outcome.
func RunVaultSweep(ctx context.Context, sweeper SecretSweeper) {
	start := time.Now()
	report, err := sweeper.Sweep(ctx)
	log := logger.Log().WithField("scanned", report.Scanned).
		WithField("migrated", report.Migrated).
		WithField("purged", report.Purged).
		WithField("elapsed", time.Since(start).String())
	if err != nil {
		log.WithError(err).Error("vault sweep failed")
		return
	}
	if report.Migrated > 0 || report.Purged > 0 {
		log.Warn("vault sweep changed stored secrets")
		return
	}
	log.Debug("vault sweep complete")
}

func (s *Scheduler) Start() {
	s.Cron.Start()
}

// Stop halts scheduling and waits for a running job until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.Cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		logger.Log().Warn("cron job still running at shutdown")
	}
}

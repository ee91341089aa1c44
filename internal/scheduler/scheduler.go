// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mattepass-service/internal/domain/subscription"
	"mattepass-service/internal/pkg/clock"
	"mattepass-service/internal/pkg/lock"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const lifecycleTimeout = 4 * time.Minute

// Sweeper renews or expires subscriptions that reached their end date.
type Sweeper interface {
	ProcessDue(ctx context.Context, now time.Time) (*subscription.SweepResult, error)
}

// Scheduler runs the subscription lifecycle sweep on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  Sweeper
	clock    clock.Clock
	schedule string
	logger   *zap.Logger
}

func NewScheduler(sweeper Sweeper, clk clock.Clock, schedule string, logger *zap.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:     c,
		sweeper:  sweeper,
		clock:    clk,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the lifecycle job and starts the cron scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.RunLifecycle); err != nil {
		return fmt.Errorf("failed to schedule lifecycle job: %w", err)
	}
	s.logger.Info("scheduled subscription lifecycle job", zap.String("schedule", s.schedule))

	s.cron.Start()
	return nil
}

// Stop stops the scheduler. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunLifecycle performs one sweep.
func (s *Scheduler) RunLifecycle() {
	ctx, cancel := context.WithTimeout(context.Background(), lifecycleTimeout)
	defer cancel()

	s.logger.Info("starting subscription lifecycle job")
	result, err := s.sweeper.ProcessDue(ctx, s.clock.Now())
	if errors.Is(err, lock.ErrNotAcquired) {
		s.logger.Info("lifecycle job already running elsewhere, skipping")
		return
	}
	if err != nil {
		s.logger.Error("subscription lifecycle job failed", zap.Error(err))
		return
	}

	s.logger.Info("subscription lifecycle job finished",
		zap.Int("renewed", result.Renewed),
		zap.Int("expired", result.Expired),
		zap.Int("failed", result.Failed),
	)
}

package task

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const sweepTimeout = 5 * time.Minute

// Sweeper deletes uploads no product references
type Sweeper interface {
	SweepOrphans(ctx context.Context) (int, error)
}

// SweepTask runs the orphaned upload sweep on a cron schedule
type SweepTask struct {
	sweeper  Sweeper
	schedule string
	cron     *cron.Cron
	logger   *zap.Logger
}

// NewSweepTask creates a task for a six-field (with seconds) cron schedule.
// An empty schedule disables the task.
func NewSweepTask(sweeper Sweeper, schedule string, logger *zap.Logger) *SweepTask {
	return &SweepTask{
		sweeper:  sweeper,
		schedule: schedule,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger,
	}
}

// Start registers the job and starts the scheduler
func (t *SweepTask) Start() error {
	if t.schedule == "" {
		t.logger.Info("Upload sweep disabled")
		return nil
	}

	if _, err := t.cron.AddFunc(t.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		t.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", t.schedule, err)
	}

	t.cron.Start()
	t.logger.Info("Upload sweep scheduled", zap.String("schedule", t.schedule))
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish
func (t *SweepTask) Stop(ctx context.Context) {
	select {
	case <-t.cron.Stop().Done():
	case <-ctx.Done():
		t.logger.Warn("Upload sweep still running at shutdown")
	}
}

// RunOnce performs a single sweep
func (t *SweepTask) RunOnce(ctx context.Context) {
	start := time.Now()
	removed, err := t.sweeper.SweepOrphans(ctx)
	if err != nil {
		t.logger.Error("Upload sweep failed", zap.Error(err), zap.Int("removed", removed))
		return
	}
	t.logger.Debug("Upload sweep finished",
		zap.Int("removed", removed),
		zap.Duration("duration", time.Since(start)),
	)
}

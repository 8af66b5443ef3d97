package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) SweepOrphans(ctx context.Context) (int, error) {
	s.calls.Add(1)
	return 0, s.err
}

func TestSweepTask_RunOnce(t *testing.T) {
	sweeper := &countingSweeper{}
	task := NewSweepTask(sweeper, "", zap.NewNop())

	task.RunOnce(context.Background())
	assert.Equal(t, int32(1), sweeper.calls.Load())

	sweeper.err = errors.New("disk unavailable")
	task.RunOnce(context.Background())
	assert.Equal(t, int32(2), sweeper.calls.Load())
}

func TestSweepTask_EmptyScheduleDisables(t *testing.T) {
	sweeper := &countingSweeper{}
	task := NewSweepTask(sweeper, "", zap.NewNop())

	require.NoError(t, task.Start())
	task.Stop(context.Background())
	assert.Zero(t, sweeper.calls.Load())
}

func TestSweepTask_InvalidSchedule(t *testing.T) {
	task := NewSweepTask(&countingSweeper{}, "every tuesday", zap.NewNop())
	assert.Error(t, task.Start())
}

func TestSweepTask_RunsOnSchedule(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping scheduler test in short mode")
	}

	sweeper := &countingSweeper{}
	task := NewSweepTask(sweeper, "* * * * * *", zap.NewNop())
	require.NoError(t, task.Start())

	assert.Eventually(t, func() bool { return sweeper.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	task.Stop(ctx)
}

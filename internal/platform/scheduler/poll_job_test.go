package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/campus-ai/internal/core/aitask"
)

type stubPoller struct {
	RunBatchFunc  func(ctx context.Context) (aitask.BatchReport, error)
	ReapStaleFunc func(ctx context.Context, olderThan time.Duration) (int, error)

	runs  atomic.Int32
	reaps atomic.Int32
}

func (s *stubPoller) RunBatch(ctx context.Context) (aitask.BatchReport, error) {
	s.runs.Add(1)
	if s.RunBatchFunc != nil {
		return s.RunBatchFunc(ctx)
	}
	return aitask.BatchReport{}, nil
}

func (s *stubPoller) ReapStale(ctx context.Context, olderThan time.Duration) (int, error) {
	s.reaps.Add(1)
	if s.ReapStaleFunc != nil {
		return s.ReapStaleFunc(ctx, olderThan)
	}
	return 0, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPollJob_Run(t *testing.T) {
	tests := []struct {
		name      string
		stale     time.Duration
		reapErr   error
		batchErr  error
		wantErr   bool
		wantReaps int32
	}{
		{name: "回収とバッチ処理", stale: 15 * time.Minute, wantReaps: 1},
		{name: "回収無効", stale: 0, wantReaps: 0},
		{name: "回収失敗でもバッチは実行", stale: time.Minute, reapErr: errors.New("boom"), wantReaps: 1},
		{name: "バッチ失敗", stale: 0, batchErr: errors.New("db down"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotOlderThan time.Duration
			poller := &stubPoller{
				RunBatchFunc: func(ctx context.Context) (aitask.BatchReport, error) {
					return aitask.BatchReport{Found: 1, Succeeded: 1}, tt.batchErr
				},
				ReapStaleFunc: func(ctx context.Context, olderThan time.Duration) (int, error) {
					gotOlderThan = olderThan
					return 2, tt.reapErr
				},
			}
			job := NewPollJob(PollJobConfig{CronSchedule: "@every 1m", StaleAfter: tt.stale}, poller, discardLogger())

			err := job.Run(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, int32(1), poller.runs.Load())
			assert.Equal(t, tt.wantReaps, poller.reaps.Load())
			if tt.wantReaps > 0 {
				assert.Equal(t, tt.stale, gotOlderThan)
			}
		})
	}
}

func TestPollJob_StartRejectsInvalidSchedule(t *testing.T) {
	job := NewPollJob(PollJobConfig{CronSchedule: "every minute please"}, &stubPoller{}, discardLogger())

	assert.Error(t, job.Start(context.Background()))
}

func TestPollJob_StartRunsOnSchedule(t *testing.T) {
	poller := &stubPoller{}
	job := NewPollJob(PollJobConfig{CronSchedule: "@every 1s"}, poller, discardLogger())

	require.NoError(t, job.Start(context.Background()))
	t.Cleanup(job.Stop)

	assert.Eventually(t, func() bool { return poller.runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

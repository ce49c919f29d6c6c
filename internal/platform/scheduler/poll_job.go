package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jinford/campus-ai/internal/core/aitask"
)

// TaskPoller は PollJob が1回の実行で呼び出す処理
type TaskPoller interface {
	RunBatch(ctx context.Context) (aitask.BatchReport, error)
	ReapStale(ctx context.Context, olderThan time.Duration) (int, error)
}

// PollJobConfig はポーリングジョブの設定です
type PollJobConfig struct {
	CronSchedule string        // Cron形式のスケジュール（例: "@every 1m", "*/5 * * * *"）
	StaleAfter   time.Duration // processing のまま放置されたタスクを失敗にするまでの時間（0 で無効）
}

// PollJob は pending のAIタスクを定期的に処理するジョブです
type PollJob struct {
	config PollJobConfig
	poller TaskPoller
	cron   *cron.Cron
	logger *slog.Logger

	// 前回の実行が終わっていない場合は次の実行をスキップする
	running sync.Mutex
}

// NewPollJob は新しい PollJob を作成します
func NewPollJob(config PollJobConfig, poller TaskPoller, logger *slog.Logger) *PollJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &PollJob{
		config: config,
		poller: poller,
		cron:   cron.New(),
		logger: logger,
	}
}

// Start はスケジューラーを起動します
func (j *PollJob) Start(ctx context.Context) error {
	_, err := j.cron.AddFunc(j.config.CronSchedule, func() {
		if !j.running.TryLock() {
			j.logger.Warn("前回のポーリングが実行中のためスキップします")
			return
		}
		defer j.running.Unlock()

		if err := j.Run(ctx); err != nil {
			j.logger.Error("AIタスクのポーリングに失敗しました", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("cron ジョブの登録に失敗: %w", err)
	}

	j.cron.Start()
	j.logger.Info("AIタスクのポーリングジョブを開始しました", "schedule", j.config.CronSchedule)

	return nil
}

// Stop はスケジューラーを停止し、実行中のジョブの終了を待ちます
func (j *PollJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("AIタスクのポーリングジョブを停止しました")
}

// Run は停滞タスクの回収と1バッチの処理を行います（手動実行可能）
func (j *PollJob) Run(ctx context.Context) error {
	if j.config.StaleAfter > 0 {
		reaped, err := j.poller.ReapStale(ctx, j.config.StaleAfter)
		if err != nil {
			// 回収に失敗してもポーリングは続ける
			j.logger.Error("停滞タスクの回収に失敗しました", "error", err)
		} else if reaped > 0 {
			j.logger.Warn("停滞タスクを失敗にしました", "count", reaped)
		}
	}

	report, err := j.poller.RunBatch(ctx)
	if err != nil {
		return fmt.Errorf("バッチ処理に失敗: %w", err)
	}

	j.logger.Info("AIタスクのポーリングが完了しました",
		"found", report.Found,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"skipped", report.Skipped)

	return nil
}

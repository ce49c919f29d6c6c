package aitask

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jinford/campus-ai/internal/core/document"
)

// DefaultBatchSize は1回のポーリングで取得するタスクの上限
const DefaultBatchSize = 10

const staleTaskMessage = "processing timed out"

// BatchReport は1回のポーリングの集計
type BatchReport struct {
	Found     int `json:"found"`
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Poller は pending のタスクを取得して1件ずつ処理する
//
// 1回の呼び出しで1バッチだけ処理する。実行間隔は外部のスケジューラが決める。
type Poller struct {
	runner
	batchSize int
}

// PollerOption は Poller 構築時のオプション
type PollerOption func(*Poller)

// WithPollerLogger はロガーを差し替える
func WithPollerLogger(logger *slog.Logger) PollerOption {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithBatchSize は1回に取得するタスク数を指定する
func WithBatchSize(n int) PollerOption {
	return func(p *Poller) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// NewPoller は新しい Poller を作成する
func NewPoller(processor *Processor, store document.Store, opts ...PollerOption) *Poller {
	p := &Poller{
		runner: runner{
			processor: processor,
			store:     store,
			logger:    slog.Default(),
		},
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunBatch は pending のタスクを最大 batchSize 件処理する
// 取得順序はストアに依存し、作成順とは限らない
func (p *Poller) RunBatch(ctx context.Context) (BatchReport, error) {
	p.logger.Info("AIタスクのポーリングを開始します", "batchSize", p.batchSize)

	docs, err := p.store.Query(ctx, CollectionTasks,
		document.Filter{Field: "status", Value: string(StatusPending)}, p.batchSize)
	if err != nil {
		return BatchReport{}, fmt.Errorf("failed to query pending tasks: %w", err)
	}

	report := BatchReport{Found: len(docs)}
	if len(docs) == 0 {
		p.logger.Info("処理待ちのAIタスクはありません")
		return report, nil
	}

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		task := TaskFromDocument(doc)
		result := p.claimAndProcess(ctx, task)

		if result.Status != OutcomeSkipped {
			report.Processed++
		}
		switch result.Status {
		case OutcomeSuccess:
			report.Succeeded++
		case OutcomeSkipped:
			report.Skipped++
		default:
			report.Failed++
		}
		p.logger.Info("AIタスクの処理が終了しました", "taskID", task.ID, "status", result.Status, "kind", result.Kind)
	}

	return report, nil
}

// ReapStale は olderThan 以上 processing のままのタスクを failed にする
//
// 処理途中でプロセスが停止したタスクを終端状態にするためのもので、再実行はしない。
func (p *Poller) ReapStale(ctx context.Context, olderThan time.Duration) (int, error) {
	// processing のタスクは件数を制限せずすべて確認する
	docs, err := p.store.Query(ctx, CollectionTasks,
		document.Filter{Field: "status", Value: string(StatusProcessing)}, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to query processing tasks: %w", err)
	}

	now := p.now()
	reaped := 0
	for _, doc := range docs {
		task := TaskFromDocument(doc)
		if task.StartedAt != nil && now.Sub(*task.StartedAt) < olderThan {
			continue
		}

		applied, err := p.store.UpdateIf(ctx, CollectionTasks, task.ID,
			document.Filter{Field: "status", Value: string(StatusProcessing)},
			document.Fields{
				"status":   string(StatusFailed),
				"error":    staleTaskMessage,
				"failedAt": now,
			},
		)
		if err != nil {
			return reaped, fmt.Errorf("failed to reap task %s: %w", task.ID, err)
		}
		if applied {
			reaped++
			p.logger.Warn("停滞したAIタスクを失敗にしました", "taskID", task.ID, "startedAt", task.StartedAt)
		}
	}
	return reaped, nil
}

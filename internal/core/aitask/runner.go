package aitask

import (
	"context"
	"log/slog"
	"time"

	"github.com/jinford/campus-ai/internal/core/document"
)

// runner は取得済みタスクを processing に遷移させてから Processor に渡す
type runner struct {
	processor *Processor
	store     document.Store
	logger    *slog.Logger
}

func (r runner) now() time.Time {
	return r.processor.now()
}

// claimAndProcess はタスクを取得して処理する
// 他のワーカーが先に取得していた場合は skipped を返す
func (r runner) claimAndProcess(ctx context.Context, task Task) Result {
	claimed, err := claimTask(ctx, r.store, task.ID, r.now())
	if err != nil {
		r.logger.Error("タスクの取得に失敗しました", "taskID", task.ID, "error", err)
		return Result{Status: OutcomeError, Kind: KindInternal, Message: err.Error(), TaskID: task.ID}
	}
	if !claimed {
		r.logger.Info("他のワーカーが取得済みのためスキップします", "taskID", task.ID)
		return Result{Status: OutcomeSkipped, TaskID: task.ID, Message: "task already claimed"}
	}

	result := r.processor.Process(ctx, task)

	// Processor がタスクを更新しない種別の結果は、ここで終端状態にする
	if result.unresolved() {
		if err := failClaimedTask(ctx, r.store, task.ID, result.Message, r.now()); err != nil {
			r.logger.Error("タスクの失敗状態を書き込めませんでした", "taskID", task.ID, "error", err)
		}
	}
	return result
}

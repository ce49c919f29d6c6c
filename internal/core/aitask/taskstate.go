package aitask

import (
	"context"
	"fmt"
	"time"

	"github.com/jinford/campus-ai/internal/core/document"
)

// タスクの状態更新はすべて部分マージで行う。
// スタンドアロン実行の一時タスクはドキュメントが存在しないため Set で作成される。

// terminalWriteTimeout は終端状態の書き込みに与える猶予
const terminalWriteTimeout = 10 * time.Second

// terminalContext は呼び出し元のキャンセルから切り離したコンテキストを返す
// LLM 呼び出しがキャンセルされても completed / failed は書き込む必要がある
func terminalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout)
}

func claimTask(ctx context.Context, store document.Store, taskID string, now time.Time) (bool, error) {
	applied, err := store.UpdateIf(ctx, CollectionTasks, taskID,
		document.Filter{Field: "status", Value: string(StatusPending)},
		document.Fields{
			"status":    string(StatusProcessing),
			"startedAt": now,
		},
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim task %s: %w", taskID, err)
	}
	return applied, nil
}

func completeTask(ctx context.Context, store document.Store, taskID string, result any, now time.Time) error {
	ctx, cancel := terminalContext(ctx)
	defer cancel()

	err := store.Set(ctx, CollectionTasks, taskID, document.Fields{
		"status":      string(StatusCompleted),
		"result":      result,
		"completedAt": now,
	})
	if err != nil {
		return fmt.Errorf("failed to mark task %s completed: %w", taskID, err)
	}
	return nil
}

func failedFields(message string, now time.Time) document.Fields {
	return document.Fields{
		"status":   string(StatusFailed),
		"error":    message,
		"failedAt": now,
	}
}

func failTask(ctx context.Context, store document.Store, taskID, message string, now time.Time) error {
	ctx, cancel := terminalContext(ctx)
	defer cancel()

	if err := store.Set(ctx, CollectionTasks, taskID, failedFields(message, now)); err != nil {
		return fmt.Errorf("failed to mark task %s failed: %w", taskID, err)
	}
	return nil
}

// failClaimedTask は processing のタスクだけを failed にする
// ハンドラが既に終端状態を書き込んでいた場合は何もしない
func failClaimedTask(ctx context.Context, store document.Store, taskID, message string, now time.Time) error {
	ctx, cancel := terminalContext(ctx)
	defer cancel()

	_, err := store.UpdateIf(ctx, CollectionTasks, taskID,
		document.Filter{Field: "status", Value: string(StatusProcessing)},
		failedFields(message, now),
	)
	if err != nil {
		return fmt.Errorf("failed to mark task %s failed: %w", taskID, err)
	}
	return nil
}

// fail はタスクを failed に更新し、処理失敗の結果を返す
func (p *Processor) fail(ctx context.Context, task Task, cause error) Result {
	message := cause.Error()
	if err := failTask(ctx, p.store, task.ID, message, p.now()); err != nil {
		p.logger.Error("タスクの失敗状態を書き込めませんでした", "taskID", task.ID, "error", err)
	}
	return errorResult(KindProcessing, message)
}

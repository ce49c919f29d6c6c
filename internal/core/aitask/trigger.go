package aitask

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jinford/campus-ai/internal/core/document"
)

// Trigger はドキュメント作成イベントを受けて単一のタスクを処理する
type Trigger struct {
	runner
}

// TriggerOption は Trigger 構築時のオプション
type TriggerOption func(*Trigger)

// WithTriggerLogger はロガーを差し替える
func WithTriggerLogger(logger *slog.Logger) TriggerOption {
	return func(t *Trigger) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTrigger は新しい Trigger を作成する
func NewTrigger(processor *Processor, store document.Store, opts ...TriggerOption) *Trigger {
	t := &Trigger{
		runner: runner{
			processor: processor,
			store:     store,
			logger:    slog.Default(),
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Handle はイベントが指すタスクを読み込み、pending であれば処理する
func (t *Trigger) Handle(ctx context.Context, ev Event) Result {
	path, err := ResolveDocumentPath(ev)
	if err != nil {
		t.logger.Error("イベントからドキュメントパスを特定できません", "resource", ev.Resource)
		return errorResult(KindValidation, err.Error())
	}

	collection, id, err := document.ParsePath(path)
	if err != nil {
		return errorResult(KindValidation, err.Error())
	}
	if collection != CollectionTasks {
		return errorResult(KindValidation, fmt.Sprintf("unexpected collection %q", collection))
	}

	doc, err := t.store.Get(ctx, collection, id)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			t.logger.Warn("AIタスクが見つかりません", "path", path)
			return Result{Status: OutcomeError, Kind: KindNotFound, Message: "task not found", TaskID: id}
		}
		t.logger.Error("AIタスクの取得に失敗しました", "path", path, "error", err)
		return Result{Status: OutcomeError, Kind: KindInternal, Message: err.Error(), TaskID: id}
	}

	task := TaskFromDocument(doc)
	if task.Status != StatusPending {
		t.logger.Info("pending ではないためスキップします", "taskID", task.ID, "status", task.Status)
		return Result{Status: OutcomeSkipped, TaskID: task.ID, CurrentStatus: task.Status}
	}

	result := t.claimAndProcess(ctx, task)
	t.logger.Info("AIタスクを処理しました", "taskID", task.ID, "status", result.Status)
	return result
}

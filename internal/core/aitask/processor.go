package aitask

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jinford/campus-ai/internal/core/document"
)

// Processor はAIタスクを種別ごとのハンドラへ振り分けて処理する
type Processor struct {
	store   document.Store
	llm     LLMClient
	trimmer TokenTrimmer
	logger  *slog.Logger
	now     func() time.Time
}

// ProcessorOption は Processor 構築時のオプション
type ProcessorOption func(*Processor)

// WithProcessorLogger はロガーを差し替える
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock は時刻の取得元を差し替える
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// WithTokenTrimmer はプロンプトに埋め込む自由記述の切り詰め方を指定する
func WithTokenTrimmer(trimmer TokenTrimmer) ProcessorOption {
	return func(p *Processor) {
		p.trimmer = trimmer
	}
}

// NewProcessor は新しい Processor を作成する
func NewProcessor(store document.Store, llm LLMClient, opts ...ProcessorOption) *Processor {
	p := &Processor{
		store:  store,
		llm:    llm,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process はタスク種別に応じたハンドラを実行する
//
// ハンドラはエラーを Result に変換して返すため、ここで panic を捕捉するのは
// 想定外の不具合に対する最後の受け皿である。
func (p *Processor) Process(ctx context.Context, task Task) (result Result) {
	p.logger.Info("AIタスクを処理します", "taskID", task.ID, "type", task.Type)

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("AIタスクの処理中に予期しないエラーが発生しました", "taskID", task.ID, "panic", r)
			result = errorResult(KindInternal, fmt.Sprint(r))
		}
		result.TaskID = task.ID
	}()

	switch task.Type {
	case TypeGenerateListingDescription:
		return p.generateListingDescription(ctx, task)
	case TypeModerateContent:
		return p.moderateContent(ctx, task)
	default:
		p.logger.Warn("未知のタスク種別です", "taskID", task.ID, "type", task.Type)
		return errorResult(KindUnknownType, fmt.Sprintf("Unknown task type: %s", task.Type))
	}
}

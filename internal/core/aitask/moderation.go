package aitask

import (
	"context"
	"errors"
	"fmt"

	"github.com/jinford/campus-ai/internal/core/document"
)

const reviewStatus = "under_review"

// contentCollection はコンテンツ種別に対応するコレクション名を返す
func contentCollection(contentType ContentType) (string, bool) {
	switch contentType {
	case ContentTypePost:
		return CollectionPosts, true
	case ContentTypeComment:
		return CollectionComments, true
	default:
		return "", false
	}
}

func (p *Processor) moderateContent(ctx context.Context, task Task) Result {
	if task.ContentID == "" || task.ContentType == "" {
		return errorResult(KindValidation, "Content ID and type are required")
	}

	collection, ok := contentCollection(task.ContentType)
	if !ok {
		return errorResult(KindValidation, fmt.Sprintf("Unsupported content type: %s", task.ContentType))
	}

	content, err := p.store.Get(ctx, collection, task.ContentID)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return errorResult(KindNotFound, "Content not found")
		}
		p.logger.Error("コンテンツの取得に失敗しました", "contentID", task.ContentID, "error", err)
		return p.fail(ctx, task, err)
	}

	resp, err := p.llm.GenerateCompletion(ctx, CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: moderationSystemPrompt},
			{Role: RoleUser, Content: buildModerationPrompt(moderationText(task.ContentType, content), p.trimmer)},
		},
		MaxTokens:      moderationMaxTokens,
		Temperature:    moderationTemperature,
		ResponseFormat: ResponseFormatJSON,
	})
	if err != nil {
		p.logger.Error("モデレーションに失敗しました", "contentID", task.ContentID, "error", err)
		return p.fail(ctx, task, fmt.Errorf("failed to moderate content: %w", err))
	}

	verdict, err := ParseVerdict(resp.Content)
	if err != nil {
		p.logger.Warn("モデレーション結果を解析できないため問題なしとして扱います",
			"contentID", task.ContentID, "taskID", task.ID, "error", err)
		verdict = FallbackVerdict()
	}

	now := p.now()
	update := document.Fields{
		"moderated":        true,
		"moderationResult": verdict.Fields(),
		"moderatedAt":      now,
	}
	if !verdict.Appropriate {
		update["status"] = reviewStatus
		update["moderationFlag"] = true
	}

	if err := p.store.Update(ctx, collection, task.ContentID, update); err != nil {
		p.logger.Error("コンテンツの更新に失敗しました", "contentID", task.ContentID, "error", err)
		return p.fail(ctx, task, err)
	}

	if err := completeTask(ctx, p.store, task.ID, verdict.Fields(), now); err != nil {
		p.logger.Error("タスクの完了状態を書き込めませんでした", "taskID", task.ID, "error", err)
		return p.fail(ctx, task, err)
	}

	p.logger.Info("コンテンツをモデレーションしました",
		"contentType", task.ContentType, "contentID", task.ContentID, "appropriate", verdict.Appropriate)
	return Result{Status: OutcomeSuccess, Moderation: &verdict}
}

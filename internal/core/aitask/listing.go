package aitask

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jinford/campus-ai/internal/core/document"
)

func (p *Processor) generateListingDescription(ctx context.Context, task Task) Result {
	if task.ListingID == "" {
		return errorResult(KindValidation, "Listing ID is required")
	}

	listing, err := p.store.Get(ctx, CollectionListings, task.ListingID)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return errorResult(KindNotFound, "Listing not found")
		}
		p.logger.Error("出品情報の取得に失敗しました", "listingID", task.ListingID, "error", err)
		return p.fail(ctx, task, err)
	}

	resp, err := p.llm.GenerateCompletion(ctx, CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: listingSystemPrompt},
			{Role: RoleUser, Content: buildListingPrompt(listing, p.trimmer)},
		},
		MaxTokens:   listingMaxTokens,
		Temperature: listingTemperature,
	})
	if err != nil {
		p.logger.Error("説明文の生成に失敗しました", "listingID", task.ListingID, "error", err)
		return p.fail(ctx, task, fmt.Errorf("failed to generate listing description: %w", err))
	}

	description := strings.TrimSpace(resp.Content)
	now := p.now()

	if err := p.store.Update(ctx, CollectionListings, task.ListingID, document.Fields{
		"aiDescription": description,
		"aiGeneratedAt": now,
		"updatedAt":     now,
	}); err != nil {
		p.logger.Error("出品情報の更新に失敗しました", "listingID", task.ListingID, "error", err)
		return p.fail(ctx, task, err)
	}

	if err := completeTask(ctx, p.store, task.ID, description, now); err != nil {
		p.logger.Error("タスクの完了状態を書き込めませんでした", "taskID", task.ID, "error", err)
		return p.fail(ctx, task, err)
	}

	p.logger.Info("出品の説明文を生成しました", "listingID", task.ListingID, "taskID", task.ID)
	return Result{Status: OutcomeSuccess, Description: description}
}

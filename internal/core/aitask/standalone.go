package aitask

import (
	"context"
	"fmt"
)

// GenerateListingDescription は一時タスクを組み立てて出品の説明文を生成する
func (p *Processor) GenerateListingDescription(ctx context.Context, listingID string) Result {
	return p.Process(ctx, Task{
		ID:        p.tempTaskID(),
		Type:      TypeGenerateListingDescription,
		ListingID: listingID,
	})
}

// ModerateContent は一時タスクを組み立ててコンテンツをモデレーションする
func (p *Processor) ModerateContent(ctx context.Context, contentID string, contentType ContentType) Result {
	return p.Process(ctx, Task{
		ID:          p.tempTaskID(),
		Type:        TypeModerateContent,
		ContentID:   contentID,
		ContentType: contentType,
	})
}

func (p *Processor) tempTaskID() string {
	return fmt.Sprintf("temp_%d", p.now().UnixNano())
}

package aitask

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessor_MissingFieldsNeverTouchStore(t *testing.T) {
	tests := []struct {
		name    string
		task    Task
		message string
	}{
		{
			name:    "出品IDなし",
			task:    Task{ID: "t1", Type: TypeGenerateListingDescription},
			message: "Listing ID is required",
		},
		{
			name:    "コンテンツIDなし",
			task:    Task{ID: "t2", Type: TypeModerateContent, ContentType: ContentTypePost},
			message: "Content ID and type are required",
		},
		{
			name:    "コンテンツ種別なし",
			task:    Task{ID: "t3", Type: TypeModerateContent, ContentID: "c1"},
			message: "Content ID and type are required",
		},
		{
			name:    "未対応のコンテンツ種別",
			task:    Task{ID: "t4", Type: TypeModerateContent, ContentID: "c1", ContentType: "coment"},
			message: "Unsupported content type: coment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newSpyStore()
			llm := replyWith("unused")
			p := newTestProcessor(store, llm)

			result := p.Process(context.Background(), tt.task)

			assert.Equal(t, OutcomeError, result.Status)
			assert.Equal(t, KindValidation, result.Kind)
			assert.Equal(t, tt.message, result.Message)
			assert.Equal(t, tt.task.ID, result.TaskID)
			assert.Zero(t, store.writeCount())
			assert.Zero(t, store.reads)
			assert.Zero(t, llm.calls())
		})
	}
}

func TestProcessor_UnknownType(t *testing.T) {
	for _, typ := range []Type{"", "summarize", "GenerateListingDescription"} {
		t.Run(string(typ), func(t *testing.T) {
			store := newSpyStore()
			llm := replyWith("unused")
			p := newTestProcessor(store, llm)

			result := p.Process(context.Background(), Task{ID: "t1", Type: typ, ListingID: "l1"})

			assert.Equal(t, OutcomeError, result.Status)
			assert.Equal(t, KindUnknownType, result.Kind)
			assert.Equal(t, "Unknown task type: "+string(typ), result.Message)
			assert.Zero(t, store.writeCount())
			assert.Zero(t, store.reads, "ハンドラは呼ばれないためストアも読まれない")
			assert.Zero(t, llm.calls())
		})
	}
}

func TestProcessor_RecoversFromPanic(t *testing.T) {
	store := newSpyStore()
	store.seed(t, CollectionListings, "l1", map[string]any{"title": "Desk"})
	llm := &stubLLM{
		GenerateCompletionFunc: func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
			panic("boom")
		},
	}
	p := newTestProcessor(store, llm)

	result := p.Process(context.Background(), Task{ID: "t1", Type: TypeGenerateListingDescription, ListingID: "l1"})

	assert.Equal(t, OutcomeError, result.Status)
	assert.Equal(t, KindInternal, result.Kind)
	assert.Equal(t, "boom", result.Message)
	assert.Equal(t, "t1", result.TaskID)
}

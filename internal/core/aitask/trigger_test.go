package aitask

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/campus-ai/internal/core/document"
)

const taskResource = "projects/campus/databases/(default)/documents/aiTasks/"

func newTestTrigger(store *spyStore, llm LLMClient) *Trigger {
	return NewTrigger(newTestProcessor(store, llm), store, WithTriggerLogger(discardLogger()))
}

func TestTrigger_ProcessesPendingTask(t *testing.T) {
	store := newSpyStore()
	store.seed(t, CollectionListings, "l1", document.Fields{"title": "Lamp"})
	store.seed(t, CollectionTasks, "t1", document.Fields{"type": string(TypeGenerateListingDescription), "listingId": "l1", "status": "pending"})
	trigger := newTestTrigger(store, replyWith("A bright lamp."))

	result := trigger.Handle(context.Background(), Event{Resource: taskResource + "t1"})

	require.True(t, result.OK(), result.Message)
	assert.Equal(t, "A bright lamp.", result.Description)
	assert.Equal(t, "t1", result.TaskID)

	task := store.mustGet(t, CollectionTasks, "t1")
	assert.Equal(t, "completed", task.Data["status"])
	assert.Equal(t, fixedNow, task.Data["startedAt"])
}

func TestTrigger_SkipsNonPendingTask(t *testing.T) {
	store := newSpyStore()
	store.seed(t, CollectionTasks, "t1", document.Fields{"type": string(TypeGenerateListingDescription), "listingId": "l1", "status": "processing"})
	llm := replyWith("unused")
	trigger := newTestTrigger(store, llm)

	result := trigger.Handle(context.Background(), Event{ValueName: "aiTasks/t1"})

	assert.Equal(t, OutcomeSkipped, result.Status)
	assert.Equal(t, "t1", result.TaskID)
	assert.Equal(t, StatusProcessing, result.CurrentStatus)
	assert.Zero(t, store.writeCount())
	assert.Zero(t, llm.calls())
}

func TestTrigger_Errors(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		kind    ErrorKind
		message string
	}{
		{name: "パスなし", event: Event{}, kind: KindValidation, message: "missing document path"},
		{name: "タスクが存在しない", event: Event{Subject: "documents/aiTasks/nope"}, kind: KindNotFound, message: "task not found"},
		{name: "別コレクション", event: Event{ValueName: "listings/l1"}, kind: KindValidation, message: `unexpected collection "listings"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newSpyStore()
			result := newTestTrigger(store, replyWith("")).Handle(context.Background(), tt.event)

			assert.Equal(t, OutcomeError, result.Status)
			assert.Equal(t, tt.kind, result.Kind)
			assert.Equal(t, tt.message, result.Message)
			assert.Zero(t, store.writeCount())
		})
	}
}

func TestTrigger_ValidationErrorResolvesTask(t *testing.T) {
	store := newSpyStore()
	store.seed(t, CollectionTasks, "t1", document.Fields{"type": string(TypeModerateContent), "status": "pending"})
	trigger := newTestTrigger(store, replyWith(""))

	result := trigger.Handle(context.Background(), Event{ValueName: "aiTasks/t1"})

	assert.Equal(t, KindValidation, result.Kind)
	task := store.mustGet(t, CollectionTasks, "t1")
	assert.Equal(t, "failed", task.Data["status"])
	assert.Equal(t, "Content ID and type are required", task.Data["error"])
}

package aitask

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/campus-ai/internal/core/document"
)

func TestPoller_RunBatch(t *testing.T) {
	store := newSpyStore()
	store.seed(t, CollectionListings, "l1", document.Fields{"title": "Desk", "price": 10.0})
	store.seed(t, CollectionComments, "c1", document.Fields{"content": "nice"})

	store.seed(t, CollectionTasks, "t1", document.Fields{"type": string(TypeGenerateListingDescription), "listingId": "l1", "status": "pending"})
	store.seed(t, CollectionTasks, "t2", document.Fields{"type": string(TypeModerateContent), "contentId": "c1", "contentType": "comment", "status": "pending"})
	store.seed(t, CollectionTasks, "t3", document.Fields{"type": "translate", "status": "pending"})
	store.seed(t, CollectionTasks, "t4", document.Fields{"type": string(TypeGenerateListingDescription), "status": "pending"})
	store.seed(t, CollectionTasks, "t5", document.Fields{"type": string(TypeGenerateListingDescription), "listingId": "l1", "status": "completed"})

	llm := &stubLLM{
		GenerateCompletionFunc: func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
			if req.ResponseFormat == ResponseFormatJSON {
				return CompletionResponse{Content: `{"appropriate":true}`}, nil
			}
			return CompletionResponse{Content: "A desk."}, nil
		},
	}
	p := newTestProcessor(store, llm)
	poller := NewPoller(p, store, WithPollerLogger(discardLogger()))

	report, err := poller.RunBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, BatchReport{Found: 4, Processed: 4, Succeeded: 2, Failed: 2}, report)

	for id, want := range map[string]Status{
		"t1": StatusCompleted,
		"t2": StatusCompleted,
		"t3": StatusFailed,
		"t4": StatusFailed,
		"t5": StatusCompleted,
	} {
		task := store.mustGet(t, CollectionTasks, id)
		assert.Equal(t, string(want), task.Data["status"], id)
	}

	t3 := store.mustGet(t, CollectionTasks, "t3")
	assert.Equal(t, "Unknown task type: translate", t3.Data["error"])
	assert.Equal(t, fixedNow, t3.Data["startedAt"])

	// 2回目は pending がないため何もしない
	report, err = poller.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchReport{}, report)
	assert.Equal(t, 2, llm.calls())
}

func TestPoller_RespectsBatchSize(t *testing.T) {
	store := newSpyStore()
	for _, id := range []string{"a", "b", "c"} {
		store.seed(t, CollectionTasks, id, document.Fields{"type": "noop", "status": "pending"})
	}
	poller := NewPoller(newTestProcessor(store, replyWith("")), store,
		WithPollerLogger(discardLogger()), WithBatchSize(2))

	report, err := poller.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Found)

	pending, err := store.Query(context.Background(), CollectionTasks, document.Filter{Field: "status", Value: "pending"}, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestPoller_ClaimLostIsSkipped(t *testing.T) {
	store := newSpyStore()
	store.seed(t, CollectionTasks, "t1", document.Fields{"type": string(TypeGenerateListingDescription), "listingId": "l1", "status": "pending"})
	llm := replyWith("unused")
	p := newTestProcessor(store, llm)
	poller := NewPoller(p, store, WithPollerLogger(discardLogger()))

	// 別のワーカーがクエリ後に取得した状況を再現する
	task := TaskFromDocument(store.mustGet(t, CollectionTasks, "t1"))
	claimed, err := claimTask(context.Background(), store, "t1", fixedNow)
	require.NoError(t, err)
	require.True(t, claimed)

	result := poller.claimAndProcess(context.Background(), task)

	assert.Equal(t, OutcomeSkipped, result.Status)
	assert.Equal(t, "task already claimed", result.Message)
	assert.Zero(t, llm.calls())
}

func TestPoller_ReapStale(t *testing.T) {
	store := newSpyStore()
	store.seed(t, CollectionTasks, "old", document.Fields{"status": "processing", "startedAt": fixedNow.Add(-time.Hour)})
	store.seed(t, CollectionTasks, "fresh", document.Fields{"status": "processing", "startedAt": fixedNow.Add(-time.Minute).Format(time.RFC3339Nano)})
	store.seed(t, CollectionTasks, "nostart", document.Fields{"status": "processing"})
	store.seed(t, CollectionTasks, "done", document.Fields{"status": "completed", "startedAt": fixedNow.Add(-time.Hour)})

	poller := NewPoller(newTestProcessor(store, replyWith("")), store, WithPollerLogger(discardLogger()))

	reaped, err := poller.ReapStale(context.Background(), 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, reaped)

	assert.Equal(t, "failed", store.mustGet(t, CollectionTasks, "old").Data["status"])
	assert.Equal(t, "processing timed out", store.mustGet(t, CollectionTasks, "old").Data["error"])
	assert.Equal(t, "failed", store.mustGet(t, CollectionTasks, "nostart").Data["status"])
	assert.Equal(t, "processing", store.mustGet(t, CollectionTasks, "fresh").Data["status"])
	assert.Equal(t, "completed", store.mustGet(t, CollectionTasks, "done").Data["status"])
}

func TestPoller_MissingSubjectFailsClaimedTask(t *testing.T) {
	store := newSpyStore()
	store.seed(t, CollectionTasks, "t1", document.Fields{"type": string(TypeGenerateListingDescription), "listingId": "gone", "status": "pending"})
	llm := replyWith("unused")
	poller := NewPoller(newTestProcessor(store, llm), store, WithPollerLogger(discardLogger()))

	report, err := poller.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchReport{Found: 1, Processed: 1, Failed: 1}, report)

	task := store.mustGet(t, CollectionTasks, "t1")
	assert.Equal(t, "failed", task.Data["status"])
	assert.Equal(t, "Listing not found", task.Data["error"])
	assert.Zero(t, llm.calls())
}

func TestPoller_CanceledRunStillFailsTask(t *testing.T) {
	store := newSpyStore()
	store.HonorContext = true
	store.seed(t, CollectionListings, "l1", document.Fields{"title": "Desk"})
	store.seed(t, CollectionTasks, "t1", document.Fields{"type": string(TypeGenerateListingDescription), "listingId": "l1", "status": "pending"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// LLM 呼び出し中に停止シグナルやリクエスト期限でキャンセルされた状況
	llm := &stubLLM{
		GenerateCompletionFunc: func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
			cancel()
			return CompletionResponse{}, ctx.Err()
		},
	}
	poller := NewPoller(newTestProcessor(store, llm), store, WithPollerLogger(discardLogger()))

	report, err := poller.RunBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, BatchReport{Found: 1, Processed: 1, Failed: 1}, report)

	task := store.mustGet(t, CollectionTasks, "t1")
	assert.Equal(t, "failed", task.Data["status"])
	assert.Contains(t, task.Data["error"], context.Canceled.Error())
	assert.Equal(t, fixedNow, task.Data["failedAt"])

	listing := store.mustGet(t, CollectionListings, "l1")
	assert.NotContains(t, listing.Data, "aiDescription")
}

func TestPoller_RecoveredPanicFailsClaimedTask(t *testing.T) {
	store := newSpyStore()
	store.seed(t, CollectionListings, "l1", document.Fields{"title": "Desk"})
	store.seed(t, CollectionTasks, "t1", document.Fields{"type": string(TypeGenerateListingDescription), "listingId": "l1", "status": "pending"})

	llm := &stubLLM{
		GenerateCompletionFunc: func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
			panic("llm client exploded")
		},
	}
	poller := NewPoller(newTestProcessor(store, llm), store, WithPollerLogger(discardLogger()))

	report, err := poller.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	task := store.mustGet(t, CollectionTasks, "t1")
	assert.Equal(t, "failed", task.Data["status"])
	assert.Equal(t, "llm client exploded", task.Data["error"])
}

func TestPoller_ResolveDoesNotOverwriteTerminalTask(t *testing.T) {
	store := newSpyStore()
	store.seed(t, CollectionTasks, "t1", document.Fields{"status": "completed", "result": "done"})

	require.NoError(t, failClaimedTask(context.Background(), store, "t1", "late failure", fixedNow))

	task := store.mustGet(t, CollectionTasks, "t1")
	assert.Equal(t, "completed", task.Data["status"])
	assert.NotContains(t, task.Data, "error")
}

func TestPoller_ReapStaleIsNotBlockedByFreshTasks(t *testing.T) {
	store := newSpyStore()
	for _, id := range []string{"a", "b", "c"} {
		store.seed(t, CollectionTasks, id, document.Fields{"status": "processing", "startedAt": fixedNow.Add(-time.Minute)})
	}
	store.seed(t, CollectionTasks, "z", document.Fields{"status": "processing", "startedAt": fixedNow.Add(-time.Hour)})

	poller := NewPoller(newTestProcessor(store, replyWith("")), store,
		WithPollerLogger(discardLogger()), WithBatchSize(2))

	reaped, err := poller.ReapStale(context.Background(), 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, reaped)
	assert.Equal(t, "failed", store.mustGet(t, CollectionTasks, "z").Data["status"])
	assert.Equal(t, "processing", store.mustGet(t, CollectionTasks, "a").Data["status"])
}

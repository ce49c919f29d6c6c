package container

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/campus-ai/internal/core/account"
	"github.com/jinford/campus-ai/internal/core/aitask"
	"github.com/jinford/campus-ai/internal/core/document"
	"github.com/jinford/campus-ai/internal/infra/openai"
	"github.com/jinford/campus-ai/internal/platform/config"
)

type stubLLM struct {
	content string
}

func (s stubLLM) GenerateCompletion(ctx context.Context, req aitask.CompletionRequest) (aitask.CompletionResponse, error) {
	return aitask.CompletionResponse{Content: s.content}, nil
}

type passThroughTrimmer struct{}

func (passThroughTrimmer) TrimToTokenLimit(text string, maxTokens int) string { return text }

func testConfig() *config.Config {
	return &config.Config{
		StoreDriver:            config.StoreDriverMemory,
		Worker:                 config.WorkerConfig{BatchSize: 5},
		UniversityEmailDomains: []string{"campus.edu"},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewContainer_MemoryStoreWiring(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	c, err := NewContainer(context.Background(), testConfig(),
		WithContainerLogger(testLogger()),
		WithContainerLLMClient(stubLLM{content: "Generated."}),
		WithContainerTokenTrimmer(passThroughTrimmer{}),
		WithContainerClock(func() time.Time { return now }),
	)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	assert.Nil(t, c.Database())
	ctx := context.Background()

	require.NoError(t, c.Store.Create(ctx, aitask.CollectionListings, "l1", document.Fields{"title": "Desk"}))
	require.NoError(t, c.Store.Create(ctx, aitask.CollectionTasks, "t1", document.Fields{
		"type": string(aitask.TypeGenerateListingDescription), "listingId": "l1", "status": "pending",
	}))

	report, err := c.Poller.RunBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)

	listing, err := c.Store.Get(ctx, aitask.CollectionListings, "l1")
	require.NoError(t, err)
	assert.Equal(t, "Generated.", listing.Data["aiDescription"])
	assert.Equal(t, now, listing.Data["aiGeneratedAt"])

	result, err := c.Account.BootstrapProfile(ctx, account.AuthUser{UID: "u1", Email: "a@campus.edu"})
	require.NoError(t, err)
	assert.True(t, result.UniVerified)
}

func TestNewContainer_RequiresAPIKeyWithoutInjectedClient(t *testing.T) {
	_, err := NewContainer(context.Background(), testConfig(),
		WithContainerLogger(testLogger()),
		WithContainerTokenTrimmer(passThroughTrimmer{}),
	)
	assert.ErrorIs(t, err, openai.ErrAPIKeyNotSet)
}

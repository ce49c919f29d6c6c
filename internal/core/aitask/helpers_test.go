package aitask

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jinford/campus-ai/internal/core/document"
	"github.com/jinford/campus-ai/internal/infra/memstore"
)

var fixedNow = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{AddSource: false}))
}

// spyStore はメモリストアをラップして読み書きの回数を記録する
type spyStore struct {
	*memstore.Store

	mu     sync.Mutex
	reads  int
	writes []string // "collection/id"

	// UpdateErr が設定されていれば、該当コレクションの Update でそのエラーを返す
	UpdateErr map[string]error

	// HonorContext が true の場合、キャンセル済みのコンテキストでの書き込みを拒否する
	HonorContext bool
}

func newSpyStore() *spyStore {
	return &spyStore{Store: memstore.New()}
}

func (s *spyStore) recordWrite(collection, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, document.Join(collection, id))
}

// rejectCanceled はコネクションプールと同じくキャンセル済みの書き込みをエラーにする
func (s *spyStore) rejectCanceled(ctx context.Context) error {
	if s.HonorContext {
		return ctx.Err()
	}
	return nil
}

func (s *spyStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

func (s *spyStore) Get(ctx context.Context, collection, id string) (document.Document, error) {
	s.mu.Lock()
	s.reads++
	s.mu.Unlock()
	return s.Store.Get(ctx, collection, id)
}

func (s *spyStore) Update(ctx context.Context, collection, id string, fields document.Fields) error {
	s.recordWrite(collection, id)
	if err := s.rejectCanceled(ctx); err != nil {
		return err
	}
	if err, ok := s.UpdateErr[collection]; ok {
		return err
	}
	return s.Store.Update(ctx, collection, id, fields)
}

func (s *spyStore) UpdateIf(ctx context.Context, collection, id string, cond document.Filter, fields document.Fields) (bool, error) {
	s.recordWrite(collection, id)
	if err := s.rejectCanceled(ctx); err != nil {
		return false, err
	}
	return s.Store.UpdateIf(ctx, collection, id, cond, fields)
}

func (s *spyStore) Set(ctx context.Context, collection, id string, fields document.Fields) error {
	s.recordWrite(collection, id)
	if err := s.rejectCanceled(ctx); err != nil {
		return err
	}
	return s.Store.Set(ctx, collection, id, fields)
}

func (s *spyStore) Create(ctx context.Context, collection, id string, fields document.Fields) error {
	s.recordWrite(collection, id)
	if err := s.rejectCanceled(ctx); err != nil {
		return err
	}
	return s.Store.Create(ctx, collection, id, fields)
}

// seed はテストデータを書き込む（書き込み回数には数えない）
func (s *spyStore) seed(t *testing.T, collection, id string, fields document.Fields) {
	t.Helper()
	require.NoError(t, s.Store.Create(context.Background(), collection, id, fields))
}

func (s *spyStore) mustGet(t *testing.T, collection, id string) document.Document {
	t.Helper()
	doc, err := s.Store.Get(context.Background(), collection, id)
	require.NoError(t, err)
	return doc
}

// stubLLM は固定の応答を返すLLMクライアント
type stubLLM struct {
	GenerateCompletionFunc func(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	mu       sync.Mutex
	requests []CompletionRequest
}

func replyWith(content string) *stubLLM {
	return &stubLLM{
		GenerateCompletionFunc: func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
			return CompletionResponse{Content: content}, nil
		},
	}
}

func (s *stubLLM) GenerateCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.GenerateCompletionFunc != nil {
		return s.GenerateCompletionFunc(ctx, req)
	}
	return CompletionResponse{}, nil
}

func (s *stubLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func newTestProcessor(store document.Store, llm LLMClient) *Processor {
	return NewProcessor(store, llm,
		WithProcessorLogger(discardLogger()),
		WithClock(func() time.Time { return fixedNow }),
	)
}

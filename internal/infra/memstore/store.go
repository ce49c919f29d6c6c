package memstore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/jinford/campus-ai/internal/core/document"
)

// Store はメモリ上のマップで document.Store を実装する
//
// ローカル実行とテストで使用する。プロセス終了とともにデータは失われる。
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]document.Fields
}

// New は空の Store を作成する
func New() *Store {
	return &Store{collections: make(map[string]map[string]document.Fields)}
}

// Get はドキュメントを取得する
func (s *Store) Get(_ context.Context, collection, id string) (document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.collections[collection][id]
	if !ok {
		return document.Document{}, fmt.Errorf("%s: %w", document.Join(collection, id), document.ErrNotFound)
	}
	return document.Document{Collection: collection, ID: id, Data: deepCopyFields(data)}, nil
}

// Update は既存ドキュメントにフィールドをマージする
func (s *Store) Update(_ context.Context, collection, id string, fields document.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.collections[collection][id]
	if !ok {
		return fmt.Errorf("%s: %w", document.Join(collection, id), document.ErrNotFound)
	}
	mergeInto(data, fields)
	return nil
}

// UpdateIf は条件が一致する場合のみフィールドをマージする
func (s *Store) UpdateIf(_ context.Context, collection, id string, cond document.Filter, fields document.Fields) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.collections[collection][id]
	if !ok {
		return false, nil
	}
	if !matches(data, cond) {
		return false, nil
	}
	mergeInto(data, fields)
	return true, nil
}

// Set はドキュメントを作成、または既存ドキュメントにマージする
func (s *Store) Set(_ context.Context, collection, id string, fields document.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collection(collection)
	if data, ok := docs[id]; ok {
		mergeInto(data, fields)
		return nil
	}
	docs[id] = deepCopyFields(fields)
	return nil
}

// Create は新規ドキュメントを作成する
func (s *Store) Create(_ context.Context, collection, id string, fields document.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collection(collection)
	if _, ok := docs[id]; ok {
		return fmt.Errorf("%s: %w", document.Join(collection, id), document.ErrAlreadyExists)
	}
	docs[id] = deepCopyFields(fields)
	return nil
}

// Add はUUIDを採番してドキュメントを作成する
func (s *Store) Add(ctx context.Context, collection string, fields document.Fields) (string, error) {
	id := uuid.NewString()
	if err := s.Create(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

// Query は等価フィルタに一致するドキュメントをID順に最大 limit 件返す
func (s *Store) Query(_ context.Context, collection string, filter document.Filter, limit int) ([]document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.collections[collection]
	ids := slices.Sorted(maps.Keys(docs))

	var result []document.Document
	for _, id := range ids {
		if limit > 0 && len(result) >= limit {
			break
		}
		data := docs[id]
		if !matches(data, filter) {
			continue
		}
		result = append(result, document.Document{Collection: collection, ID: id, Data: deepCopyFields(data)})
	}
	return result, nil
}

func (s *Store) collection(name string) map[string]document.Fields {
	docs, ok := s.collections[name]
	if !ok {
		docs = make(map[string]document.Fields)
		s.collections[name] = docs
	}
	return docs
}

// mergeInto は fields をコピーしながら data に上書きする
func mergeInto(data, fields document.Fields) {
	for k, v := range fields {
		data[k] = deepCopy(v)
	}
}

// deepCopyFields は入れ子のマップとスライスまで複製する
// 呼び出し元が保持する値を書き換えてもストアの内容は変わらない
func deepCopyFields(fields document.Fields) document.Fields {
	out := make(document.Fields, len(fields))
	mergeInto(out, fields)
	return out
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case document.Fields:
		return deepCopyFields(t)
	case map[string]any:
		return map[string]any(deepCopyFields(t))
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = deepCopy(item)
		}
		return out
	case []string:
		return slices.Clone(t)
	case []document.Fields:
		out := make([]document.Fields, len(t))
		for i, item := range t {
			out[i] = deepCopyFields(item)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, item := range t {
			out[i] = map[string]any(deepCopyFields(item))
		}
		return out
	default:
		return v
	}
}

func matches(data document.Fields, filter document.Filter) bool {
	v, ok := data[filter.Field].(string)
	return ok && v == filter.Value
}

var _ document.Store = (*Store)(nil)

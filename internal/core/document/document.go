package document

import (
	"context"
	"errors"
)

var (
	// ErrNotFound はドキュメントが存在しない場合のエラー
	ErrNotFound = errors.New("document not found")

	// ErrAlreadyExists は作成対象のドキュメントが既に存在する場合のエラー
	ErrAlreadyExists = errors.New("document already exists")
)

// Fields はドキュメントのフィールド集合を表す
type Fields map[string]any

// Document はコレクション内の1ドキュメントを表す
type Document struct {
	Collection string
	ID         string
	Data       Fields
}

// Path はドキュメントのパス（collection/id）を返す
func (d Document) Path() string {
	return Join(d.Collection, d.ID)
}

// String は文字列フィールドを取得する。存在しない・型が異なる場合は空文字列を返す
func (d Document) String(key string) string {
	if v, ok := d.Data[key].(string); ok {
		return v
	}
	return ""
}

// Value はフィールドの値を取得する
func (d Document) Value(key string) (any, bool) {
	v, ok := d.Data[key]
	return v, ok
}

// Filter は等価条件によるクエリフィルタ
type Filter struct {
	Field string
	Value string
}

// Store はドキュメントデータベースへのアクセスインターフェース
//
// Update/UpdateIf は部分マージであり、指定したフィールド以外は保持される。
type Store interface {
	// Get はドキュメントを取得する。存在しない場合は ErrNotFound を返す
	Get(ctx context.Context, collection, id string) (Document, error)

	// Update は既存ドキュメントにフィールドをマージする。存在しない場合は ErrNotFound を返す
	Update(ctx context.Context, collection, id string, fields Fields) error

	// UpdateIf は cond が一致する場合のみフィールドをマージし、適用されたかを返す
	UpdateIf(ctx context.Context, collection, id string, cond Filter, fields Fields) (bool, error)

	// Set はドキュメントを作成、または既存ドキュメントにマージする
	Set(ctx context.Context, collection, id string, fields Fields) error

	// Create は新規ドキュメントを作成する。既に存在する場合は ErrAlreadyExists を返す
	Create(ctx context.Context, collection, id string, fields Fields) error

	// Add はIDを採番してドキュメントを作成し、そのIDを返す
	Add(ctx context.Context, collection string, fields Fields) (string, error)

	// Query は等価フィルタに一致するドキュメントを最大 limit 件返す（順序は不定）
	Query(ctx context.Context, collection string, filter Filter, limit int) ([]Document, error)
}

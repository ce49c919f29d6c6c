package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jinford/campus-ai/internal/core/document"
)

// DBTX は *pgxpool.Pool と pgx.Tx の共通インターフェースです
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	getDocumentSQL = `SELECT data FROM documents WHERE collection = $1 AND id = $2`

	updateDocumentSQL = `UPDATE documents
SET data = data || $3::jsonb, updated_at = now()
WHERE collection = $1 AND id = $2`

	updateDocumentIfSQL = `UPDATE documents
SET data = data || $3::jsonb, updated_at = now()
WHERE collection = $1 AND id = $2 AND data->>($4::text) = $5`

	setDocumentSQL = `INSERT INTO documents (collection, id, data)
VALUES ($1, $2, $3::jsonb)
ON CONFLICT (collection, id)
DO UPDATE SET data = documents.data || EXCLUDED.data, updated_at = now()`

	createDocumentSQL = `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)`

	queryDocumentsSQL = `SELECT id, data FROM documents
WHERE collection = $1 AND data->>($2::text) = $3
LIMIT $4`
)

// DocumentStore は PostgreSQL の JSONB カラムで document.Store を実装します
type DocumentStore struct {
	db DBTX
}

// NewDocumentStore は新しい DocumentStore を作成します
func NewDocumentStore(db DBTX) *DocumentStore {
	return &DocumentStore{db: db}
}

// コンパイル時の型チェック
var _ document.Store = (*DocumentStore)(nil)

func (s *DocumentStore) Get(ctx context.Context, collection, id string) (document.Document, error) {
	var raw []byte
	if err := s.db.QueryRow(ctx, getDocumentSQL, collection, id).Scan(&raw); err != nil {
		return document.Document{}, storeError(err, "get", collection, id)
	}

	data, err := decodeFields(raw)
	if err != nil {
		return document.Document{}, fmt.Errorf("failed to decode document %s: %w", document.Join(collection, id), err)
	}
	return document.Document{Collection: collection, ID: id, Data: data}, nil
}

func (s *DocumentStore) Update(ctx context.Context, collection, id string, fields document.Fields) error {
	payload, err := encodeFields(fields)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, updateDocumentSQL, collection, id, payload)
	if err != nil {
		return fmt.Errorf("failed to update document %s: %w", document.Join(collection, id), err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", document.Join(collection, id), document.ErrNotFound)
	}
	return nil
}

func (s *DocumentStore) UpdateIf(ctx context.Context, collection, id string, cond document.Filter, fields document.Fields) (bool, error) {
	payload, err := encodeFields(fields)
	if err != nil {
		return false, err
	}

	tag, err := s.db.Exec(ctx, updateDocumentIfSQL, collection, id, payload, cond.Field, cond.Value)
	if err != nil {
		return false, fmt.Errorf("failed to conditionally update document %s: %w", document.Join(collection, id), err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *DocumentStore) Set(ctx context.Context, collection, id string, fields document.Fields) error {
	payload, err := encodeFields(fields)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx, setDocumentSQL, collection, id, payload); err != nil {
		return fmt.Errorf("failed to set document %s: %w", document.Join(collection, id), err)
	}
	return nil
}

func (s *DocumentStore) Create(ctx context.Context, collection, id string, fields document.Fields) error {
	payload, err := encodeFields(fields)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx, createDocumentSQL, collection, id, payload); err != nil {
		return storeError(err, "create", collection, id)
	}
	return nil
}

func (s *DocumentStore) Add(ctx context.Context, collection string, fields document.Fields) (string, error) {
	id := uuid.NewString()
	if err := s.Create(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (s *DocumentStore) Query(ctx context.Context, collection string, filter document.Filter, limit int) ([]document.Document, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}

	rows, err := s.db.Query(ctx, queryDocumentsSQL, collection, filter.Field, filter.Value, limitArg)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []document.Document
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		data, err := decodeFields(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", document.Join(collection, id), err)
		}
		docs = append(docs, document.Document{Collection: collection, ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

func encodeFields(fields document.Fields) ([]byte, error) {
	if fields == nil {
		fields = document.Fields{}
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document fields: %w", err)
	}
	return payload, nil
}

func decodeFields(raw []byte) (document.Fields, error) {
	data := document.Fields{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

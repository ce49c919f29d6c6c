package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jinford/campus-ai/internal/platform/database"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT        NOT NULL,
		id         TEXT        NOT NULL,
		data       JSONB       NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (collection, id)
	)`,
	`CREATE INDEX IF NOT EXISTS documents_status_idx ON documents (collection, (data->>'status'))`,
}

var schemaLockID = LockID("campus-ai", "schema")

// EnsureSchema は documents テーブルとインデックスを作成します
// 複数プロセスが同時に起動しても CREATE が競合しないよう、アドバイザリロックで直列化します
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return database.Transact(ctx, pool, func(tx pgx.Tx) error {
		if err := acquireXactLock(ctx, tx, schemaLockID); err != nil {
			return err
		}
		for _, stmt := range schemaStatements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}
		}
		return nil
	})
}

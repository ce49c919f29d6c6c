package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jinford/campus-ai/internal/core/document"
)

const pgErrCodeUniqueViolation = "23505"

// storeError はドライバのエラーを document パッケージのエラーに変換します
// 該当しないエラーは op と対象パスを付けてラップします
func storeError(err error, op, collection, id string) error {
	path := document.Join(collection, id)

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", path, document.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgErrCodeUniqueViolation {
		return fmt.Errorf("%s: %w", path, document.ErrAlreadyExists)
	}

	return fmt.Errorf("failed to %s document %s: %w", op, path, err)
}

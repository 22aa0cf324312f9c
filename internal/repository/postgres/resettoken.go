package postgres

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/resettoken/internal/apperrors"
	"github.com/nkiryanov/resettoken/internal/db"
	"github.com/nkiryanov/resettoken/internal/models"
)

// Reset token repo over the table with name Table
// Table may have more columns than user_id, token and created_at. They are read and written as extra fields
type ResetTokenRepo struct {
	DB    DBTX
	Table string
}

func (r *ResetTokenRepo) table() string {
	return pgx.Identifier{r.Table}.Sanitize()
}

// Save token: insert or rewrite every column passed in the token
func (r *ResetTokenRepo) Save(ctx context.Context, token models.ResetToken) error {
	row, err := token.Row()
	if err != nil {
		return fmt.Errorf("repo error: %w", err)
	}

	// Sorted to keep statement text stable, so pgx can reuse prepared statements
	columns := slices.Sorted(maps.Keys(row))

	names := make([]string, 0, len(columns))
	placeholders := make([]string, 0, len(columns))
	updates := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns))

	for i, column := range columns {
		name := pgx.Identifier{column}.Sanitize()
		names = append(names, name)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, row[column])

		if column != models.ColumnUserID {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", name, name))
		}
	}

	query := fmt.Sprintf(`-- name: Save reset token
INSERT INTO %s (%s)
VALUES (%s)
ON CONFLICT (%s) DO UPDATE SET %s`,
		r.table(),
		strings.Join(names, ", "),
		strings.Join(placeholders, ", "),
		models.ColumnUserID,
		strings.Join(updates, ", "),
	)

	_, err = r.DB.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", db.TranslateError(err))
	}

	return nil
}

// Get user token with every column the table has
func (r *ResetTokenRepo) GetByUser(ctx context.Context, userID string) (models.ResetToken, error) {
	query := fmt.Sprintf(`-- name: Get reset token by user
SELECT * FROM %s
WHERE user_id = $1`, r.table())

	rows, _ := r.DB.Query(ctx, query, userID)
	row, err := pgx.CollectOneRow(rows, pgx.RowToMap)

	switch {
	case err == nil:
		token, err := models.ResetTokenFromRow(row)
		if err != nil {
			return token, fmt.Errorf("repo error: %w", err)
		}
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return models.ResetToken{}, fmt.Errorf("repo error: %w", apperrors.ErrResetTokenNotFound)
	default:
		return models.ResetToken{}, fmt.Errorf("db error: %w", db.TranslateError(err))
	}
}

func (r *ResetTokenRepo) DeleteByUser(ctx context.Context, userID string) error {
	query := fmt.Sprintf(`-- name: Delete reset token by user
DELETE FROM %s
WHERE user_id = $1`, r.table())

	_, err := r.DB.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", db.TranslateError(err))
	}

	return nil
}

// Range delete, so concurrent calls are safe: each deletes whatever still matches
func (r *ResetTokenRepo) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := fmt.Sprintf(`-- name: Delete reset tokens created before
DELETE FROM %s
WHERE created_at < $1`, r.table())

	tag, err := r.DB.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", db.TranslateError(err))
	}

	return tag.RowsAffected(), nil
}

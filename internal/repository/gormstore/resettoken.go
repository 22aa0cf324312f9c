package gormstore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nkiryanov/resettoken/internal/apperrors"
	"github.com/nkiryanov/resettoken/internal/db"
	"github.com/nkiryanov/resettoken/internal/models"
)

// ResetTokenRepo stores tokens as plain column maps, so tables may carry extra columns
type ResetTokenRepo struct {
	db    *gorm.DB
	table string
}

func (r *ResetTokenRepo) Save(ctx context.Context, token models.ResetToken) error {
	row, err := token.Row()
	if err != nil {
		return fmt.Errorf("repo error: %w", err)
	}

	updates := make([]string, 0, len(row)-1)
	for _, column := range slices.Sorted(maps.Keys(row)) {
		if column != models.ColumnUserID {
			updates = append(updates, column)
		}
	}

	err = r.db.WithContext(ctx).
		Table(r.table).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: models.ColumnUserID}},
			DoUpdates: clause.AssignmentColumns(updates),
		}).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("db error: %w", db.TranslateError(err))
	}

	return nil
}

func (r *ResetTokenRepo) GetByUser(ctx context.Context, userID string) (models.ResetToken, error) {
	var rows []map[string]any

	err := r.db.WithContext(ctx).
		Table(r.table).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return models.ResetToken{}, fmt.Errorf("db error: %w", db.TranslateError(err))
	}

	if len(rows) == 0 {
		return models.ResetToken{}, fmt.Errorf("repo error: %w", apperrors.ErrResetTokenNotFound)
	}

	token, err := models.ResetTokenFromRow(rows[0])
	if err != nil {
		return token, fmt.Errorf("repo error: %w", err)
	}

	return token, nil
}

func (r *ResetTokenRepo) DeleteByUser(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).
		Exec("DELETE FROM ? WHERE user_id = ?", clause.Table{Name: r.table}, userID).
		Error
	if err != nil {
		return fmt.Errorf("db error: %w", db.TranslateError(err))
	}

	return nil
}

func (r *ResetTokenRepo) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Exec("DELETE FROM ? WHERE created_at < ?", clause.Table{Name: r.table}, cutoff)
	if result.Error != nil {
		return 0, fmt.Errorf("db error: %w", db.TranslateError(result.Error))
	}

	return result.RowsAffected, nil
}

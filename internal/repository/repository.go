package repository

import (
	"context"
	"time"

	"github.com/nkiryanov/resettoken/internal/models"
)

// Storage gives access to repositories
// Repositories returned from the storage passed to InTx share one transaction
type Storage interface {
	ResetToken(table string) ResetTokenRepo

	// Run fn in transaction: commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}

// Reset token repository interface
// Table has at most one row per user, user_id has to be unique
type ResetTokenRepo interface {
	// Insert token or replace all saved columns if user already has one
	// Extra fields are stored in the columns of the same name
	Save(ctx context.Context, token models.ResetToken) error

	// Return user token with all table columns
	// If user has no token must return apperrors.ErrResetTokenNotFound
	GetByUser(ctx context.Context, userID string) (models.ResetToken, error)

	// Delete user token. It is not an error if user has no token
	DeleteByUser(ctx context.Context, userID string) error

	// Delete tokens created strictly before the cutoff and return how many were deleted
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

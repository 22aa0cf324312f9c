package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/resettoken/internal/apperrors"
	"github.com/nkiryanov/resettoken/internal/models"
	"github.com/nkiryanov/resettoken/internal/repository"
	"github.com/nkiryanov/resettoken/internal/testutil"
)

const defaultTable = "password_reset_tokens"

func mustParseTime(value string) time.Time {
	dt, err := time.Parse("2006-01-02 15:04:05Z07:00", value)
	if err != nil {
		panic(err)
	}
	return dt
}

func Test_ResetTokenRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	token := models.ResetToken{
		UserID:    "user-1",
		TokenHash: "hashed-token",
		CreatedAt: mustParseTime("2024-01-01 19:00:01Z"),
	}

	withRepo := func(t *testing.T, fn func(tx pgx.Tx, repo *ResetTokenRepo)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			fn(tx, &ResetTokenRepo{DB: tx, Table: defaultTable})
		})
	}

	t.Run("save and get token", func(t *testing.T) {
		withRepo(t, func(_ pgx.Tx, repo *ResetTokenRepo) {
			err := repo.Save(t.Context(), token)
			require.NoError(t, err)

			got, err := repo.GetByUser(t.Context(), token.UserID)

			require.NoError(t, err)
			require.Equal(t, token.UserID, got.UserID)
			require.Equal(t, token.TokenHash, got.TokenHash)
			require.WithinDuration(t, token.CreatedAt, got.CreatedAt, 0)
			require.Empty(t, got.Extra, "default table has no extra columns")
		})
	})

	t.Run("save replaces user token", func(t *testing.T) {
		withRepo(t, func(tx pgx.Tx, repo *ResetTokenRepo) {
			err := repo.Save(t.Context(), token)
			require.NoError(t, err)

			newer := token
			newer.TokenHash = "another-hash"
			newer.CreatedAt = token.CreatedAt.Add(time.Hour)
			err = repo.Save(t.Context(), newer)
			require.NoError(t, err, "second save for the same user must replace the token")

			got, err := repo.GetByUser(t.Context(), token.UserID)
			require.NoError(t, err)
			assert.Equal(t, "another-hash", got.TokenHash)
			assert.WithinDuration(t, newer.CreatedAt, got.CreatedAt, 0)

			var count int
			err = tx.QueryRow(t.Context(), "SELECT count(*) FROM password_reset_tokens WHERE user_id = $1", token.UserID).Scan(&count)
			require.NoError(t, err)
			assert.Equal(t, 1, count, "only one token per user allowed")
		})
	})

	t.Run("get not existed token", func(t *testing.T) {
		withRepo(t, func(_ pgx.Tx, repo *ResetTokenRepo) {
			_, err := repo.GetByUser(t.Context(), "unknown-user")

			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrResetTokenNotFound)
		})
	})

	t.Run("delete by user", func(t *testing.T) {
		withRepo(t, func(_ pgx.Tx, repo *ResetTokenRepo) {
			err := repo.Save(t.Context(), token)
			require.NoError(t, err)

			err = repo.DeleteByUser(t.Context(), token.UserID)
			require.NoError(t, err)

			_, err = repo.GetByUser(t.Context(), token.UserID)
			require.ErrorIs(t, err, apperrors.ErrResetTokenNotFound)
		})
	})

	t.Run("delete by user without token is ok", func(t *testing.T) {
		withRepo(t, func(_ pgx.Tx, repo *ResetTokenRepo) {
			err := repo.DeleteByUser(t.Context(), "unknown-user")

			require.NoError(t, err)
		})
	})

	t.Run("delete created before", func(t *testing.T) {
		withRepo(t, func(_ pgx.Tx, repo *ResetTokenRepo) {
			cutoff := mustParseTime("2024-01-01 12:00:00Z")

			old := models.ResetToken{UserID: "old", TokenHash: "h", CreatedAt: cutoff.Add(-time.Second)}
			edge := models.ResetToken{UserID: "edge", TokenHash: "h", CreatedAt: cutoff}
			fresh := models.ResetToken{UserID: "fresh", TokenHash: "h", CreatedAt: cutoff.Add(time.Second)}
			for _, tok := range []models.ResetToken{old, edge, fresh} {
				require.NoError(t, repo.Save(t.Context(), tok))
			}

			deleted, err := repo.DeleteCreatedBefore(t.Context(), cutoff)
			require.NoError(t, err)
			assert.Equal(t, int64(1), deleted, "only strictly older token has to be deleted")

			_, err = repo.GetByUser(t.Context(), "old")
			assert.ErrorIs(t, err, apperrors.ErrResetTokenNotFound)
			_, err = repo.GetByUser(t.Context(), "edge")
			assert.NoError(t, err, "token created exactly at cutoff stays")
			_, err = repo.GetByUser(t.Context(), "fresh")
			assert.NoError(t, err)

			deleted, err = repo.DeleteCreatedBefore(t.Context(), cutoff)
			require.NoError(t, err)
			assert.Zero(t, deleted, "second run deletes nothing")
		})
	})

	t.Run("extra columns", func(t *testing.T) {
		withRepo(t, func(tx pgx.Tx, _ *ResetTokenRepo) {
			_, err := tx.Exec(t.Context(), `
				CREATE TABLE custom_reset_tokens (
					user_id    TEXT PRIMARY KEY,
					token      TEXT NOT NULL,
					created_at TIMESTAMPTZ NOT NULL,
					ip_address TEXT,
					purpose    TEXT
				)`)
			require.NoError(t, err)
			repo := &ResetTokenRepo{DB: tx, Table: "custom_reset_tokens"}

			withExtra := token
			withExtra.Extra = map[string]any{"ip_address": "10.0.0.1", "purpose": "password"}
			err = repo.Save(t.Context(), withExtra)
			require.NoError(t, err)

			got, err := repo.GetByUser(t.Context(), token.UserID)
			require.NoError(t, err)
			assert.Equal(t, map[string]any{"ip_address": "10.0.0.1", "purpose": "password"}, got.Extra)

			// Replacing token rewrites passed columns only
			replaced := token
			replaced.Extra = map[string]any{"purpose": "email"}
			err = repo.Save(t.Context(), replaced)
			require.NoError(t, err)

			got, err = repo.GetByUser(t.Context(), token.UserID)
			require.NoError(t, err)
			assert.Equal(t, "email", got.Extra["purpose"])
		})
	})

	t.Run("unknown extra column", func(t *testing.T) {
		withRepo(t, func(_ pgx.Tx, repo *ResetTokenRepo) {
			withExtra := token
			withExtra.Extra = map[string]any{"not_a_column": 1}

			err := repo.Save(t.Context(), withExtra)

			require.ErrorIs(t, err, apperrors.ErrUnknownColumn)
		})
	})

	t.Run("unknown table", func(t *testing.T) {
		withRepo(t, func(tx pgx.Tx, _ *ResetTokenRepo) {
			repo := &ResetTokenRepo{DB: tx, Table: "no_such_table"}

			_, err := repo.GetByUser(t.Context(), token.UserID)

			require.ErrorIs(t, err, apperrors.ErrTableNotFound)
		})
	})
}

func Test_StorageInTx(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	token := models.ResetToken{
		UserID:    "user-1",
		TokenHash: "hashed-token",
		CreatedAt: mustParseTime("2024-01-01 19:00:01Z"),
	}

	t.Run("commit on success", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := NewStorage(tx)

			err := storage.InTx(t.Context(), func(s repository.Storage) error {
				return s.ResetToken(defaultTable).Save(t.Context(), token)
			})
			require.NoError(t, err)

			_, err = storage.ResetToken(defaultTable).GetByUser(t.Context(), token.UserID)
			require.NoError(t, err, "token saved in committed tx must be visible")
		})
	})

	t.Run("rollback on error", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := NewStorage(tx)
			errBoom := errors.New("boom")

			err := storage.InTx(t.Context(), func(s repository.Storage) error {
				err := s.ResetToken(defaultTable).Save(t.Context(), token)
				require.NoError(t, err)
				return errBoom
			})
			require.ErrorIs(t, err, errBoom)

			_, err = storage.ResetToken(defaultTable).GetByUser(context.Background(), token.UserID)
			require.ErrorIs(t, err, apperrors.ErrResetTokenNotFound, "rolled back token must not be visible")
		})
	})
}

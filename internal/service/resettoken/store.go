// Package resettoken issues, verifies and purges single use reset tokens.
//
// A user has at most one token at a time. Only a hash of the token is stored,
// the plaintext is returned once by Store.Create.
package resettoken

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nkiryanov/resettoken/internal/apperrors"
	"github.com/nkiryanov/resettoken/internal/logger"
	"github.com/nkiryanov/resettoken/internal/models"
	"github.com/nkiryanov/resettoken/internal/repository"
)

const DefaultTable = "password_reset_tokens"

// Subject is anyone tokens may be issued for
type Subject interface {
	// Stable identifier, the same for every call
	SubjectID() string
}

// Interface to hash tokens or compare them with hashes
type Hasher interface {
	Hash(token string) (string, error)

	// Compare known hashedToken and user provided token
	// Must be protected against timing attacks
	Compare(hashedToken string, token string) error
}

// PayloadFunc may add extra fields to the token row or override its fields before it saved
type PayloadFunc func(token models.ResetToken, user Subject) models.ResetToken

// Token store config. Zero values of optional fields are replaced with defaults
type Config struct {
	// Table to store tokens in, DefaultTable if empty
	Table string `validate:"required"`

	// Key the tokens are derived with
	// Required to be set
	SecretKey string `validate:"required"`

	// Token lifetime in minutes
	// Required to be positive
	ExpireMinutes int `validate:"gt=0"`

	// Seconds must pass before user may request a new token, 0 disables throttling
	ThrottleSeconds int `validate:"gte=0"`

	// BcryptHasher if not set
	Hasher Hasher

	// Optional
	Payload PayloadFunc

	// time.Now if not set
	Now func() time.Time

	// No-op logger if not set
	Logger logger.Logger
}

var validate = validator.New(validator.WithRequiredStructEnabled())

type Store struct {
	table string
	key   []byte

	// Converted once from the config
	expire   time.Duration
	throttle time.Duration

	hasher  Hasher
	payload PayloadFunc
	now     func() time.Time
	logger  logger.Logger

	storage repository.Storage
}

func New(cfg Config, storage repository.Storage) (*Store, error) {
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if cfg.Hasher == nil {
		cfg.Hasher = BcryptHasher{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidConfig, err)
	}

	if storage == nil {
		return nil, fmt.Errorf("%w: storage must not be nil", apperrors.ErrInvalidConfig)
	}

	return &Store{
		table:    cfg.Table,
		key:      []byte(cfg.SecretKey),
		expire:   time.Duration(cfg.ExpireMinutes) * time.Minute,
		throttle: time.Duration(cfg.ThrottleSeconds) * time.Second,
		hasher:   cfg.Hasher,
		payload:  cfg.Payload,
		now:      cfg.Now,
		logger:   cfg.Logger.With("table", cfg.Table),
		storage:  storage,
	}, nil
}

// Truncated to microseconds: the precision postgres keeps
func (s *Store) currentTime() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Create issues a new token for the user and returns it in plaintext
// Previous user token stops to be valid
func (s *Store) Create(ctx context.Context, user Subject) (string, error) {
	userID := user.SubjectID()

	token, err := newToken(s.key)
	if err != nil {
		return "", fmt.Errorf("error while generating token. Err: %w", err)
	}

	hash, err := s.hasher.Hash(token)
	if err != nil {
		return "", fmt.Errorf("error while hashing token. Err: %w", err)
	}

	row := models.ResetToken{
		UserID:    userID,
		TokenHash: hash,
		CreatedAt: s.currentTime(),
	}
	if s.payload != nil {
		row = s.payload(row, user)
	}

	// Delete first: replaced row must not keep extra columns of the previous one
	// Save is an upsert, so concurrent creates for the same user still leave a single row
	err = s.storage.InTx(ctx, func(storage repository.Storage) error {
		repo := storage.ResetToken(s.table)
		if err := repo.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		return repo.Save(ctx, row)
	})
	if err != nil {
		return "", fmt.Errorf("error while saving token. Err: %w", err)
	}

	s.logger.Debug("Reset token created", "user_id", userID)

	return token, nil
}

// Find returns user token if it is not expired and matches the plaintext token
// Missing, expired and not matching tokens are reported the same way: found is false
func (s *Store) Find(ctx context.Context, user Subject, token string) (record models.ResetToken, found bool, err error) {
	record, err = s.storage.ResetToken(s.table).GetByUser(ctx, user.SubjectID())

	switch {
	case errors.Is(err, apperrors.ErrResetTokenNotFound):
		return models.ResetToken{}, false, nil
	case err != nil:
		return models.ResetToken{}, false, fmt.Errorf("error while getting token. Err: %w", err)
	}

	// Both checks always run, so expired tokens take as long to reject as wrong ones
	expired := s.expired(record.CreatedAt)
	matches := s.hasher.Compare(record.TokenHash, token) == nil

	if expired || !matches {
		return models.ResetToken{}, false, nil
	}

	return record, true, nil
}

// Exists reports whether Find would find the token
func (s *Store) Exists(ctx context.Context, user Subject, token string) (bool, error) {
	_, found, err := s.Find(ctx, user, token)
	return found, err
}

// Delete user token if it has any
func (s *Store) Delete(ctx context.Context, user Subject) error {
	err := s.storage.ResetToken(s.table).DeleteByUser(ctx, user.SubjectID())
	if err != nil {
		return fmt.Errorf("error while deleting token. Err: %w", err)
	}

	return nil
}

// DeleteExpired deletes tokens of all users created before now - expire
// Safe to run concurrently
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	cutoff := s.currentTime().Add(-s.expire)

	deleted, err := s.storage.ResetToken(s.table).DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error while deleting expired tokens. Err: %w", err)
	}

	s.logger.Debug("Expired reset tokens deleted", "cutoff", cutoff, "deleted", deleted)

	return deleted, nil
}

// RecentlyCreated reports whether user got a token less than throttle seconds ago
// Always false if throttling disabled
func (s *Store) RecentlyCreated(ctx context.Context, user Subject) (bool, error) {
	if s.throttle <= 0 {
		return false, nil
	}

	record, err := s.storage.ResetToken(s.table).GetByUser(ctx, user.SubjectID())

	switch {
	case errors.Is(err, apperrors.ErrResetTokenNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("error while getting token. Err: %w", err)
	}

	return record.CreatedAt.Add(s.throttle).After(s.currentTime()), nil
}

func (s *Store) expired(createdAt time.Time) bool {
	return !s.currentTime().Before(createdAt.Add(s.expire))
}

package apperrors

import (
	"errors"
)

var (
	ErrResetTokenNotFound = errors.New("reset token not found")

	ErrInvalidConfig  = errors.New("invalid token store config")
	ErrInvalidPayload = errors.New("invalid reset token payload")

	ErrTableNotFound = errors.New("reset token table not found")
	ErrUnknownColumn = errors.New("reset token table has no such column")
)

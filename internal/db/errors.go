package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/resettoken/internal/apperrors"
)

// TranslateError maps postgres errors callers may act on to apperrors
// Other errors returned as is
func TranslateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UndefinedTable:
		return fmt.Errorf("%w: %s", apperrors.ErrTableNotFound, pgErr.Message)
	case pgerrcode.UndefinedColumn:
		return fmt.Errorf("%w: %s", apperrors.ErrUnknownColumn, pgErr.Message)
	default:
		return err
	}
}

package models

import (
	"fmt"
	"time"

	"github.com/nkiryanov/resettoken/internal/apperrors"
)

// Fixed columns of every reset token table
const (
	ColumnUserID    = "user_id"
	ColumnToken     = "token"
	ColumnCreatedAt = "created_at"
)

type ResetToken struct {
	UserID    string
	TokenHash string // never the plaintext token
	CreatedAt time.Time

	// Additional columns set by the payload hook, keyed by column name
	Extra map[string]any
}

// Row converts token to column -> value map ready to be inserted
func (t ResetToken) Row() (map[string]any, error) {
	if t.UserID == "" {
		return nil, fmt.Errorf("%w: user id is empty", apperrors.ErrInvalidPayload)
	}

	row := make(map[string]any, len(t.Extra)+3)
	for column, value := range t.Extra {
		switch column {
		case ColumnUserID, ColumnToken, ColumnCreatedAt, "":
			return nil, fmt.Errorf("%w: column %q can't be set as extra field", apperrors.ErrInvalidPayload, column)
		}
		row[column] = value
	}

	row[ColumnUserID] = t.UserID
	row[ColumnToken] = t.TokenHash
	row[ColumnCreatedAt] = t.CreatedAt

	return row, nil
}

// ResetTokenFromRow builds token from a row selected with all table columns
// Unknown columns go to Extra
func ResetTokenFromRow(row map[string]any) (ResetToken, error) {
	var (
		t   ResetToken
		err error
	)

	if t.UserID, err = asString(ColumnUserID, row[ColumnUserID]); err != nil {
		return t, err
	}
	if t.TokenHash, err = asString(ColumnToken, row[ColumnToken]); err != nil {
		return t, err
	}
	if t.CreatedAt, err = asTime(row[ColumnCreatedAt]); err != nil {
		return t, err
	}

	for column, value := range row {
		switch column {
		case ColumnUserID, ColumnToken, ColumnCreatedAt:
			continue
		}
		if t.Extra == nil {
			t.Extra = make(map[string]any, len(row)-3)
		}
		t.Extra[column] = value
	}

	return t, nil
}

func asString(column string, value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("unexpected %s value %T", column, value)
	}
}

// Some drivers (sqlite) may return timestamps as text
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

func asTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case []byte:
		return asTime(string(v))
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("can't parse %s value %q", ColumnCreatedAt, v)
	default:
		return time.Time{}, fmt.Errorf("unexpected %s value %T", ColumnCreatedAt, value)
	}
}

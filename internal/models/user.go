package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Username  string
}

// SubjectID is the stable identifier reset tokens are keyed by
func (u User) SubjectID() string {
	return u.ID.String()
}

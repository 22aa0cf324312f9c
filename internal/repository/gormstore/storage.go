package gormstore

import (
	"context"

	"gorm.io/gorm"

	"github.com/nkiryanov/resettoken/internal/repository"
)

type Storage struct {
	db *gorm.DB
}

func NewStorage(db *gorm.DB) repository.Storage {
	return &Storage{db: db}
}

func (s *Storage) ResetToken(table string) repository.ResetTokenRepo {
	return &ResetTokenRepo{db: s.db, table: table}
}

// InTx runs fn in transaction, nested calls use savepoints
func (s *Storage) InTx(ctx context.Context, fn func(repository.Storage) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStorage(tx))
	})
}

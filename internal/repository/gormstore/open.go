// Package gormstore implements reset token storage on top of gorm.
// It serves databases pgx does not: sqlite for single node setups and tests,
// mysql, and postgres for deployments that already use gorm.
package gormstore

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// DialectorOpener returns gorm.Dialector for a given DSN
type DialectorOpener = func(dsn string) gorm.Dialector

var dialectors = map[string]DialectorOpener{
	"sqlite":   sqlite.Open,
	"postgres": postgres.Open,
	"mysql":    mysql.Open,
}

// Drivers returns names of supported drivers
func Drivers() []string {
	return slices.Sorted(maps.Keys(dialectors))
}

// Open connects to database with registered driver
func Open(driver string, dsn string) (*gorm.DB, error) {
	opener, ok := dialectors[driver]
	if !ok {
		return nil, fmt.Errorf("gormstore: unknown driver %q, supported: %v", driver, Drivers())
	}

	db, err := gorm.Open(opener(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("gormstore: can't open %s database. Err: %w", driver, err)
	}

	return db, nil
}

// resetTokenRow describes the minimal reset token table
// Integrators may add columns to the table, they're read and written as extra fields
type resetTokenRow struct {
	UserID    string    `gorm:"column:user_id;primaryKey"`
	Token     string    `gorm:"column:token;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

// Migrate creates reset token table with given name (or adds missing columns) and index on created_at
func Migrate(db *gorm.DB, table string) error {
	if err := db.Table(table).AutoMigrate(&resetTokenRow{}); err != nil {
		return fmt.Errorf("gormstore: can't migrate table %q. Err: %w", table, err)
	}

	// Index named after the table: gorm would name it after the model and clash between tables
	// Checked first, mysql has no CREATE INDEX IF NOT EXISTS
	index := table + "_created_at_idx"
	if db.Table(table).Migrator().HasIndex(&resetTokenRow{}, index) {
		return nil
	}

	err := db.Exec(
		"CREATE INDEX ? ON ? (created_at)",
		clause.Table{Name: index},
		clause.Table{Name: table},
	).Error
	if err != nil {
		return fmt.Errorf("gormstore: can't create index on %q. Err: %w", table, err)
	}

	return nil
}

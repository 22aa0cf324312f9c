package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/nkiryanov/resettoken/internal/db"
	"github.com/nkiryanov/resettoken/internal/logger"
	"github.com/nkiryanov/resettoken/internal/repository"
	"github.com/nkiryanov/resettoken/internal/repository/gormstore"
	"github.com/nkiryanov/resettoken/internal/repository/postgres"
	"github.com/nkiryanov/resettoken/internal/service/purger"
	"github.com/nkiryanov/resettoken/internal/service/resettoken"
)

// pgx is the native driver, others are served by gorm
const DriverPgx = "pgx"

type PurgeApp struct {
	Once   bool
	Purger *purger.Purger
	Logger logger.Logger

	close func()
}

func NewPurgeApp(ctx context.Context, c *Config) (*PurgeApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	storage, closeStorage, err := openStorage(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	store, err := resettoken.New(resettoken.Config{
		Table:         c.Table,
		SecretKey:     c.SecretKey,
		ExpireMinutes: c.ExpireMinutes,
		Logger:        logger,
	}, storage)
	if err != nil {
		closeStorage()
		return nil, fmt.Errorf("error while creating token store. Err: %w", err)
	}

	return &PurgeApp{
		Once:   c.Once,
		Purger: purger.New(store, c.Interval, logger),
		Logger: logger,
		close:  closeStorage,
	}, nil
}

// Run purges tokens once or until context cancelled
func (a *PurgeApp) Run(ctx context.Context) error {
	defer a.close()

	if a.Once {
		_, err := a.Purger.PurgeOnce(ctx)
		return err
	}

	a.Logger.Info("Starting purger")
	<-a.Purger.Run(ctx)
	a.Logger.Info("Purger stopped")

	return nil
}

func openStorage(ctx context.Context, c *Config) (repository.Storage, func(), error) {
	switch {
	case c.Driver == DriverPgx:
		pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewStorage(pool), pool.Close, nil

	case slices.Contains(gormstore.Drivers(), c.Driver):
		gdb, err := gormstore.Open(c.Driver, c.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, nil, err
		}
		if err := gormstore.Migrate(gdb.WithContext(ctx), c.Table); err != nil {
			_ = sqlDB.Close()
			return nil, nil, err
		}
		return gormstore.NewStorage(gdb), func() { _ = sqlDB.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown driver %q", c.Driver)
	}
}

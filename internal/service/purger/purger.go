// Package purger periodically removes expired reset tokens
package purger

import (
	"context"
	"time"

	"github.com/nkiryanov/resettoken/internal/logger"
)

const defaultInterval = 10 * time.Minute

type tokenStore interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

type Purger struct {
	interval time.Duration
	store    tokenStore
	logger   logger.Logger
}

// New creates purger; defaultInterval used if interval is not positive
func New(store tokenStore, interval time.Duration, logger logger.Logger) *Purger {
	if interval <= 0 {
		interval = defaultInterval
	}

	return &Purger{
		interval: interval,
		store:    store,
		logger:   logger,
	}
}

// PurgeOnce deletes expired tokens once
func (p *Purger) PurgeOnce(ctx context.Context) (int64, error) {
	deleted, err := p.store.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}

	p.logger.Info("Expired reset tokens purged", "deleted", deleted)
	return deleted, nil
}

// Run purges tokens right away and then every interval until context is cancelled
// Returned channel is closed when purger stopped
func (p *Purger) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})
	p.logger.Debug("Starting purger", "interval", p.interval)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			// Errors are logged only: next tick may succeed
			if _, err := p.PurgeOnce(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("Failed to purge expired reset tokens", "error", err)
			}

			select {
			case <-ctx.Done():
				p.logger.Debug("Purger stopped by context")
				return
			case <-ticker.C:
			}
		}
	}()

	return idleStopped
}

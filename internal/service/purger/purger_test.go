package purger

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/resettoken/internal/logger"
)

type fakeStore struct {
	calls atomic.Int32
	err   error
}

func (s *fakeStore) DeleteExpired(context.Context) (int64, error) {
	s.calls.Add(1)
	if s.err != nil {
		return 0, s.err
	}
	return 2, nil
}

func TestPurger(t *testing.T) {
	t.Run("default interval", func(t *testing.T) {
		p := New(&fakeStore{}, 0, logger.NewNoOpLogger())

		require.Equal(t, defaultInterval, p.interval)
	})

	t.Run("purge once", func(t *testing.T) {
		store := &fakeStore{}
		p := New(store, time.Minute, logger.NewNoOpLogger())

		deleted, err := p.PurgeOnce(t.Context())

		require.NoError(t, err)
		require.Equal(t, int64(2), deleted)
		require.Equal(t, int32(1), store.calls.Load())
	})

	t.Run("purge once error", func(t *testing.T) {
		store := &fakeStore{err: errors.New("db is down")}
		p := New(store, time.Minute, logger.NewNoOpLogger())

		_, err := p.PurgeOnce(t.Context())

		require.Error(t, err)
	})

	t.Run("run purges immediately and periodically", func(t *testing.T) {
		store := &fakeStore{}
		p := New(store, 10*time.Millisecond, logger.NewNoOpLogger())
		ctx, cancel := context.WithCancel(t.Context())

		stopped := p.Run(ctx)

		require.Eventually(t, func() bool { return store.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
		cancel()

		select {
		case <-stopped:
		case <-time.After(time.Second):
			t.Fatal("purger must stop after context cancelled")
		}
	})

	t.Run("run continues after errors", func(t *testing.T) {
		store := &fakeStore{err: errors.New("db is down")}
		p := New(store, 10*time.Millisecond, logger.NewNoOpLogger())
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		p.Run(ctx)

		require.Eventually(t, func() bool { return store.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	})
}

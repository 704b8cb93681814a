package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/taskhub/internal/domain/service/mocks"
	"github.com/turtacn/taskhub/pkg/errors"
	"github.com/turtacn/taskhub/pkg/logger"
)

func TestBreakerStore_PassesThrough(t *testing.T) {
	inner := NewMemoryStore(time.Minute)
	store := NewBreakerStore(inner, BreakerSettings{Name: "test", ConsecutiveFailures: 2, OpenTimeout: time.Minute}, logger.NewNoopLogger())
	ctx := context.Background()

	n, ttl, err := store.Increment(ctx, "k", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, time.Hour, ttl)

	count, ttl, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Greater(t, ttl, 59*time.Minute)

	ttl, err = store.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	require.NoError(t, store.Decrement(ctx, "k"))
	assert.Equal(t, gobreaker.StateClosed, store.State())
}

func TestBreakerStore_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := new(mocks.MockCounterStore)
	storeErr := errors.StoreError("increment", "k", assert.AnError)
	inner.On("Increment", mock.Anything, "k", time.Minute).Return(int64(0), time.Duration(0), storeErr).Times(3)

	store := NewBreakerStore(inner, BreakerSettings{Name: "test", ConsecutiveFailures: 3, OpenTimeout: time.Minute}, logger.NewNoopLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := store.Increment(ctx, "k", time.Minute)
		assert.ErrorIs(t, err, assert.AnError)
	}
	assert.Equal(t, gobreaker.StateOpen, store.State())

	// Open circuit: the inner store is not called again.
	_, _, err := store.Increment(ctx, "k", time.Minute)
	assert.True(t, errors.IsStoreError(err))
	assert.ErrorIs(t, err, errors.ErrStoreUnavailable)
	inner.AssertNumberOfCalls(t, "Increment", 3)
}

func TestBreakerStore_PingBypassesCircuit(t *testing.T) {
	inner := new(mocks.MockCounterStore)
	inner.On("Ping", mock.Anything).Return(nil)

	store := NewBreakerStore(inner, BreakerSettings{Name: "test"}, logger.NewNoopLogger())
	assert.NoError(t, store.Ping(context.Background()))
	inner.AssertExpectations(t)
}

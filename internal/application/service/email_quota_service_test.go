package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/turtacn/taskhub/internal/config"
	"github.com/turtacn/taskhub/internal/domain/service/mocks"
	"github.com/turtacn/taskhub/internal/infrastructure/monitoring"
	"github.com/turtacn/taskhub/internal/infrastructure/ratelimit"
	"github.com/turtacn/taskhub/pkg/errors"
)

func newEmailQuota(t *testing.T, cfg config.EmailConfig) (*emailQuotaServiceImpl, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc := NewEmailQuotaService(ratelimit.NewRedisStore(client), &cfg, nil, nil).(*emailQuotaServiceImpl)
	return svc, mr
}

func defaultEmailConfig() config.EmailConfig {
	return config.Default().Email
}

func TestEmailQuota_FreshUserHasUserHourlyHeadroom(t *testing.T) {
	svc, _ := newEmailQuota(t, defaultEmailConfig())

	res := svc.CheckEmailRateLimit(context.Background(), "u1")

	assert.True(t, res.Allowed)
	assert.Equal(t, int64(10), res.Remaining)
	assert.Equal(t, TierUserHourly, res.Tier)
	require.NotNil(t, res.ResetAt)
	assert.Empty(t, res.Message)
}

func TestEmailQuota_CheckDoesNotConsume(t *testing.T) {
	svc, mr := newEmailQuota(t, defaultEmailConfig())

	for i := 0; i < 20; i++ {
		require.True(t, svc.CheckEmailRateLimit(context.Background(), "u1").Allowed)
	}
	assert.False(t, mr.Exists("rate-limit:email:user:u1:hour"))
}

func TestEmailQuota_UserHourlyTierDeniesEleventhEmail(t *testing.T) {
	svc, mr := newEmailQuota(t, defaultEmailConfig())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.True(t, svc.CheckEmailRateLimit(ctx, "u1").Allowed, "email %d", i+1)
		svc.IncrementCounters(ctx, "u1")
	}

	res := svc.CheckEmailRateLimit(ctx, "u1")
	assert.False(t, res.Allowed)
	assert.Equal(t, TierUserHourly, res.Tier)
	assert.Contains(t, res.Message, "Hourly")
	assert.Zero(t, res.Remaining)
	assert.Greater(t, res.RetryAfter, 59*time.Minute)
	require.NotNil(t, res.ResetAt)

	// Daily tier still has room.
	day, err := mr.Get("rate-limit:email:user:u1:day")
	require.NoError(t, err)
	assert.Equal(t, "10", day)

	// Other users are unaffected.
	assert.True(t, svc.CheckEmailRateLimit(ctx, "u2").Allowed)
}

func TestEmailQuota_UserDailyTier(t *testing.T) {
	svc, mr := newEmailQuota(t, defaultEmailConfig())
	ctx := context.Background()

	for hour := 0; hour < 5; hour++ {
		for i := 0; i < 10; i++ {
			svc.IncrementCounters(ctx, "u1")
		}
		mr.FastForward(time.Hour + time.Second)
	}

	res := svc.CheckEmailRateLimit(ctx, "u1")
	assert.False(t, res.Allowed)
	assert.Equal(t, TierUserDaily, res.Tier)
	assert.Contains(t, res.Message, "Daily")
	assert.Greater(t, res.RetryAfter, 18*time.Hour)
}

func TestEmailQuota_GlobalTiers(t *testing.T) {
	cfg := config.EmailConfig{UserHourlyMax: 10, UserDailyMax: 50, GlobalHourlyMax: 3, GlobalDailyMax: 5}
	svc, mr := newEmailQuota(t, cfg)
	ctx := context.Background()

	svc.IncrementCounters(ctx, "a")
	svc.IncrementCounters(ctx, "b")

	res := svc.CheckEmailRateLimit(ctx, "c")
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(1), res.Remaining)
	assert.Equal(t, TierGlobalHourly, res.Tier)

	svc.IncrementCounters(ctx, "c")
	res = svc.CheckEmailRateLimit(ctx, "d")
	assert.False(t, res.Allowed)
	assert.Equal(t, TierGlobalHourly, res.Tier)

	mr.FastForward(time.Hour + time.Second)
	svc.IncrementCounters(ctx, "d")
	svc.IncrementCounters(ctx, "e")

	res = svc.CheckEmailRateLimit(ctx, "f")
	assert.False(t, res.Allowed)
	assert.Equal(t, TierGlobalDaily, res.Tier)
}

func TestEmailQuota_FailsOpenOnStoreError(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store := new(mocks.MockCounterStore)
	store.On("Get", mock.Anything, mock.Anything).
		Return(int64(0), time.Duration(0), errors.StoreError("get", "k", assert.AnError))
	store.On("Increment", mock.Anything, mock.Anything, mock.Anything).
		Return(int64(0), time.Duration(0), errors.StoreError("increment", "k", assert.AnError))

	cfg := defaultEmailConfig()
	svc := NewEmailQuotaService(store, &cfg, nil, monitoring.NewZapLoggerFromCore(core))

	res := svc.CheckEmailRateLimit(context.Background(), "u1")
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, logs.FilterMessage("Counter store unavailable, allowing email").Len())

	svc.IncrementCounters(context.Background(), "u1")
	assert.Equal(t, 4, logs.FilterMessage("Counter store unavailable, email not counted").Len())
}

func TestEmailQuota_IncrementSurvivesCancelledContext(t *testing.T) {
	svc, mr := newEmailQuota(t, defaultEmailConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc.IncrementCounters(ctx, "u1")

	v, err := mr.Get("rate-limit:email:global:day")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}

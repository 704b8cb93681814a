package service_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/turtacn/taskhub/internal/domain/models"
	"github.com/turtacn/taskhub/internal/domain/service"
	"github.com/turtacn/taskhub/internal/domain/service/mocks"
	"github.com/turtacn/taskhub/internal/infrastructure/monitoring"
	"github.com/turtacn/taskhub/internal/infrastructure/ratelimit"
	"github.com/turtacn/taskhub/pkg/constants"
	"github.com/turtacn/taskhub/pkg/errors"
)

var loginLimit = models.RateLimit{
	Family:  constants.RateLimitFamilyAuth,
	Name:    "login",
	Window:  15 * time.Minute,
	Max:     5,
	Message: "Too many login attempts, please try again after 15 minutes.",
}

func newRedisLimiter(t *testing.T, opts ...service.RateLimiterOption) (*service.RateLimiter, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return service.NewRateLimiter(ratelimit.NewRedisStore(client), opts...), mr
}

func TestRateLimiter_Capacity(t *testing.T) {
	limiter, _ := newRedisLimiter(t)
	ctx := context.Background()

	for i := int64(1); i <= loginLimit.Max; i++ {
		d := limiter.Evaluate(ctx, loginLimit, "1.2.3.4")
		require.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, i, d.Count)
		assert.Equal(t, loginLimit.Max-i, d.Remaining)
		assert.Equal(t, "rate-limit:auth:login:1.2.3.4", d.Key)
		assert.Zero(t, d.RetryAfter)
	}

	d := limiter.Evaluate(ctx, loginLimit, "1.2.3.4")
	assert.False(t, d.Allowed)
	assert.Equal(t, int64(6), d.Count)
	assert.Zero(t, d.Remaining)
	assert.Greater(t, d.RetryAfter, 14*time.Minute)
	assert.LessOrEqual(t, d.RetryAfter, 15*time.Minute)

	other := limiter.Evaluate(ctx, loginLimit, "5.6.7.8")
	assert.True(t, other.Allowed, "identities are counted separately")
}

func TestRateLimiter_WindowReset(t *testing.T) {
	limiter, mr := newRedisLimiter(t)
	ctx := context.Background()

	for i := 0; i < int(loginLimit.Max)+3; i++ {
		limiter.Evaluate(ctx, loginLimit, "1.2.3.4")
	}
	require.False(t, limiter.Evaluate(ctx, loginLimit, "1.2.3.4").Allowed)

	mr.FastForward(loginLimit.Window + time.Second)

	d := limiter.Evaluate(ctx, loginLimit, "1.2.3.4")
	assert.True(t, d.Allowed)
	assert.Equal(t, int64(1), d.Count)
}

// Fixed windows do not smooth bursts: requests packed around a window boundary
// can exceed Max within a span much shorter than the window. This is the
// expected behaviour of the algorithm, not a defect.
func TestRateLimiter_FixedWindowBoundaryBurst(t *testing.T) {
	limiter, mr := newRedisLimiter(t)
	ctx := context.Background()
	limit := models.RateLimit{Family: constants.RateLimitFamilySearch, Name: "boundary", Window: time.Minute, Max: 5, Message: "slow down"}

	// Opens the window.
	require.True(t, limiter.Evaluate(ctx, limit, "u1").Allowed)
	mr.FastForward(59 * time.Second)

	allowedInBurst := 0
	for i := 0; i < int(limit.Max)-1; i++ {
		if limiter.Evaluate(ctx, limit, "u1").Allowed {
			allowedInBurst++
		}
	}
	mr.FastForward(2 * time.Second)
	for i := 0; i < int(limit.Max); i++ {
		if limiter.Evaluate(ctx, limit, "u1").Allowed {
			allowedInBurst++
		}
	}

	// 2*Max-1 requests admitted within two seconds of a one-minute window.
	assert.Equal(t, 2*int(limit.Max)-1, allowedInBurst)
	assert.False(t, limiter.Evaluate(ctx, limit, "u1").Allowed)
}

func TestRateLimiter_ConcurrentEvaluations(t *testing.T) {
	stores := map[string]service.CounterStore{
		"memory": ratelimit.NewMemoryStore(time.Minute),
	}
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), PoolSize: 64})
	defer client.Close()
	stores["redis"] = ratelimit.NewRedisStore(client)

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			limiter := service.NewRateLimiter(store, service.WithStoreTimeout(5*time.Second))
			limit := models.RateLimit{Family: constants.RateLimitFamilyAPI, Name: "create-task", Window: time.Hour, Max: 50, Message: "too many"}

			var allowed, denied atomic.Int64
			var wg sync.WaitGroup
			for i := 0; i < 2*int(limit.Max); i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if limiter.Evaluate(context.Background(), limit, "user-1").Allowed {
						allowed.Add(1)
					} else {
						denied.Add(1)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, limit.Max, allowed.Load())
			assert.Equal(t, limit.Max, denied.Load())
		})
	}
}

func TestRateLimiter_FailsOpenOnStoreError(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	store := new(mocks.MockCounterStore)
	store.On("Increment", mock.Anything, "rate-limit:auth:login:1.2.3.4", loginLimit.Window).
		Return(int64(0), time.Duration(0), errors.StoreError("increment", "rate-limit:auth:login:1.2.3.4", assert.AnError))

	limiter := service.NewRateLimiter(store, service.WithLogger(monitoring.NewZapLoggerFromCore(core)))
	d := limiter.Evaluate(context.Background(), loginLimit, "1.2.3.4")

	assert.True(t, d.Allowed)
	assert.True(t, d.Degraded)
	assert.Equal(t, loginLimit.Max, d.Remaining)

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	fields := warnings[0].ContextMap()
	assert.Equal(t, "rate-limit:auth:login:1.2.3.4", fields["key"])
	assert.Equal(t, "rate-limit:auth:login", fields["policy"])
}

func TestRateLimiter_FailsOpenOnTimeout(t *testing.T) {
	store := new(mocks.MockCounterStore)
	store.On("Increment", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(int64(0), time.Duration(0), errors.StoreError("increment", "k", context.DeadlineExceeded))

	limiter := service.NewRateLimiter(store, service.WithStoreTimeout(20*time.Millisecond))

	start := time.Now()
	d := limiter.Evaluate(context.Background(), loginLimit, "1.2.3.4")
	assert.True(t, d.Allowed)
	assert.True(t, d.Degraded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRateLimiter_FailsOpenWhenRedisDown(t *testing.T) {
	limiter, mr := newRedisLimiter(t)
	mr.Close()

	for i := 0; i < int(loginLimit.Max)*2; i++ {
		assert.True(t, limiter.Evaluate(context.Background(), loginLimit, "1.2.3.4").Allowed)
	}
}

func TestRateLimiter_Refund(t *testing.T) {
	limiter, _ := newRedisLimiter(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		d := limiter.Evaluate(ctx, loginLimit, "1.2.3.4")
		require.True(t, d.Allowed, "request %d", i)
		limiter.Refund(ctx, loginLimit, d)
	}

	d := limiter.Evaluate(ctx, loginLimit, "1.2.3.4")
	assert.Equal(t, int64(1), d.Count)
}

func TestRateLimiter_RefundAfterWindowEndLeavesNextWindowAlone(t *testing.T) {
	store := ratelimit.NewMemoryStore(time.Minute)
	limiter := service.NewRateLimiter(store)
	limit := models.RateLimit{Family: constants.RateLimitFamilyAuth, Name: "slow-login", Window: 50 * time.Millisecond, Max: 5, Message: "slow down"}
	ctx := context.Background()

	stale := limiter.Evaluate(ctx, limit, "1.2.3.4")
	require.True(t, stale.Allowed)
	time.Sleep(80 * time.Millisecond)

	fresh := limiter.Evaluate(ctx, limit, "1.2.3.4")
	require.Equal(t, int64(1), fresh.Count)

	// The handler behind the first request outlived its window.
	limiter.Refund(ctx, limit, stale)

	count, _, err := store.Get(ctx, fresh.Key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "the newer window keeps its count")
}

func TestRateLimiter_OneStoreCallPerEvaluation(t *testing.T) {
	store := &countingStore{CounterStore: ratelimit.NewMemoryStore(time.Minute), calls: map[string]int{}}
	limiter := service.NewRateLimiter(store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		d := limiter.Evaluate(ctx, loginLimit, "1.2.3.4")
		require.True(t, d.Allowed)
		assert.Greater(t, d.ResetAfter, 14*time.Minute)
		assert.LessOrEqual(t, d.ResetAfter, loginLimit.Window)
	}
	d := limiter.Evaluate(ctx, loginLimit, "1.2.3.4")
	require.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, 14*time.Minute)

	assert.Equal(t, map[string]int{"Increment": 6}, store.snapshot())
}

type countingStore struct {
	service.CounterStore
	mu    sync.Mutex
	calls map[string]int
}

func (s *countingStore) count(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
}

func (s *countingStore) snapshot() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.calls))
	for k, v := range s.calls {
		out[k] = v
	}
	return out
}

func (s *countingStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.count("Increment")
	return s.CounterStore.Increment(ctx, key, window)
}

func (s *countingStore) Get(ctx context.Context, key string) (int64, time.Duration, error) {
	s.count("Get")
	return s.CounterStore.Get(ctx, key)
}

func (s *countingStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	s.count("TTL")
	return s.CounterStore.TTL(ctx, key)
}

func (s *countingStore) Decrement(ctx context.Context, key string) error {
	s.count("Decrement")
	return s.CounterStore.Decrement(ctx, key)
}

func TestRateLimiter_RecordsMetrics(t *testing.T) {
	m := &recordingMetrics{}
	limiter, _ := newRedisLimiter(t, service.WithMetrics(m))
	limit := models.RateLimit{Family: constants.RateLimitFamilySearch, Name: "query", Window: time.Minute, Max: 1, Message: "slow down"}

	limiter.Evaluate(context.Background(), limit, "u1")
	limiter.Evaluate(context.Background(), limit, "u1")

	assert.Equal(t, []string{"search/query/allowed", "search/query/denied"}, m.decisions)
}

type recordingMetrics struct {
	mu        sync.Mutex
	decisions []string
}

func (r *recordingMetrics) RecordDecision(family, policy, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, family+"/"+policy+"/"+outcome)
}
func (r *recordingMetrics) RecordStoreError(string)             {}
func (r *recordingMetrics) ObserveStoreLatency(string, float64) {}
func (r *recordingMetrics) RecordEmailQuota(string, string)     {}

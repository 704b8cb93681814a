// Package service provides application-level services that orchestrate domain services.
package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/taskhub/internal/config"
	"github.com/turtacn/taskhub/internal/domain/models"
	domainService "github.com/turtacn/taskhub/internal/domain/service"
	"github.com/turtacn/taskhub/pkg/constants"
	"github.com/turtacn/taskhub/pkg/logger"
)

// EmailQuotaService bounds outbound email with four counters checked together:
// per-user hourly and daily, platform-wide hourly and daily.
//
// Checking and consuming are separate calls. Callers check before sending and
// increment after a successful send, so concurrent senders may overshoot a tier
// by the number of sends in flight.
type EmailQuotaService interface {
	// CheckEmailRateLimit reports whether userID may send one more email.
	// It reads the counters without consuming them.
	CheckEmailRateLimit(ctx context.Context, userID string) models.EmailQuotaResult

	// IncrementCounters records one sent email for userID on every tier.
	IncrementCounters(ctx context.Context, userID string)
}

// Tier names, also used as metric labels.
const (
	TierUserHourly   = "user_hourly"
	TierUserDaily    = "user_daily"
	TierGlobalHourly = "global_hourly"
	TierGlobalDaily  = "global_daily"
)

type emailQuotaServiceImpl struct {
	store        domainService.CounterStore
	tiers        []models.QuotaTier
	storeTimeout time.Duration
	metrics      domainService.Metrics
	logger       logger.Logger
	now          func() time.Time
}

// NewEmailQuotaService creates an EmailQuotaService with the limits in cfg.
func NewEmailQuotaService(store domainService.CounterStore, cfg *config.EmailConfig, metrics domainService.Metrics, log logger.Logger) EmailQuotaService {
	if metrics == nil {
		metrics = domainService.NewNoopMetrics()
	}
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &emailQuotaServiceImpl{
		store:        store,
		tiers:        EmailQuotaTiers(cfg),
		storeTimeout: constants.DefaultStoreTimeout,
		metrics:      metrics,
		logger:       log.WithComponent("email_quota"),
		now:          time.Now,
	}
}

// EmailQuotaTiers returns the tiers in evaluation order.
func EmailQuotaTiers(cfg *config.EmailConfig) []models.QuotaTier {
	return []models.QuotaTier{
		{Name: TierUserHourly, Scope: models.QuotaScopeUser, Period: "hour", Window: time.Hour, Max: cfg.UserHourlyMax},
		{Name: TierUserDaily, Scope: models.QuotaScopeUser, Period: "day", Window: 24 * time.Hour, Max: cfg.UserDailyMax},
		{Name: TierGlobalHourly, Scope: models.QuotaScopeGlobal, Period: "hour", Window: time.Hour, Max: cfg.GlobalHourlyMax},
		{Name: TierGlobalDaily, Scope: models.QuotaScopeGlobal, Period: "day", Window: 24 * time.Hour, Max: cfg.GlobalDailyMax},
	}
}

type tierReading struct {
	count int64
	ttl   time.Duration
}

// CheckEmailRateLimit implements EmailQuotaService.
func (s *emailQuotaServiceImpl) CheckEmailRateLimit(ctx context.Context, userID string) models.EmailQuotaResult {
	readings, err := s.read(ctx, userID)
	if err != nil {
		s.logger.Warn(ctx, "Counter store unavailable, allowing email",
			logger.String("user_id", userID), logger.Err(err))
		s.metrics.RecordStoreError("get")
		s.metrics.RecordEmailQuota(domainService.OutcomeFailedOpen, "")
		return models.EmailQuotaResult{Allowed: true, Remaining: s.tiers[0].Max}
	}

	now := s.now()
	var (
		binding   models.QuotaTier
		remaining int64 = -1
		resetIn   time.Duration
	)
	for i, tier := range s.tiers {
		r := readings[i]
		window := r.ttl
		if window <= 0 {
			window = tier.Window
		}

		if r.count >= tier.Max {
			resetAt := now.Add(window)
			s.metrics.RecordEmailQuota(domainService.OutcomeDenied, tier.Name)
			s.logger.Info(ctx, "Email quota exhausted",
				logger.String("user_id", userID),
				logger.String("tier", tier.Name),
				logger.Int64("count", r.count),
				logger.Int64("limit", tier.Max),
			)
			return models.EmailQuotaResult{
				Allowed:    false,
				Remaining:  0,
				ResetAt:    &resetAt,
				RetryAfter: window,
				Message:    denialMessage(tier),
				Tier:       tier.Name,
			}
		}

		if headroom := tier.Max - r.count; remaining < 0 || headroom < remaining {
			remaining = headroom
			binding = tier
			resetIn = window
		}
	}

	resetAt := now.Add(resetIn)
	s.metrics.RecordEmailQuota(domainService.OutcomeAllowed, binding.Name)
	return models.EmailQuotaResult{
		Allowed:   true,
		Remaining: remaining,
		ResetAt:   &resetAt,
		Tier:      binding.Name,
	}
}

// IncrementCounters implements EmailQuotaService. The email has already been
// sent, so the increments outlive a cancelled request context.
func (s *emailQuotaServiceImpl) IncrementCounters(ctx context.Context, userID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for _, tier := range s.tiers {
		g.Go(func() error {
			_, _, err := s.store.Increment(gctx, tier.Key(userID), tier.Window)
			if err != nil {
				s.metrics.RecordStoreError("increment")
				s.logger.Warn(ctx, "Counter store unavailable, email not counted",
					logger.String("user_id", userID),
					logger.String("tier", tier.Name),
					logger.Err(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *emailQuotaServiceImpl) read(ctx context.Context, userID string) ([]tierReading, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	readings := make([]tierReading, len(s.tiers))
	g, gctx := errgroup.WithContext(ctx)
	for i, tier := range s.tiers {
		g.Go(func() error {
			count, ttl, err := s.store.Get(gctx, tier.Key(userID))
			if err != nil {
				return err
			}
			readings[i] = tierReading{count: count, ttl: ttl}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return readings, nil
}

func denialMessage(tier models.QuotaTier) string {
	switch tier.Name {
	case TierUserHourly:
		return fmt.Sprintf("Hourly email limit reached. You can send up to %d emails per hour.", tier.Max)
	case TierUserDaily:
		return fmt.Sprintf("Daily email limit reached. You can send up to %d emails per day.", tier.Max)
	case TierGlobalHourly:
		return "The platform hourly email limit has been reached. Please try again later."
	default:
		return "The platform daily email limit has been reached. Please try again later."
	}
}

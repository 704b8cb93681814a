// Package limiters declares the rate limit policies of the HTTP API, grouped
// by family. Policies are built once at startup from configuration.
package limiters

import (
	"github.com/turtacn/taskhub/internal/config"
	"github.com/turtacn/taskhub/internal/domain/models"
	"github.com/turtacn/taskhub/internal/interfaces/http/middleware"
	"github.com/turtacn/taskhub/pkg/constants"
)

// MetricsPath is excluded from the global throttle with the health probes.
const MetricsPath = "/metrics"

// Global throttles every request per client address.
func Global(cfg *config.RateLimitConfig) middleware.Policy {
	window := cfg.GlobalWindow
	if window <= 0 {
		window = constants.GlobalRateLimitWindow
	}
	return middleware.Policy{
		RateLimit: models.RateLimit{
			Family:  constants.RateLimitFamilyGlobal,
			Name:    "ip",
			Window:  window,
			Max:     int64(cfg.GlobalMax),
			Message: "Too many requests from this IP, please try again later.",
		},
		KeyFunc: middleware.KeyByIP(cfg.TrustForwarded),
		SkipFunc: middleware.SkipPaths(
			constants.DefaultHealthCheckPath,
			constants.DefaultLivenessCheckPath,
			constants.DefaultReadinessCheckPath,
			MetricsPath,
		),
		StandardHeaders: true,
	}
}

package limiters

import (
	"github.com/turtacn/taskhub/internal/config"
	"github.com/turtacn/taskhub/internal/domain/models"
	"github.com/turtacn/taskhub/internal/interfaces/http/middleware"
	"github.com/turtacn/taskhub/pkg/constants"
)

// Search throttles search queries per user, or per address for anonymous callers.
func Search(cfg *config.RateLimitConfig) middleware.Policy {
	return middleware.Policy{
		RateLimit: models.RateLimit{
			Family:  constants.RateLimitFamilySearch,
			Name:    "query",
			Window:  constants.SearchRateLimitWindow,
			Max:     constants.SearchRateLimitMax,
			Message: "Too many search requests, please slow down.",
		},
		KeyFunc:         middleware.KeyByClient(cfg.TrustForwarded),
		StandardHeaders: true,
	}
}

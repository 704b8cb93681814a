package limiters

import (
	"time"

	"github.com/turtacn/taskhub/internal/config"
	"github.com/turtacn/taskhub/internal/domain/models"
	"github.com/turtacn/taskhub/internal/interfaces/http/middleware"
	"github.com/turtacn/taskhub/pkg/constants"
)

// LoginMessage is returned verbatim to throttled login attempts.
const LoginMessage = "Too many login attempts, please try again after 15 minutes."

// AuthPolicies protect the unauthenticated account endpoints. They are keyed
// by client address since there is no user yet.
type AuthPolicies struct {
	Login          middleware.Policy
	Register       middleware.Policy
	ForgotPassword middleware.Policy
	VerifyEmail    middleware.Policy
	RefreshToken   middleware.Policy
}

// Auth builds the auth family.
func Auth(cfg *config.RateLimitConfig) AuthPolicies {
	byIP := middleware.KeyByIP(cfg.TrustForwarded)
	policy := func(name string, window time.Duration, max int64, message string) middleware.Policy {
		return middleware.Policy{
			RateLimit: models.RateLimit{
				Family:  constants.RateLimitFamilyAuth,
				Name:    name,
				Window:  window,
				Max:     max,
				Message: message,
			},
			KeyFunc:         byIP,
			StandardHeaders: true,
		}
	}

	login := policy("login", 15*time.Minute, 5, LoginMessage)
	// Responses with status >= 400 are given back, so only successful logins
	// count. Rejected credentials are not throttled by this policy.
	login.SkipFailedRequests = true

	return AuthPolicies{
		Login:          login,
		Register:       policy("register", time.Hour, 3, "Too many accounts created from this IP, please try again after an hour."),
		ForgotPassword: policy("forgot-password", time.Hour, 3, "Too many password reset requests, please try again after an hour."),
		VerifyEmail:    policy("verify-email", time.Hour, 5, "Too many verification attempts, please try again after an hour."),
		RefreshToken:   policy("refresh-token", 15*time.Minute, 10, "Too many token refresh requests, please try again later."),
	}
}

func (a AuthPolicies) all() []middleware.Policy {
	return []middleware.Policy{a.Login, a.Register, a.ForgotPassword, a.VerifyEmail, a.RefreshToken}
}

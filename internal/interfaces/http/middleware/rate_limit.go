// Package middleware provides the Gin middleware of the HTTP API, including
// client identity resolution and rate limit enforcement.
package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/taskhub/internal/domain/models"
	"github.com/turtacn/taskhub/internal/domain/service"
	"github.com/turtacn/taskhub/pkg/constants"
	"github.com/turtacn/taskhub/pkg/errors"
)

// KeyFunc derives the identity a request is counted under.
type KeyFunc func(c *gin.Context) string

// SkipFunc reports whether a request bypasses a policy entirely.
type SkipFunc func(c *gin.Context) bool

// Policy binds a RateLimit to the HTTP layer.
type Policy struct {
	models.RateLimit

	KeyFunc  KeyFunc
	SkipFunc SkipFunc

	// StandardHeaders emits RateLimit-Limit, RateLimit-Remaining and RateLimit-Reset.
	StandardHeaders bool

	// SkipFailedRequests gives the unit back when the handler answers with
	// a status of 400 or above.
	SkipFailedRequests bool
}

// Validate checks the limit and the HTTP bindings.
func (p Policy) Validate() error {
	if err := p.RateLimit.Validate(); err != nil {
		return err
	}
	if p.KeyFunc == nil {
		return errors.ErrInvalidConfig("rate limit %s has no key function", p.Namespace())
	}
	return nil
}

// KeyByIP counts requests per client address.
func KeyByIP(trustForwarded bool) KeyFunc {
	return func(c *gin.Context) string { return ClientIP(c, trustForwarded) }
}

// KeyByUser counts requests per authenticated user. Pair it with SkipUnauthenticated.
func KeyByUser() KeyFunc {
	return func(c *gin.Context) string {
		if id := UserID(c); id != "" {
			return id
		}
		return constants.UnknownClient
	}
}

// KeyByClient counts requests per user when authenticated, per address otherwise.
// Identities are tagged user:<id> or ip:<addr> so a user id shaped like an
// address never shares a counter with that address.
func KeyByClient(trustForwarded bool) KeyFunc {
	return func(c *gin.Context) string {
		if id := UserID(c); id != "" {
			return "user:" + id
		}
		return "ip:" + ClientIP(c, trustForwarded)
	}
}

// SkipPaths bypasses the policy for the exact request paths given.
func SkipPaths(paths ...string) SkipFunc {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return func(c *gin.Context) bool {
		_, ok := set[c.Request.URL.Path]
		return ok
	}
}

// SkipUnauthenticated bypasses the policy for requests without a user.
func SkipUnauthenticated() SkipFunc {
	return func(c *gin.Context) bool { return UserID(c) == "" }
}

// RateLimit enforces policy on every request passing through.
// Store failures are absorbed by the limiter, so this middleware never
// rejects a request for any reason other than an exhausted window.
func RateLimit(limiter *service.RateLimiter, policy Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if policy.SkipFunc != nil && policy.SkipFunc(c) {
			c.Next()
			return
		}

		d := limiter.Evaluate(c.Request.Context(), policy.RateLimit, policy.KeyFunc(c))

		if policy.StandardHeaders && !d.Degraded {
			setRateLimitHeaders(c, d)
		}

		if !d.Allowed {
			RespondRateLimited(c, d, policy.Message)
			return
		}

		c.Next()

		if policy.SkipFailedRequests && !d.Degraded && c.Writer.Status() >= http.StatusBadRequest {
			limiter.Refund(c.Request.Context(), policy.RateLimit, d)
		}
	}
}

func setRateLimitHeaders(c *gin.Context, d models.Decision) {
	c.Header(constants.HeaderRateLimitLimit, strconv.FormatInt(d.Limit, 10))
	c.Header(constants.HeaderRateLimitRemaining, strconv.FormatInt(d.Remaining, 10))
	c.Header(constants.HeaderRateLimitReset, strconv.FormatInt(ceilSeconds(d.ResetAfter), 10))
}

// Package models defines the rate limit and email quota value types.
package models

import (
	"strings"
	"time"

	"github.com/turtacn/taskhub/pkg/constants"
	"github.com/turtacn/taskhub/pkg/errors"
)

// RateLimit describes one fixed-window throttle: at most Max events per Window
// for each identity. It is immutable once built at startup.
type RateLimit struct {
	Family  constants.RateLimitFamily
	Name    string
	Window  time.Duration
	Max     int64
	Message string
}

// Namespace returns the key prefix shared by every counter of this limit,
// rate-limit:<family>:<name>.
func (r RateLimit) Namespace() string {
	return strings.Join([]string{constants.RateLimitKeyPrefix, string(r.Family), r.Name}, ":")
}

// Key returns the counter key for identity.
func (r RateLimit) Key(identity string) string {
	return r.Namespace() + ":" + identity
}

// Validate rejects limits that cannot be enforced.
func (r RateLimit) Validate() error {
	switch {
	case r.Family == "":
		return errors.ErrInvalidConfig("rate limit %q has no family", r.Name)
	case r.Name == "":
		return errors.ErrInvalidConfig("rate limit in family %q has no name", r.Family)
	case r.Max < 1:
		return errors.ErrInvalidConfig("rate limit %s: max must be at least 1, got %d", r.Namespace(), r.Max)
	case r.Window < constants.MinRateLimitWindow:
		return errors.ErrInvalidConfig("rate limit %s: window must be at least %s, got %s", r.Namespace(), constants.MinRateLimitWindow, r.Window)
	case r.Message == "":
		return errors.ErrInvalidConfig("rate limit %s has no denial message", r.Namespace())
	}
	return nil
}

// Decision is the outcome of evaluating a RateLimit for one request.
type Decision struct {
	Allowed bool
	Key     string
	Limit   int64
	// Count is the counter value after this request, zero when the store failed.
	Count     int64
	Remaining int64
	// ResetAfter is the time left in the current window.
	ResetAfter time.Duration
	// WindowEnd is when the counter this decision consumed expires.
	WindowEnd time.Time
	// RetryAfter is set on denials only.
	RetryAfter time.Duration
	// Degraded marks a fail-open decision taken because the store was unavailable.
	Degraded bool
}

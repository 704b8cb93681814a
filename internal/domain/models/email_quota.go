package models

import (
	"fmt"
	"time"

	"github.com/turtacn/taskhub/pkg/constants"
)

// QuotaScope tells whether a tier counts per user or platform-wide.
type QuotaScope string

const (
	QuotaScopeUser   QuotaScope = "user"
	QuotaScopeGlobal QuotaScope = "global"
)

// QuotaTier is one of the counters that together bound outbound email.
type QuotaTier struct {
	// Name is the stable label used in metrics, e.g. "user_hourly".
	Name   string
	Scope  QuotaScope
	Period string // "hour" or "day"
	Window time.Duration
	Max    int64
}

// EmailQuotaResult is returned by the email quota check.
type EmailQuotaResult struct {
	Allowed bool
	// Remaining is the smallest headroom over all tiers.
	Remaining  int64
	ResetAt    *time.Time
	RetryAfter time.Duration
	Message    string
	// Tier names the exhausted tier on denial, or the binding tier otherwise.
	Tier string
}

// Key returns the counter key of the tier, rate-limit:email:user:<id>:<period>
// for user tiers and rate-limit:email:global:<period> for global ones.
func (t QuotaTier) Key(userID string) string {
	if t.Scope == QuotaScopeGlobal {
		return fmt.Sprintf("%s:%s:global:%s", constants.RateLimitKeyPrefix, constants.RateLimitFamilyEmail, t.Period)
	}
	return fmt.Sprintf("%s:%s:user:%s:%s", constants.RateLimitKeyPrefix, constants.RateLimitFamilyEmail, userID, t.Period)
}

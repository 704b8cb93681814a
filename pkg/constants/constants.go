// Package constants defines shared constants for the taskhub API service.
// It holds context keys, header names, rate limit families and the default limits
// applied by the request throttles and the email quota.
package constants

import "time"

// ================================================================================
// Service Information
// ================================================================================

const (
	// ServiceName is the name reported in logs and metrics
	ServiceName = "taskhub-api"

	// EnvPrefix is the prefix for environment variable configuration
	EnvPrefix = "TASKHUB"
)

// ================================================================================
// Rate Limit Families
// ================================================================================

// RateLimitFamily groups rate limit policies by concern
type RateLimitFamily string

const (
	// RateLimitFamilyGlobal applies to every request
	RateLimitFamilyGlobal RateLimitFamily = "global"

	// RateLimitFamilyAuth applies to authentication endpoints
	RateLimitFamilyAuth RateLimitFamily = "auth"

	// RateLimitFamilyAPI applies to authenticated write endpoints
	RateLimitFamilyAPI RateLimitFamily = "api"

	// RateLimitFamilySearch applies to search endpoints
	RateLimitFamilySearch RateLimitFamily = "search"

	// RateLimitFamilyEmail is used by the outbound email quota
	RateLimitFamilyEmail RateLimitFamily = "email"
)

// RateLimitKeyPrefix is the prefix of every counter key in the store
const RateLimitKeyPrefix = "rate-limit"

// ================================================================================
// Default Limits
// ================================================================================

const (
	// GlobalRateLimitWindow is the window of the global IP throttle
	GlobalRateLimitWindow = 15 * time.Minute

	// GlobalRateLimitMax is the default cap of the global IP throttle
	GlobalRateLimitMax = 1000

	// SearchRateLimitWindow is the window of the search throttle
	SearchRateLimitWindow = 1 * time.Minute

	// SearchRateLimitMax is the cap of the search throttle
	SearchRateLimitMax = 30

	// DefaultStoreTimeout bounds every counter store round trip
	DefaultStoreTimeout = 250 * time.Millisecond

	// EmailUserHourlyMax is the default per-user hourly email cap
	EmailUserHourlyMax = 10

	// EmailUserDailyMax is the default per-user daily email cap
	EmailUserDailyMax = 50

	// EmailGlobalHourlyMax is the default platform-wide hourly email cap
	EmailGlobalHourlyMax = 500

	// EmailGlobalDailyMax is the default platform-wide daily email cap
	EmailGlobalDailyMax = 2000

	// MinRateLimitWindow is the shortest window a policy may declare
	MinRateLimitWindow = time.Second
)

// ================================================================================
// HTTP Headers
// ================================================================================

const (
	// HeaderRateLimitLimit carries the policy maximum
	HeaderRateLimitLimit = "RateLimit-Limit"

	// HeaderRateLimitRemaining carries the requests left in the window
	HeaderRateLimitRemaining = "RateLimit-Remaining"

	// HeaderRateLimitReset carries the seconds until the window resets
	HeaderRateLimitReset = "RateLimit-Reset"

	// HeaderRetryAfter carries the seconds a rejected client should wait
	HeaderRetryAfter = "Retry-After"

	// HeaderForwardedFor is the forwarded client address chain
	HeaderForwardedFor = "X-Forwarded-For"

	// HeaderRequestID is the request correlation header
	HeaderRequestID = "X-Request-ID"
)

// UnknownClient is the identity used when nothing identifies the caller
const UnknownClient = "unknown"

// ================================================================================
// Health Check Paths
// ================================================================================

const (
	// DefaultHealthCheckPath is the legacy health check endpoint path
	DefaultHealthCheckPath = "/health"

	// DefaultLivenessCheckPath is the liveness check endpoint path
	DefaultLivenessCheckPath = "/health/live"

	// DefaultReadinessCheckPath is the readiness check endpoint path
	DefaultReadinessCheckPath = "/health/ready"

	// DefaultShutdownTimeout is the graceful shutdown timeout (30 seconds)
	DefaultShutdownTimeout = 30 * time.Second
)

// ================================================================================
// Logging Constants
// ================================================================================

// LogLevel represents the severity level of log messages
type LogLevel string

const (
	// LogLevelDebug is the most verbose logging level
	LogLevelDebug LogLevel = "debug"

	// LogLevelInfo is the standard informational logging level
	LogLevelInfo LogLevel = "info"

	// LogLevelWarn indicates potential issues
	LogLevelWarn LogLevel = "warn"

	// LogLevelError indicates errors that need attention
	LogLevelError LogLevel = "error"
)

// Valid reports whether l is one of the supported levels.
func (l LogLevel) Valid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	}
	return false
}

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey represents keys used in context.Context
type ContextKey string

const (
	// ContextKeyRequestID is the key for request ID in context
	ContextKeyRequestID ContextKey = "request_id"

	// ContextKeyUserID is the key under which the auth middleware stores the caller
	ContextKeyUserID ContextKey = "user_id"
)

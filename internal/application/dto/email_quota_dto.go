package dto

import (
	"math"
	"time"

	"github.com/turtacn/taskhub/internal/domain/models"
)

// EmailQuotaResponse reports the caller's email headroom.
type EmailQuotaResponse struct {
	Allowed           bool       `json:"allowed"`
	Remaining         int64      `json:"remaining"`
	ResetAt           *time.Time `json:"reset_at,omitempty"`
	RetryAfterSeconds int64      `json:"retry_after_seconds,omitempty"`
	Message           string     `json:"message,omitempty"`
}

// NewEmailQuotaResponse converts a quota check result.
func NewEmailQuotaResponse(r models.EmailQuotaResult) EmailQuotaResponse {
	return EmailQuotaResponse{
		Allowed:           r.Allowed,
		Remaining:         r.Remaining,
		ResetAt:           r.ResetAt,
		RetryAfterSeconds: int64(math.Ceil(r.RetryAfter.Seconds())),
		Message:           r.Message,
	}
}

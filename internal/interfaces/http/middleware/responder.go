package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/taskhub/internal/application/dto"
	"github.com/turtacn/taskhub/internal/domain/models"
	"github.com/turtacn/taskhub/pkg/constants"
)

// RespondRateLimited aborts the request with 429 Too Many Requests, a
// Retry-After header and the rate limit error body carrying message.
func RespondRateLimited(c *gin.Context, d models.Decision, message string) {
	c.Header(constants.HeaderRetryAfter, strconv.FormatInt(ceilSeconds(d.RetryAfter), 10))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.RateLimitExceededResponse(message))
}

// ceilSeconds rounds d up to whole seconds, at least 1.
func ceilSeconds(d time.Duration) int64 {
	s := int64(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}

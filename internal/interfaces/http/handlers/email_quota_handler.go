package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/taskhub/internal/application/dto"
	"github.com/turtacn/taskhub/internal/application/service"
	"github.com/turtacn/taskhub/internal/interfaces/http/middleware"
	"github.com/turtacn/taskhub/pkg/errors"
)

// EmailQuotaHandler exposes the caller's outbound email quota.
type EmailQuotaHandler struct {
	quota service.EmailQuotaService
}

// NewEmailQuotaHandler creates an EmailQuotaHandler.
func NewEmailQuotaHandler(quota service.EmailQuotaService) *EmailQuotaHandler {
	return &EmailQuotaHandler{quota: quota}
}

// GetQuota returns the remaining email quota of the authenticated user
// without consuming any of it.
func (h *EmailQuotaHandler) GetQuota(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse(errors.ErrInvalidRequest("authenticated user required"), middleware.GetRequestID(c)))
		return
	}

	result := h.quota.CheckEmailRateLimit(c.Request.Context(), userID)
	c.JSON(http.StatusOK, dto.SuccessResponse(dto.NewEmailQuotaResponse(result), middleware.GetRequestID(c)))
}

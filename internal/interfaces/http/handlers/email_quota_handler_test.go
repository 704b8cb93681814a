package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/taskhub/internal/application/service"
	"github.com/turtacn/taskhub/internal/config"
	"github.com/turtacn/taskhub/internal/infrastructure/ratelimit"
	"github.com/turtacn/taskhub/internal/interfaces/http/middleware"
	"github.com/turtacn/taskhub/pkg/constants"
)

func TestEmailQuotaHandler_GetQuota(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.Default().Email
	quota := service.NewEmailQuotaService(ratelimit.NewMemoryStore(0), &cfg, nil, nil)
	for i := 0; i < 3; i++ {
		quota.IncrementCounters(context.Background(), "u1")
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/quota", func(c *gin.Context) {
		if u := c.GetHeader("X-Test-User"); u != "" {
			c.Set(string(constants.ContextKeyUserID), u)
		}
	}, NewEmailQuotaHandler(quota).GetQuota)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/quota", nil)
	req.Header.Set("X-Test-User", "u1")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool   `json:"success"`
		TraceID string `json:"trace_id"`
		Data    struct {
			Allowed   bool  `json:"allowed"`
			Remaining int64 `json:"remaining"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.True(t, body.Data.Allowed)
	assert.Equal(t, int64(7), body.Data.Remaining)
	assert.NotEmpty(t, body.TraceID)
	assert.Equal(t, w.Header().Get(constants.HeaderRequestID), body.TraceID)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/quota", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

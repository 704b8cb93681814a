package dto

import (
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/taskhub/pkg/errors"
)

func TestRateLimitExceededResponse_Body(t *testing.T) {
	body, err := json.Marshal(RateLimitExceededResponse("Too many requests, please slow down."))
	require.NoError(t, err)

	assert.JSONEq(t,
		`{"success":false,"error":{"code":"RATE_LIMIT_EXCEEDED","message":"Too many requests, please slow down."}}`,
		string(body))
}

func TestErrorResponse(t *testing.T) {
	t.Run("app error keeps its code", func(t *testing.T) {
		resp := ErrorResponse(errors.ErrInvalidRequest("bad input"), "trace-1")
		require.NotNil(t, resp.Error)
		assert.False(t, resp.Success)
		assert.Equal(t, errors.ErrCodeInvalidRequest, resp.Error.Code)
		assert.Equal(t, "bad input", resp.Error.Message)
		assert.Equal(t, "trace-1", resp.TraceID)
	})

	t.Run("unknown error is hidden", func(t *testing.T) {
		resp := ErrorResponse(stderrors.New("dial tcp: refused"), "")
		require.NotNil(t, resp.Error)
		assert.Equal(t, errors.ErrCodeInternal, resp.Error.Code)
		assert.NotContains(t, resp.Error.Message, "refused")
	})
}

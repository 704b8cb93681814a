// Package dto 提供应用层的数据传输对象
package dto

import (
	"time"

	"github.com/turtacn/taskhub/pkg/errors"
)

// APIResponse 通用 API 响应结构
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorDTO   `json:"error,omitempty"`
	TraceID   string      `json:"trace_id,omitempty"`
	Timestamp int64       `json:"timestamp,omitempty"`
}

// ErrorDTO 错误信息 DTO，包含机器可读的错误码和可读的错误消息
type ErrorDTO struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// SuccessResponse 创建成功响应
func SuccessResponse(data interface{}, traceID string) *APIResponse {
	return &APIResponse{
		Success:   true,
		Data:      data,
		TraceID:   traceID,
		Timestamp: time.Now().Unix(),
	}
}

// ErrorResponse 创建错误响应
// 非 *errors.AppError 的错误统一报告为内部错误，不暴露原始错误信息。
func ErrorResponse(err error, traceID string) *APIResponse {
	var errorDTO *ErrorDTO

	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		errorDTO = &ErrorDTO{Code: appErr.Code, Message: appErr.Message}
	} else {
		errorDTO = &ErrorDTO{Code: errors.ErrCodeInternal, Message: "Internal server error"}
	}

	return &APIResponse{
		Success:   false,
		Error:     errorDTO,
		TraceID:   traceID,
		Timestamp: time.Now().Unix(),
	}
}

// RateLimitExceededResponse 创建速率限制响应
// 客户端按原文匹配该响应体，因此只包含 success、code 和 message。
func RateLimitExceededResponse(message string) *APIResponse {
	appErr := errors.ErrRateLimitExceeded(message)
	return &APIResponse{
		Success: false,
		Error: &ErrorDTO{
			Code:    appErr.Code,
			Message: appErr.Message,
		},
	}
}

package agent

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode 模型调用错误码
type ErrorCode string

const (
	CodeRequestFailed        ErrorCode = "REQUEST_FAILED"
	CodeProviderError        ErrorCode = "PROVIDER_ERROR"
	CodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"
	CodeRateLimited          ErrorCode = "RATE_LIMITED"
	CodeInvalidResponse      ErrorCode = "INVALID_RESPONSE"
	CodeSerializationError   ErrorCode = "SERIALIZATION_ERROR"
	CodeHTTPError            ErrorCode = "HTTP_ERROR"
	CodeUnknown              ErrorCode = "UNKNOWN"
)

// Error 模型调用错误
type Error struct {
	Code    ErrorCode
	Message string
	// RetryAfter is set for rate limit errors when the provider supplied one.
	RetryAfter *time.Duration
	Err        error
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap
func (e *Error) Unwrap() error {
	return e.Err
}

// NewRequestFailed 请求发送失败
func NewRequestFailed(cause error) *Error {
	return &Error{Code: CodeRequestFailed, Message: "request failed", Err: cause}
}

// NewProviderError 服务端返回非 2xx
func NewProviderError(message string) *Error {
	return &Error{Code: CodeProviderError, Message: message}
}

// NewAuthenticationFailed 认证失败
func NewAuthenticationFailed() *Error {
	return &Error{Code: CodeAuthenticationFailed, Message: "authentication failed"}
}

// NewRateLimited 被限流，retryAfter 可为 nil
func NewRateLimited(retryAfter *time.Duration) *Error {
	return &Error{Code: CodeRateLimited, Message: "rate limited", RetryAfter: retryAfter}
}

// NewInvalidResponse 响应体解析失败
func NewInvalidResponse(cause error) *Error {
	return &Error{Code: CodeInvalidResponse, Message: "invalid response", Err: cause}
}

// NewSerializationError 请求体序列化失败
func NewSerializationError(cause error) *Error {
	return &Error{Code: CodeSerializationError, Message: "serialization error", Err: cause}
}

// NewHTTPError 读取响应体失败
func NewHTTPError(cause error) *Error {
	return &Error{Code: CodeHTTPError, Message: "HTTP error", Err: cause}
}

// NewUnknown 未分类错误
func NewUnknown(message string) *Error {
	return &Error{Code: CodeUnknown, Message: message}
}

// IsAuthenticationFailed 判断是否为认证失败
func IsAuthenticationFailed(err error) bool {
	var agentErr *Error
	if errors.As(err, &agentErr) {
		return agentErr.Code == CodeAuthenticationFailed
	}
	return false
}

// IsRateLimited 判断是否被限流
func IsRateLimited(err error) bool {
	var agentErr *Error
	if errors.As(err, &agentErr) {
		return agentErr.Code == CodeRateLimited
	}
	return false
}

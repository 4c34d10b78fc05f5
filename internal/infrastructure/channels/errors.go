package channels

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode 通道错误码
type ErrorCode string

const (
	CodeUnsupportedChannel   ErrorCode = "UNSUPPORTED_CHANNEL"
	CodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"
	CodeConnectionError      ErrorCode = "CONNECTION_ERROR"
	CodeSendFailed           ErrorCode = "SEND_FAILED"
	CodeListenError          ErrorCode = "LISTEN_ERROR"
	CodeInvalidConfig        ErrorCode = "INVALID_CONFIG"
	CodeRateLimited          ErrorCode = "RATE_LIMITED"
	CodeAPIError             ErrorCode = "API_ERROR"
	CodeMessageTooLong       ErrorCode = "MESSAGE_TOO_LONG"
	CodeSerializationError   ErrorCode = "SERIALIZATION_ERROR"
	CodeUnknown              ErrorCode = "UNKNOWN"
)

// Error 通道错误
type Error struct {
	Code       ErrorCode
	Message    string
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

// NewUnsupportedChannel 不支持的通道类型
func NewUnsupportedChannel(message string) *Error {
	return &Error{Code: CodeUnsupportedChannel, Message: message}
}

// NewAuthenticationFailed 平台认证失败
func NewAuthenticationFailed(cause error) *Error {
	return &Error{Code: CodeAuthenticationFailed, Message: "authentication failed", Err: cause}
}

// NewConnectionError 连接错误
func NewConnectionError(message string) *Error {
	return &Error{Code: CodeConnectionError, Message: message}
}

// NewSendFailed 发送失败
func NewSendFailed(cause error) *Error {
	return &Error{Code: CodeSendFailed, Message: "send failed", Err: cause}
}

// NewListenError 监听失败
func NewListenError(message string, cause error) *Error {
	return &Error{Code: CodeListenError, Message: message, Err: cause}
}

// NewInvalidConfig 无效配置
func NewInvalidConfig(message string) *Error {
	return &Error{Code: CodeInvalidConfig, Message: message}
}

// NewMessageTooLong 消息超过平台长度上限
func NewMessageTooLong(length, max int) *Error {
	return &Error{
		Code:    CodeMessageTooLong,
		Message: fmt.Sprintf("message too long: %d characters, max %d", length, max),
	}
}

// IsConnectionError 判断是否为连接错误
func IsConnectionError(err error) bool {
	var chErr *Error
	if errors.As(err, &chErr) {
		return chErr.Code == CodeConnectionError
	}
	return false
}

// IsMessageTooLong 判断是否为超长消息错误
func IsMessageTooLong(err error) bool {
	var chErr *Error
	if errors.As(err, &chErr) {
		return chErr.Code == CodeMessageTooLong
	}
	return false
}

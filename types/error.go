package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the client.
type ErrorCode string

// Stream error codes
const (
	ErrTransport      ErrorCode = "TRANSPORT"
	ErrMalformedEvent ErrorCode = "MALFORMED_EVENT"
	ErrIdleTimeout    ErrorCode = "IDLE_TIMEOUT"
	ErrUpstreamError  ErrorCode = "UPSTREAM_ERROR"
)

// Submission error codes
const (
	ErrRequestFailed      ErrorCode = "REQUEST_FAILED"
	ErrSubmissionInFlight ErrorCode = "SUBMISSION_IN_FLIGHT"
	ErrSuperseded         ErrorCode = "SUPERSEDED"
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrInternalError      ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
// Nothing in this module retries on its own; the flag is informational for callers.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// AsError extracts a *Error from the chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsErrorCode reports whether any *Error in the chain carries code.
func IsErrorCode(err error, code ErrorCode) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// =============================================================================
// 🧰 常用错误构造
// =============================================================================

// NewTransportError 通道断开或无法建立
func NewTransportError(message string, cause error) *Error {
	return NewError(ErrTransport, message).WithCause(cause)
}

// NewMalformedEventError 事件负载不是合法 JSON 或缺少必需字段
func NewMalformedEventError(message string, cause error) *Error {
	return NewError(ErrMalformedEvent, message).WithCause(cause)
}

// NewRequestFailedError 提交请求在通道建立前失败
func NewRequestFailedError(status int, message string) *Error {
	return NewError(ErrRequestFailed, message).WithHTTPStatus(status)
}

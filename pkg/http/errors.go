package http

import (
	"fmt"
	"net/http"
)

// Wire codes shared by every endpoint. Domain-specific codes are passed in
// by the handlers.
const (
	CodeBadRequest  = "ERR_BAD_REQUEST"
	CodeRateLimited = "ERR_RATE_LIMITED"
	CodeTimeout     = "ERR_TIMEOUT"
	CodeInternal    = "ERR_INTERNAL"
)

// AppError is an error that knows its HTTP status and wire code. Only Code
// and Message reach the client.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// Temporary reports whether the client may retry the same request later.
func (e *AppError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status == http.StatusGatewayTimeout || e.Status >= 500
}

// NewAppError creates an error with the given status and code.
func NewAppError(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

// WithError attaches the cause. It is logged, never serialized.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func BadRequestError(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeBadRequest, message)
}

func NotFoundError(code, message string) *AppError {
	return NewAppError(http.StatusNotFound, code, message)
}

// UnprocessableError is used when the input was well formed but the
// analysis could not be carried out on it.
func UnprocessableError(code, message string) *AppError {
	return NewAppError(http.StatusUnprocessableEntity, code, message)
}

func TooManyRequestsError(message string) *AppError {
	return NewAppError(http.StatusTooManyRequests, CodeRateLimited, message)
}

func GatewayTimeoutError(message string) *AppError {
	return NewAppError(http.StatusGatewayTimeout, CodeTimeout, message)
}

func InternalError(message string) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternal, message)
}

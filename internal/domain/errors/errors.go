package errors

import (
	"errors"
	"net/http"
)

// Domain errors
var (
	ErrNotFound          = errors.New("resource not found")
	ErrAlreadyExists     = errors.New("resource already exists")
	ErrInvalidInput      = errors.New("invalid input")
	ErrBadRequest        = errors.New("bad request")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("concurrent modification")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrOrderExpired      = errors.New("order payment window has expired")
	ErrAdInactive        = errors.New("ad is not active")
	ErrInsufficientFunds = errors.New("insufficient available amount")
	ErrInvalidOTP        = errors.New("invalid or expired OTP")
	ErrTooManyAttempts   = errors.New("too many attempts")
	ErrNotConfigured     = errors.New("FINSTACK_BACKEND_API_URL is not configured")
	ErrUpstream          = errors.New("upstream request failed")
)

// Error codes
const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeUnprocessable   = "UNPROCESSABLE_ENTITY"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeInvalidState    = "INVALID_STATE"
	CodeTooManyAttempts = "TOO_MANY_ATTEMPTS"
	CodeUpstream        = "UPSTREAM_ERROR"
	CodeBadGateway      = "BAD_GATEWAY"
	CodeInternalError   = "INTERNAL_ERROR"
)

// AppError represents application error with HTTP status
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new app error
func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// As extracts an *AppError from an error chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Common error constructors
func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, message, ErrNotFound)
}

func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeInvalidInput, message, ErrInvalidInput)
}

func UnprocessableEntity(message string) *AppError {
	return NewAppError(http.StatusUnprocessableEntity, CodeUnprocessable, message, ErrInvalidInput)
}

func Unauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, message, ErrUnauthorized)
}

func Forbidden(message string) *AppError {
	return NewAppError(http.StatusForbidden, CodeForbidden, message, ErrForbidden)
}

func Conflict(message string) *AppError {
	return NewAppError(http.StatusConflict, CodeConflict, message, ErrAlreadyExists)
}

// InvalidState reports a request that the current order/ad state does not allow.
func InvalidState(message string, err error) *AppError {
	return NewAppError(http.StatusConflict, CodeInvalidState, message, err)
}

// Upstream carries a non-2xx status and message from the external backend.
func Upstream(status int, message string) *AppError {
	return NewAppError(status, CodeUpstream, message, ErrUpstream)
}

func BadGateway(err error) *AppError {
	return NewAppError(http.StatusBadGateway, CodeBadGateway, "backend unreachable", err)
}

func NotConfigured() *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, ErrNotConfigured.Error(), ErrNotConfigured)
}

func InternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, "internal server error", err)
}

func InternalServerError(message string) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, message, nil)
}

// NewError creates a new error with a custom message wrapping an existing error
func NewError(message string, err error) error {
	return NewAppError(http.StatusBadRequest, CodeBadRequest, message, err)
}

package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error types
var (
	ErrNotFound           = errors.New("resource not found")
	ErrBadRequest         = errors.New("bad request")
	ErrConflict           = errors.New("resource conflict")
	ErrInternal           = errors.New("internal server error")
	ErrValidation         = errors.New("validation error")
	ErrInvalidFormat      = errors.New("invalid barcode format")
	ErrModeMismatch       = errors.New("scan mode mismatch")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// InvalidFormat signals a malformed internal QR code payload.
func InvalidFormat(message string) *AppError {
	return &AppError{
		Err:        ErrInvalidFormat,
		Code:       "INVALID_FORMAT",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// ModeMismatch signals a QR code scanned in the wrong sales mode.
func ModeMismatch(qrMode, mode string) *AppError {
	return &AppError{
		Err:        ErrModeMismatch,
		Code:       "MODE_MISMATCH",
		Message:    fmt.Sprintf("QR code belongs to %s mode, current mode is %s", qrMode, mode),
		StatusCode: http.StatusConflict,
		Details:    map[string]string{"qr_mode": qrMode, "mode": mode},
	}
}

// CatalogUnavailable wraps an unexpected catalog/storage failure.
// The resolver never interprets or retries these; retry policy belongs
// to the caller.
func CatalogUnavailable(err error) *AppError {
	return &AppError{
		Err:        ErrCatalogUnavailable,
		Code:       "CATALOG_UNAVAILABLE",
		Message:    fmt.Sprintf("catalog lookup failed: %v", err),
		StatusCode: http.StatusServiceUnavailable,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}

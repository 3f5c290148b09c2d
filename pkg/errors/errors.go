package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents an application-level error with HTTP status code
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	StatusCode int    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes. Every error leaving the signing core carries exactly one
// of these machine-readable kinds.
const (
	// ErrCodeValidation - malformed or missing input; raised before any
	// custody call or codec handle acquisition
	ErrCodeValidation = "validation_error"

	// ErrCodeDerivation - the custody gateway could not produce key
	// material for the derived path
	ErrCodeDerivation = "derivation_error"

	// ErrCodeEncoding - the canonical encoding engine failed
	ErrCodeEncoding = "encoding_error"

	// ErrCodeUserRejected - the operator declined at the confirmation
	// gate; a terminal business outcome, not a defect
	ErrCodeUserRejected = "user_rejected"

	// ErrCodeSigning - cryptographic signing failure
	ErrCodeSigning = "signing_error"

	// ErrCodeMethodNotFound - unrecognized RPC method name
	ErrCodeMethodNotFound = "method_not_found"

	ErrCodeBadRequest    = "bad_request"
	ErrCodeRateLimited   = "rate_limited"
	ErrCodeInternalError = "internal_error"
)

// Predefined errors
var (
	ErrBadRequest = &AppError{
		Code:       ErrCodeBadRequest,
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrRateLimited = &AppError{
		Code:       ErrCodeRateLimited,
		Message:    "Too many requests",
		StatusCode: http.StatusTooManyRequests,
	}

	ErrInternalError = &AppError{
		Code:       ErrCodeInternalError,
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}
)

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewWithDetail creates a new AppError with additional detail
func NewWithDetail(code, message, detail string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Detail:     detail,
		StatusCode: statusCode,
	}
}

// Validation creates a validation error. Validation failures surface
// before the request has any side effects.
func Validation(detail string) *AppError {
	return &AppError{
		Code:       ErrCodeValidation,
		Message:    "Invalid request parameters",
		Detail:     detail,
		StatusCode: http.StatusBadRequest,
	}
}

// Derivation creates a custody gateway failure error
func Derivation(detail string) *AppError {
	return &AppError{
		Code:       ErrCodeDerivation,
		Message:    "Key derivation failed",
		Detail:     detail,
		StatusCode: http.StatusBadGateway,
	}
}

// Encoding creates a canonical encoder failure error
func Encoding(detail string) *AppError {
	return &AppError{
		Code:       ErrCodeEncoding,
		Message:    "Canonical encoding failed",
		Detail:     detail,
		StatusCode: http.StatusInternalServerError,
	}
}

// UserRejected creates the operator-declined error. Callers distinguish
// this from technical failures by code.
func UserRejected() *AppError {
	return &AppError{
		Code:       ErrCodeUserRejected,
		Message:    "Transaction rejected by operator",
		StatusCode: http.StatusForbidden,
	}
}

// Signing creates a signing failure error
func Signing(detail string) *AppError {
	return &AppError{
		Code:       ErrCodeSigning,
		Message:    "Transaction signing failed",
		Detail:     detail,
		StatusCode: http.StatusInternalServerError,
	}
}

// MethodNotFound creates an unknown-method error
func MethodNotFound(method string) *AppError {
	return &AppError{
		Code:       ErrCodeMethodNotFound,
		Message:    "Method not found",
		Detail:     "method: " + method,
		StatusCode: http.StatusNotFound,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError with the given code
func HasCode(err error, code string) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Code == code
}

// Package domainerrors defines the structured error model shared by services
// and transports. Services create errors with a Code; the HTTP layer maps
// codes to status values with ToHTTPStatus. Infrastructure layers should use
// pkg/platform/sentinel instead and let services translate.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for programmatic handling.
type Code string

const (
	CodeNotFound             Code = "not_found"
	CodeValidation           Code = "validation_rejected"
	CodeInconsistentCurrency Code = "inconsistent_currency"
	CodeInvalidTransition    Code = "invalid_transition"
	CodeTokenMismatch        Code = "token_mismatch"
	CodeConflict             Code = "conflict"
	CodeInvalidInput         Code = "invalid_input"
	CodeUnauthorized         Code = "unauthorized"
	CodeInternal             Code = "internal"
)

// Reason is a single field-attributed validation failure. Validation errors
// carry the full ordered set so callers can present every problem at once.
type Reason struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a domain error with a stable code, a human-readable message, and
// optionally the validation reasons that produced it.
type Error struct {
	Code    Code
	Message string
	Reasons []Reason
}

func (e *Error) Error() string {
	if len(e.Reasons) > 0 {
		return fmt.Sprintf("%s: %s (%d reasons)", e.Code, e.Message, len(e.Reasons))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New creates a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewValidation creates a CodeValidation error carrying field-attributed
// reasons. Order is preserved.
func NewValidation(reasons []Reason) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: "registration was rejected",
		Reasons: reasons,
	}
}

// HasCode reports whether err is (or wraps) a domain error with the code.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for unknown
// error values.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}

// ReasonsOf extracts validation reasons from err, or nil.
func ReasonsOf(err error) []Reason {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Reasons
	}
	return nil
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation, CodeInconsistentCurrency, CodeInvalidInput:
		return http.StatusUnprocessableEntity
	case CodeInvalidTransition:
		return http.StatusConflict
	case CodeConflict:
		return http.StatusConflict
	case CodeTokenMismatch, CodeUnauthorized:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

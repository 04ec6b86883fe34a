package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Stable error codes returned to callers. CodeConflict is the only code a
// caller is expected to retry.
const (
	CodeNotFound             = "NOT_FOUND"
	CodeInvalidTransition    = "INVALID_TRANSITION"
	CodePermissionDenied     = "PERMISSION_DENIED"
	CodeConditionUnsatisfied = "CONDITION_UNSATISFIED"
	CodeSLAAlreadyPaused     = "SLA_ALREADY_PAUSED"
	CodeSLANotPaused         = "SLA_NOT_PAUSED"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeConflict             = "CONFLICT"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeInternal             = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewPermissionDenied(message string) error {
	return NewDomainError(CodePermissionDenied, message, http.StatusForbidden, nil)
}

func NewInvalidTransition(from, to string) error {
	return NewDomainError(
		CodeInvalidTransition,
		fmt.Sprintf("no transition from %s to %s", from, to),
		http.StatusUnprocessableEntity,
		map[string]any{"from_status": from, "to_status": to},
	)
}

// NewConditionUnsatisfied carries every failed guard condition message, not
// just the first, so callers can render actionable feedback.
func NewConditionUnsatisfied(failed []string) error {
	return NewDomainError(
		CodeConditionUnsatisfied,
		"one or more transition conditions are not satisfied",
		http.StatusUnprocessableEntity,
		map[string]any{"failed_conditions": failed},
	)
}

func NewSLAAlreadyPaused(ticketID string) error {
	return NewDomainError(CodeSLAAlreadyPaused, "SLA timer is already paused", http.StatusConflict,
		map[string]any{"ticket_id": ticketID})
}

func NewSLANotPaused(ticketID string) error {
	return NewDomainError(CodeSLANotPaused, "SLA timer is not paused", http.StatusConflict,
		map[string]any{"ticket_id": ticketID})
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// HasCode reports whether err is a DomainError carrying the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

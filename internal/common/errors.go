package common

import (
	"net/http"
)

// AppError carries the machine-readable code and HTTP status for a failure that is
// safe to report to API callers.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Status falls back to 500 when no status was set.
func (e *AppError) Status() int {
	if e == nil || e.HTTPStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTPStatus
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// NewValidationError reports invalid input with per-field details.
func NewValidationError(message string, details any) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: message, HTTPStatus: http.StatusUnprocessableEntity, Details: details}
}

func NewNotFound(resource string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: resource + " not found", HTTPStatus: http.StatusNotFound}
}

// NewConflict reports a request that clashes with the current state of a resource.
func NewConflict(code string, err error) *AppError {
	return &AppError{Code: code, Message: err.Error(), HTTPStatus: http.StatusConflict, Err: err}
}

// Package errors defines the service error taxonomy and its mapping to HTTP
// status codes. Handlers and middleware recover a *ServiceError at the
// boundary and render a stable structured response; anything else is treated
// as internal and never leaks to the caller.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error category with a stable wire representation.
type Code string

const (
	CodeInvalidRequest    Code = "INVALID_REQUEST"
	CodeNotFound          Code = "NOT_FOUND"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeConflict          Code = "CONFLICT"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeUpstream          Code = "UPSTREAM_UNAVAILABLE"
	CodeInternal          Code = "INTERNAL_ERROR"
)

// ServiceError carries a user-facing message, an HTTP status and optional
// structured details. The wrapped error is for logs only.
type ServiceError struct {
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// WithDetails attaches a detail key/value and returns the error for chaining.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// InvalidRequest reports malformed or missing input.
func InvalidRequest(message string) *ServiceError {
	return &ServiceError{Code: CodeInvalidRequest, Message: message, HTTPStatus: http.StatusBadRequest}
}

// NotFound reports a missing resource.
func NotFound(message string) *ServiceError {
	return &ServiceError{Code: CodeNotFound, Message: message, HTTPStatus: http.StatusNotFound}
}

// InsufficientFunds reports a balance lower than the attempted debit.
func InsufficientFunds(message string) *ServiceError {
	return &ServiceError{Code: CodeInsufficientFunds, Message: message, HTTPStatus: http.StatusPaymentRequired}
}

// Conflict reports a uniqueness violation, e.g. a duplicate username.
func Conflict(message string) *ServiceError {
	return &ServiceError{Code: CodeConflict, Message: message, HTTPStatus: http.StatusConflict}
}

// Unauthorized reports a missing or invalid credential.
func Unauthorized(message string) *ServiceError {
	return &ServiceError{Code: CodeUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized}
}

// Internal wraps an unexpected failure. The wrapped error is logged but the
// message presented to callers stays generic.
func Internal(message string, err error) *ServiceError {
	return &ServiceError{Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError, Err: err}
}

// Upstream reports a dependency outage, e.g. the product feed being down.
func Upstream(message string, err error) *ServiceError {
	return &ServiceError{Code: CodeUpstream, Message: message, HTTPStatus: http.StatusBadGateway, Err: err}
}

// InvalidToken reports a token that failed verification.
func InvalidToken(err error) *ServiceError {
	return &ServiceError{Code: CodeUnauthorized, Message: "Invalid token", HTTPStatus: http.StatusUnauthorized, Err: err}
}

// GetServiceError extracts a *ServiceError from an error chain, or nil.
func GetServiceError(err error) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return nil
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	svcErr := GetServiceError(err)
	return svcErr != nil && svcErr.Code == code
}

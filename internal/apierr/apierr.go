// Package apierr defines the error taxonomy surfaced on the HTTP boundary.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is the machine-readable error code returned in JSON bodies.
type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeNotFound            Code = "NOT_FOUND"
	CodeHealthieCreateFail  Code = "HEALTHIE_CREATE_FAILED"
	CodeHealthieError       Code = "HEALTHIE_ERROR"
	CodeAuthorizerError     Code = "AUTHORIZER_ERROR"
	CodeConfig              Code = "CONFIG_ERROR"
	CodeInternal            Code = "INTERNAL"
)

// Error carries an HTTP status, a code and optional structured details.
type Error struct {
	Code    Code
	Status  int
	Message string
	Fields  []string
	Details []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New creates an error with an explicit status and code.
func New(code Code, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Validation reports missing or malformed request fields.
func Validation(message string, fields ...string) *Error {
	return &Error{Code: CodeValidation, Status: http.StatusBadRequest, Message: message, Fields: fields}
}

// Unauthorized reports a missing or rejected bearer token.
func Unauthorized(message string) *Error {
	return New(CodeUnauthorized, http.StatusUnauthorized, message)
}

// Forbidden reports an authenticated account without provider provisioning.
func Forbidden(message string) *Error {
	return New(CodeForbidden, http.StatusForbidden, message)
}

// NotFound reports a failed provider resolution.
func NotFound(message string) *Error {
	return New(CodeNotFound, http.StatusNotFound, message)
}

// Upstream reports an outright failed call to an external service.
func Upstream(code Code, message string, details ...string) *Error {
	return &Error{Code: code, Status: http.StatusBadGateway, Message: message, Details: details}
}

// Config reports a missing credential detected before any network call.
func Config(message string) *Error {
	return New(CodeConfig, http.StatusInternalServerError, message)
}

// From extracts an *Error from err, downgrading anything else to a
// generic 500 so internals never leak to the client.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return New(CodeInternal, http.StatusInternalServerError, "internal server error")
}

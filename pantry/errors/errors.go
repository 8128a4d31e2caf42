// errors/errors.go

// Package errors carries HTTP-facing errors: a machine code, a message safe
// to show clients, the status to answer with, and the underlying cause for
// logs.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an error that knows how to present itself over HTTP.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Status  int            `json:"-"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetail adds one detail.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// HTTPStatus returns the status to respond with, 500 when unset.
func (e *Error) HTTPStatus() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

// New creates an Error.
func New(code, message string, status int) *Error {
	return &Error{Code: code, Message: message, Status: status}
}

// Wrap creates an Error with cause err.
func Wrap(err error, code, message string, status int) *Error {
	return &Error{Code: code, Message: message, Status: status, Err: err}
}

// From returns the *Error in err's chain, or wraps err as an internal error.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, CodeInternalError, "an internal error occurred", http.StatusInternalServerError)
}

const (
	CodeBadRequest           = "bad_request"
	CodeNotFound             = "not_found"
	CodeMethodNotAllowed     = "method_not_allowed"
	CodeRequestTooLarge      = "request_too_large"
	CodeUnsupportedMediaType = "unsupported_media_type"
	CodeUnprocessableEntity  = "unprocessable_entity"
	CodeInternalError        = "internal_error"
	CodeServiceUnavailable   = "service_unavailable"
)

func BadRequest(message string) *Error {
	return New(CodeBadRequest, message, http.StatusBadRequest)
}

func NotFound(message string) *Error {
	return New(CodeNotFound, message, http.StatusNotFound)
}

func MethodNotAllowed(message string) *Error {
	return New(CodeMethodNotAllowed, message, http.StatusMethodNotAllowed)
}

func RequestTooLarge(message string) *Error {
	return New(CodeRequestTooLarge, message, http.StatusRequestEntityTooLarge)
}

func UnsupportedMediaType(message string) *Error {
	return New(CodeUnsupportedMediaType, message, http.StatusUnsupportedMediaType)
}

func UnprocessableEntity(message string) *Error {
	return New(CodeUnprocessableEntity, message, http.StatusUnprocessableEntity)
}

func Internal(message string) *Error {
	return New(CodeInternalError, message, http.StatusInternalServerError)
}

func ServiceUnavailable(message string) *Error {
	return New(CodeServiceUnavailable, message, http.StatusServiceUnavailable)
}

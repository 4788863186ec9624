// Package apperr defines the error taxonomy shared by every flow and the HTTP boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a failure for callers and for the JSON error envelope.
type Code string

const (
	CodeValidation Code = "VALIDATION_ERROR"
	CodeInvalid    Code = "INVALID_INPUT"
	CodeNotFound   Code = "NOT_FOUND"
	CodeConflict   Code = "CONFLICT"
	CodeConfig     Code = "CONFIG_ERROR"
	CodeFetch      Code = "FETCH_ERROR"
	CodeUpstream   Code = "UPSTREAM_ERROR"
	CodeStore      Code = "STORE_ERROR"
	CodeUpload     Code = "UPLOAD_ERROR"
	CodeSubmit     Code = "SUBMIT_ERROR"
	CodeInternal   Code = "INTERNAL_ERROR"
)

// Error is a classified failure. Message is safe to show to API callers;
// Details carries the underlying driver or provider text when there is one.
type Error struct {
	Code    Code
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status maps the code onto an HTTP status.
func (e *Error) Status() int {
	switch e.Code {
	case CodeValidation, CodeInvalid:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func newError(code Code, message string, err error) *Error {
	e := &Error{Code: code, Message: message, Err: err}
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

// Validation reports a missing or malformed field supplied by the caller.
func Validation(message string) *Error {
	return newError(CodeValidation, message, nil)
}

// Invalid reports a payload that could not be parsed, such as an undecodable image.
func Invalid(message string, err error) *Error {
	return newError(CodeInvalid, message, err)
}

// NotFound reports a catalog row that does not exist.
func NotFound(message string) *Error {
	return newError(CodeNotFound, message, nil)
}

// Conflict reports an object that already exists where overwrite is not allowed.
func Conflict(message string, err error) *Error {
	return newError(CodeConflict, message, err)
}

// Config reports a missing credential or setting.
func Config(message string) *Error {
	return newError(CodeConfig, message, nil)
}

// Fetch reports a failed outbound download.
func Fetch(message string, err error) *Error {
	return newError(CodeFetch, message, err)
}

// Upstream reports a failed call to a third-party provider.
func Upstream(message string, err error) *Error {
	return newError(CodeUpstream, message, err)
}

// Store reports a catalog or bucket failure.
func Store(message string, err error) *Error {
	return newError(CodeStore, message, err)
}

// Upload reports a failed object upload.
func Upload(message string, err error) *Error {
	return newError(CodeUpload, message, err)
}

// Submit reports a rejected CRM submission.
func Submit(message string, err error) *Error {
	return newError(CodeSubmit, message, err)
}

// WithDetails returns a copy of e whose Details is replaced.
func (e *Error) WithDetails(details string) *Error {
	clone := *e
	clone.Details = details
	return &clone
}

// As extracts the classified error from err, if any.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return CodeInternal
}

// StatusOf returns the HTTP status for err.
func StatusOf(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.Status()
	}
	return http.StatusInternalServerError
}

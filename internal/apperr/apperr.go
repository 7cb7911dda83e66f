// Package apperr is the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthorization
	KindConflict
	KindNotFound
	KindUnauthenticated
)

var kindNames = map[Kind]string{
	KindInternal:        "internal",
	KindValidation:      "validation",
	KindAuthorization:   "authorization",
	KindConflict:        "conflict",
	KindNotFound:        "not_found",
	KindUnauthenticated: "unauthenticated",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "internal"
}

var httpStatus = map[Kind]int{
	KindValidation:      http.StatusBadRequest,
	KindAuthorization:   http.StatusForbidden,
	KindConflict:        http.StatusConflict,
	KindNotFound:        http.StatusNotFound,
	KindUnauthenticated: http.StatusUnauthorized,
	KindInternal:        http.StatusInternalServerError,
}

// HTTPStatus returns the response status for k.
func (k Kind) HTTPStatus() int {
	if status, ok := httpStatus[k]; ok {
		return status
	}
	return http.StatusInternalServerError
}

var callableStatus = map[Kind]string{
	KindValidation:      "INVALID_ARGUMENT",
	KindAuthorization:   "PERMISSION_DENIED",
	KindConflict:        "ALREADY_EXISTS",
	KindNotFound:        "NOT_FOUND",
	KindUnauthenticated: "UNAUTHENTICATED",
	KindInternal:        "INTERNAL",
}

// CallableStatus returns the status string used in callable error envelopes.
func (k Kind) CallableStatus() string {
	if status, ok := callableStatus[k]; ok {
		return status
	}
	return "INTERNAL"
}

// Error is a classified error. Message is safe to show to the caller; Err
// is the underlying cause and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// ValidationFields reports per-field validation failures.
func ValidationFields(message string, details map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

func Authorization(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

func Conflict(message string, err error) *Error {
	return &Error{Kind: KindConflict, Message: message, Err: err}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Unauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message}
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf classifies err. Errors that were never classified are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage returns the message that may be shown to the caller.
// Internal errors only expose their own message, never the cause.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error"
}

// DetailsOf returns per-field details attached to err, if any.
func DetailsOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

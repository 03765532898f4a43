// Package apperr classifies failures so handlers can map them to a status
// code without inspecting messages.
package apperr

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

type Kind int

const (
	Internal Kind = iota
	Authentication
	Forbidden
	Validation
	NotFound
	Conflict
	Signature
	PaymentRequired
	RateLimited
	Unavailable
	Upstream
)

var kindStatus = map[Kind]int{
	Internal:        http.StatusInternalServerError,
	Authentication:  http.StatusUnauthorized,
	Forbidden:       http.StatusForbidden,
	Validation:      http.StatusBadRequest,
	NotFound:        http.StatusNotFound,
	Conflict:        http.StatusConflict,
	Signature:       http.StatusBadRequest,
	PaymentRequired: http.StatusPaymentRequired,
	RateLimited:     http.StatusTooManyRequests,
	Unavailable:     http.StatusServiceUnavailable,
	Upstream:        http.StatusBadGateway,
}

func (k Kind) Status() int {
	if status, ok := kindStatus[k]; ok {
		return status
	}
	return http.StatusInternalServerError
}

type Error struct {
	Kind    Kind
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and a user facing message to err, keeping its stack.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: errors.WithStack(err)}
}

func WithDetails(kind Kind, message string, details []string) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

// KindOf returns Internal for errors that were never classified.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message is the text safe to show a client.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}

func Details(err error) []string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Details
	}
	return nil
}

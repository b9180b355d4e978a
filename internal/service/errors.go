// Package service implements the backend use cases behind the HTTP API: login,
// expense lifecycle, friends, receipt processing and notifications.
package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every error a service returns to the HTTP layer wraps one of these.
var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrTooLarge         = errors.New("payload too large")
	ErrUnsupportedMedia = errors.New("unsupported media type")
)

// Error carries a user-facing detail message alongside its kind.
type Error struct {
	Kind   error
	Detail string
}

func (e *Error) Error() string {
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Caller is the authenticated user a request acts for.
type Caller struct {
	Email string
	Name  string
}

func (c Caller) displayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Email
}

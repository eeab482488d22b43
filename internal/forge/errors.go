package forge

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind is the closed set of failure classes a backend may report.
// Adapters translate their transport- or API-specific failures into one of
// these; nothing else crosses the provider boundary.
type ErrorKind int

const (
	// ErrNetwork is a transient transport failure, eligible for retry on
	// the next fetch cycle.
	ErrNetwork ErrorKind = iota
	// ErrAuth means the token was rejected. Surfaced to the user, never
	// retried automatically.
	ErrAuth
	// ErrNotFound means the remote object does not exist (or is hidden).
	ErrNotFound
	// ErrRateLimited means the backend throttled us. RetryAfter carries
	// the backend's hint when it provided one.
	ErrRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNetwork:
		return "network"
	case ErrAuth:
		return "auth"
	case ErrNotFound:
		return "not found"
	case ErrRateLimited:
		return "rate limited"
	default:
		return "unknown"
	}
}

// Error is the typed error every Forge operation fails with.
type Error struct {
	Kind       ErrorKind
	Message    string
	RetryAfter time.Duration // only meaningful for ErrRateLimited
	Err        error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a typed forge error wrapping an underlying cause.
func NewError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Errorf builds a typed forge error with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the error kind from err. Anything that is not a forge
// error is reported as a network failure: the caller only ever sees the
// closed enum.
func KindOf(err error) ErrorKind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ErrNetwork
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool { return hasKind(err, ErrAuth) }

// IsNotFound reports whether err is a missing-object failure.
func IsNotFound(err error) bool { return hasKind(err, ErrNotFound) }

// IsRateLimited reports whether err is a throttling failure.
func IsRateLimited(err error) bool { return hasKind(err, ErrRateLimited) }

func hasKind(err error, kind ErrorKind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}

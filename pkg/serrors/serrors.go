// Package serrors provides semantic errors: a small set of kinds (sentinels)
// that classify failures, and an Error type that pairs a kind with an optional
// cause and message. Handlers map kinds to HTTP statuses through HTTPStatus.
package serrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a marker interface implemented by all semantic error kinds created
// with NewKind. It allows distinguishing semantic kinds from ordinary errors.
type Kind interface {
	error
	isKind()
}

type kind struct{ s string }

func (k kind) Error() string { return k.s }
func (k kind) isKind()       {}

// NewKind creates a new semantic error kind (a sentinel).
func NewKind(name string) Kind { return kind{s: name} }

var (
	// ErrNotFound indicates the requested entity was not found or is not visible.
	ErrNotFound = NewKind("NOT_FOUND")
	// ErrUnauthorized indicates missing or invalid authentication.
	ErrUnauthorized = NewKind("UNAUTHORIZED")
	// ErrBadRequest indicates the client sent invalid data.
	ErrBadRequest = NewKind("BAD_REQUEST")
	// ErrConflict indicates a state conflict, e.g. expiring an already expired listing.
	ErrConflict = NewKind("CONFLICT")
	// ErrInternal indicates an internal server error.
	ErrInternal = NewKind("INTERNAL")
	// ErrUnavailable indicates a dependency is temporarily unavailable.
	ErrUnavailable = NewKind("UNAVAILABLE")
	// ErrRateLimited indicates an upstream refused the call for rate reasons.
	ErrRateLimited = NewKind("RATE_LIMITED")
)

var statusByKind = map[Kind]int{ //nolint: gochecknoglobals
	ErrNotFound:     http.StatusNotFound,
	ErrUnauthorized: http.StatusUnauthorized,
	ErrBadRequest:   http.StatusBadRequest,
	ErrConflict:     http.StatusConflict,
	ErrInternal:     http.StatusInternalServerError,
	ErrUnavailable:  http.StatusServiceUnavailable,
	ErrRateLimited:  http.StatusTooManyRequests,
}

var defaultMessages = map[Kind]string{ //nolint: gochecknoglobals
	ErrNotFound:     "resource not found",
	ErrUnauthorized: "unauthorized",
	ErrBadRequest:   "bad request",
	ErrConflict:     "conflict",
	ErrInternal:     "internal error",
	ErrUnavailable:  "service unavailable",
	ErrRateLimited:  "rate limited",
}

// Error represents a semantic error carrying a kind, an optional wrapped
// error and an optional message. errors.Is and errors.As match either the
// kind or anything in the wrapped chain.
//
// Error string formatting:
//   - If both msg and err are set: "<msg>: <err>"
//   - If only msg is set: "<msg>"
//   - If only err is set: "<err>"
//   - If neither set: the kind's Error() string.
type Error struct {
	kind Kind
	err  error
	msg  string
}

// With constructs a semantic error with a human-readable message.
func With(k Kind, msgFmt string, args ...any) *Error {
	return &Error{kind: k, msg: fmt.Sprintf(msgFmt, args...)}
}

// Wrap constructs a semantic error wrapping a concrete cause.
func Wrap(k Kind, err error, msgFmt string, args ...any) *Error {
	return &Error{kind: k, err: err, msg: fmt.Sprintf(msgFmt, args...)}
}

// KindOnly creates a semantic error carrying only the kind.
func KindOnly(k Kind) *Error { return &Error{kind: k} }

func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.msg != "" && e.err != nil:
		return e.msg + ": " + e.err.Error()
	case e.msg != "":
		return e.msg
	case e.err != nil:
		return e.err.Error()
	case e.kind != nil:
		return e.kind.Error()
	default:
		return "unknown error"
	}
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return e == nil && target == nil
	}
	if e.kind != nil && errors.Is(e.kind, target) {
		return true
	}

	return e.err != nil && errors.Is(e.err, target)
}

func (e *Error) As(target any) bool {
	if e == nil || target == nil {
		return false
	}
	if e.kind != nil && errors.As(e.kind, target) {
		return true
	}

	return e.err != nil && errors.As(e.err, target)
}

// Kind returns the semantic kind associated with this error, or nil.
func (e *Error) Kind() Kind { return e.kind }

// Message returns the message attached to this error.
func (e *Error) Message() string { return e.msg }

// Cause returns the wrapped cause (may be nil).
func (e *Error) Cause() error { return e.err }

// KindOf returns the kind of the first semantic error in err's chain, or
// ErrInternal when there is none.
func KindOf(err error) Kind {
	var k Kind
	if errors.As(err, &k) {
		return k
	}

	return ErrInternal
}

// HTTPStatus maps err to an HTTP status code through its kind.
func HTTPStatus(err error) int {
	if status, ok := statusByKind[KindOf(err)]; ok {
		return status
	}

	return http.StatusInternalServerError
}

// PublicMessage returns a message that is safe to show to clients. Internal
// errors never expose their cause.
func PublicMessage(err error) string {
	k := KindOf(err)
	var se *Error
	if k != ErrInternal && errors.As(err, &se) && se.msg != "" {
		return se.msg
	}
	if msg, ok := defaultMessages[k]; ok {
		return msg
	}

	return defaultMessages[ErrInternal]
}

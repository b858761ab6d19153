package authpipe

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/authpipe/internal/classify"
)

// ErrorKind is the failure taxonomy shared by every call.
type ErrorKind = classify.Kind

const (
	KindUnknownFailure    = classify.UnknownFailure
	KindAuthFailure       = classify.AuthFailure
	KindForbidden         = classify.Forbidden
	KindNotFound          = classify.NotFound
	KindConflict          = classify.Conflict
	KindValidationFailure = classify.ValidationFailure
	KindServerFailure     = classify.ServerFailure
	KindNetworkFailure    = classify.NetworkFailure
	KindTimeoutFailure    = classify.TimeoutFailure
)

var (
	ErrAuthFailure       = errors.New("auth failure")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrValidationFailure = errors.New("validation failure")
	ErrServerFailure     = errors.New("server failure")
	ErrNetworkFailure    = errors.New("network failure")
	ErrTimeoutFailure    = errors.New("timeout failure")
	ErrUnknownFailure    = errors.New("unknown failure")

	// ErrInvalidCallSpec is returned before any I/O for malformed call specs.
	ErrInvalidCallSpec = errors.New("invalid call spec")
	// ErrClientNotReady is returned by a nil or closed Client.
	ErrClientNotReady = errors.New("client not ready")
)

var kindSentinels = [...]error{
	classify.UnknownFailure:    ErrUnknownFailure,
	classify.AuthFailure:       ErrAuthFailure,
	classify.Forbidden:         ErrForbidden,
	classify.NotFound:          ErrNotFound,
	classify.Conflict:          ErrConflict,
	classify.ValidationFailure: ErrValidationFailure,
	classify.ServerFailure:     ErrServerFailure,
	classify.NetworkFailure:    ErrNetworkFailure,
	classify.TimeoutFailure:    ErrTimeoutFailure,
}

func sentinelFor(kind ErrorKind) error {
	if int(kind) < len(kindSentinels) {
		return kindSentinels[kind]
	}
	return ErrUnknownFailure
}

// Error is the classified failure of a call. errors.Is matches the sentinel of its
// Kind; errors.Unwrap returns the underlying cause, if any.
type Error struct {
	Kind       ErrorKind
	Message    string
	HTTPStatus int
	Code       int
	RequestID  string
	Cause      error
}

func (e *Error) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("%s (http %d, code %d): %s", e.Kind, e.HTTPStatus, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Is(target error) bool {
	return target == sentinelFor(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf returns the kind of err, UnknownFailure for unclassified errors, and false
// when err is nil.
func KindOf(err error) (ErrorKind, bool) {
	if err == nil {
		return KindUnknownFailure, false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindUnknownFailure, true
}

func newError(rec classify.Record, requestID string, cause error) *Error {
	return &Error{
		Kind:       rec.Kind,
		Message:    rec.Message,
		HTTPStatus: rec.HTTPStatus,
		Code:       rec.Code,
		RequestID:  requestID,
		Cause:      cause,
	}
}

// authFailure wraps cause as an unrecoverable AuthFailure. An *Error cause that is
// already an AuthFailure is returned unchanged.
func authFailure(cause error) error {
	var e *Error
	if errors.As(cause, &e) && e.Kind == KindAuthFailure {
		if error(e) == cause {
			return e
		}
		out := *e
		out.Cause = cause
		return &out
	}
	return &Error{
		Kind:    KindAuthFailure,
		Message: classify.DefaultMessage(classify.AuthFailure),
		Cause:   cause,
	}
}

func abandoned(cause error) error {
	return &Error{
		Kind:    KindTimeoutFailure,
		Message: classify.DefaultMessage(classify.TimeoutFailure),
		Cause:   cause,
	}
}

func isTransportFailure(err error) bool {
	kind, ok := KindOf(err)
	return ok && (kind == KindNetworkFailure || kind == KindTimeoutFailure)
}

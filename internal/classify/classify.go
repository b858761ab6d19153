package classify

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"

	"github.com/MrEthical07/authpipe/transport"
)

// Kind is one entry of the failure taxonomy.
type Kind uint8

const (
	UnknownFailure Kind = iota
	AuthFailure
	Forbidden
	NotFound
	Conflict
	ValidationFailure
	ServerFailure
	NetworkFailure
	TimeoutFailure
)

var kindNames = [...]string{
	UnknownFailure:    "unknown_failure",
	AuthFailure:       "auth_failure",
	Forbidden:         "forbidden",
	NotFound:          "not_found",
	Conflict:          "conflict",
	ValidationFailure: "validation_failure",
	ServerFailure:     "server_failure",
	NetworkFailure:    "network_failure",
	TimeoutFailure:    "timeout_failure",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[UnknownFailure]
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), true
		}
	}
	return UnknownFailure, false
}

// Record is the canonical error record.
type Record struct {
	Kind       Kind
	Message    string
	HTTPStatus int
	Code       int
}

// Outcome is the input to Classify. Err takes precedence: when it is set the outcome
// is a transport failure and Code is ignored.
type Outcome struct {
	HTTPStatus int
	Code       int
	Message    string
	Err        error
}

const (
	StatusBadRequest         = 400
	StatusUnauthorized       = 401
	StatusForbidden          = 403
	StatusNotFound           = 404
	StatusConflict           = 409
	StatusValidation         = 422
	StatusServerError        = 500
	StatusServiceUnavailable = 503
)

// FallbackMessage is used when neither the server nor the tables provide one.
const FallbackMessage = "unknown error"

var kindMessages = map[Kind]string{
	AuthFailure:       "unauthorized, please sign in",
	Forbidden:         "permission denied",
	NotFound:          "requested resource does not exist",
	Conflict:          "data conflict",
	ValidationFailure: "data validation failed",
	ServerFailure:     "internal server error",
	NetworkFailure:    "network connection failed",
	TimeoutFailure:    "request timed out",
}

// statusMessages override the kind default for codes that share a kind.
var statusMessages = map[int]string{
	StatusBadRequest:         "invalid request parameters",
	StatusServiceUnavailable: "service temporarily unavailable",
}

// Classify maps an outcome to a record.
func Classify(o Outcome) Record {
	if o.Err != nil {
		rec := Transport(o.Err)
		rec.HTTPStatus = o.HTTPStatus
		return rec
	}
	return Status(o.HTTPStatus, o.Code, o.Message)
}

// Status classifies an HTTP status or application envelope code. code drives the
// kind; httpStatus is carried for diagnostics only.
func Status(httpStatus, code int, serverMessage string) Record {
	kind := KindForCode(code)
	return Record{
		Kind:       kind,
		Message:    resolveMessage(serverMessage, code, kind),
		HTTPStatus: httpStatus,
		Code:       code,
	}
}

// Transport classifies an error returned by the transport instead of a response.
// Errors the client raised itself are not network failures.
func Transport(err error) Record {
	switch {
	case IsTimeout(err):
		return Record{Kind: TimeoutFailure, Message: kindMessages[TimeoutFailure]}
	case errors.Is(err, context.Canceled):
		return Record{Kind: UnknownFailure, Message: "request canceled"}
	case errors.Is(err, transport.ErrResponseTooLarge):
		return Record{Kind: UnknownFailure, Message: "response too large"}
	case errors.Is(err, transport.ErrInvalidRequest):
		return Record{Kind: UnknownFailure, Message: "invalid request"}
	default:
		return Record{Kind: NetworkFailure, Message: kindMessages[NetworkFailure]}
	}
}

// KindForCode returns the taxonomy entry for a status or envelope code.
func KindForCode(code int) Kind {
	switch {
	case code == StatusUnauthorized:
		return AuthFailure
	case code == StatusForbidden:
		return Forbidden
	case code == StatusNotFound:
		return NotFound
	case code == StatusConflict:
		return Conflict
	case code == StatusValidation:
		return ValidationFailure
	case code >= 500 && code <= 599:
		return ServerFailure
	default:
		return UnknownFailure
	}
}

// DefaultMessage returns the table message for kind.
func DefaultMessage(kind Kind) string {
	if msg, ok := kindMessages[kind]; ok {
		return msg
	}
	return FallbackMessage
}

// IsTimeout reports whether err is a client-side deadline expiry.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func resolveMessage(serverMessage string, code int, kind Kind) string {
	if msg := strings.TrimSpace(serverMessage); msg != "" {
		return msg
	}
	if msg, ok := statusMessages[code]; ok {
		return msg
	}
	return DefaultMessage(kind)
}

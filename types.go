package authpipe

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/MrEthical07/authpipe/notify"
	"github.com/MrEthical07/authpipe/session"
	"github.com/MrEthical07/authpipe/transport"
)

// CallSpec describes one call. Method is case-insensitive; Path is joined to the
// transport base URL.
type CallSpec struct {
	Method  string            `validate:"required,oneof=GET POST PUT DELETE PATCH"`
	Path    string            `validate:"required,startswith=/"`
	Params  map[string]string `validate:"omitempty,dive,keys,required,endkeys"`
	Body    any
	Headers map[string]string `validate:"omitempty,dive,keys,required,endkeys"`
}

// Response is the payload of a successful envelope.
type Response struct {
	Code       int
	Message    string
	Data       json.RawMessage
	Page       *PageInfo
	HTTPStatus int
	RequestID  string
}

// Decode unmarshals Data into v. A null or absent data field leaves v unchanged.
func (r *Response) Decode(v any) error {
	if r == nil || len(r.Data) == 0 || string(r.Data) == "null" {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}

// PageInfo is the pagination metadata inlined in a data object holding items.
type PageInfo struct {
	Items    json.RawMessage
	Total    int64
	Current  int64
	PageSize int64
}

// Page is a decoded page of T.
type Page[T any] struct {
	Items    []T
	Total    int64
	Current  int64
	PageSize int64
}

// ErrNotPaginated is returned by DoPage when the payload carries no items.
var ErrNotPaginated = errors.New("response is not paginated")

// Session is the credential record read by the Client.
type Session = session.Session

// SessionStore holds the single current session. session.MemoryStore,
// session.RedisStore and session.SQLiteStore implement it.
type SessionStore interface {
	Get(ctx context.Context) (Session, error)
	Set(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

// Transport carries requests to the remote API.
type Transport interface {
	Execute(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

// Notifier sends the user to sign in and shows messages.
type Notifier interface {
	RedirectToLogin(ctx context.Context)
	Notify(ctx context.Context, message string, level notify.Level)
}

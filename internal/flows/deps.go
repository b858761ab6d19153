package flows

import (
	"context"
	"log/slog"
	"time"

	"github.com/MrEthical07/authpipe/session"
)

// SessionStore is the subset of the session store the coordinator needs.
type SessionStore interface {
	Get(ctx context.Context) (session.Session, error)
	Set(ctx context.Context, s session.Session) error
	Clear(ctx context.Context) error
}

// Grant is the outcome of a successful refresh call. An empty RefreshToken means the
// server did not rotate it.
type Grant struct {
	AccessToken  string
	RefreshToken string
}

// Event is a coordinator lifecycle notification, mapped to metrics and diagnostics
// by the root package.
type Event uint8

const (
	EventRefreshStarted Event = iota
	EventRefreshSucceeded
	EventRefreshFailed
	EventWaiterQueued
	EventReplayIssued
	EventWaiterRejected
	EventWaiterAbandoned
	EventRetryExhausted
	EventStaleTokenReplay
	EventSessionCleared
	EventLoginRequired
)

var eventNames = [...]string{
	EventRefreshStarted:   "refresh.started",
	EventRefreshSucceeded: "refresh.succeeded",
	EventRefreshFailed:    "refresh.failed",
	EventWaiterQueued:     "waiter.queued",
	EventReplayIssued:     "replay.issued",
	EventWaiterRejected:   "waiter.rejected",
	EventWaiterAbandoned:  "waiter.abandoned",
	EventRetryExhausted:   "retry.exhausted",
	EventStaleTokenReplay: "replay.stale_token",
	EventSessionCleared:   "session.cleared",
	EventLoginRequired:    "login.required",
}

func (e Event) String() string {
	if int(e) < len(eventNames) {
		return eventNames[e]
	}
	return "unknown"
}

// CoordinatorDeps wires a Coordinator to its collaborators. Sessions, Refresh,
// Replay and AuthFailure are required.
type CoordinatorDeps[S, R any] struct {
	Sessions SessionStore

	// Refresh exchanges the session's refresh credential for a new grant. It must not
	// route its own auth failures back into the coordinator.
	Refresh func(ctx context.Context, s session.Session) (Grant, error)

	// Replay re-issues call with the given access token. Replays never trigger a
	// proactive refresh.
	Replay func(ctx context.Context, call *Call[S], token string) (R, error)

	// LoginRequired is invoked once per unrecoverable auth episode, after the session
	// has been cleared.
	LoginRequired func(ctx context.Context)

	// AuthFailure builds the error surfaced for an unrecoverable auth failure. cause
	// may be nil.
	AuthFailure func(cause error) error

	// Abandoned builds the error returned to a waiter whose context ended while it was
	// queued. Defaults to returning the context error.
	Abandoned func(cause error) error

	// IsTransportFailure reports whether a refresh error is a network or timeout
	// failure. Only consulted when KeepSessionOnTransportError is set.
	IsTransportFailure          func(error) bool
	KeepSessionOnTransportError bool

	RefreshTimeout time.Duration
	Now            func() time.Time
	Hook           func(Event)
	Logger         *slog.Logger
}

package authpipe

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authpipe/internal"
	"github.com/MrEthical07/authpipe/internal/flows"
	"github.com/go-playground/validator/v10"
)

// Client sends calls to the remote API with credential injection, response
// normalization and single-flight token refresh. Methods are safe for concurrent
// use after Builder.Build.
type Client struct {
	config    Config
	store     SessionStore
	transport Transport
	notifier  Notifier
	logger    *slog.Logger
	events    *eventDispatcher
	metrics   *Metrics
	stamper   *internal.Stamper
	validate  *validator.Validate
	coord     *flows.Coordinator[preparedCall, *Response]
	now       func() time.Time
	closed    atomic.Bool
}

// Close stops the event dispatcher after draining queued events. Calls made after
// Close return ErrClientNotReady.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.closed.Store(true)
	c.events.Close()
}

func (c *Client) ready() bool {
	return c != nil && c.coord != nil && !c.closed.Load()
}

// EventsDropped returns the number of diagnostic events dropped under backpressure.
func (c *Client) EventsDropped() uint64 {
	if c == nil {
		return 0
	}
	return c.events.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable
// behavior.
//
// MetricsSnapshot returns empty maps when metrics are disabled.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

// Refreshing reports whether a token refresh is in flight.
func (c *Client) Refreshing() bool {
	return c.ready() && c.coord.State() == flows.Refreshing
}

// Session returns the current session.
func (c *Client) Session(ctx context.Context) (Session, error) {
	if !c.ready() {
		return Session{}, ErrClientNotReady
	}
	return c.store.Get(ctx)
}

// SignIn stores the credentials returned by a login call.
func (c *Client) SignIn(ctx context.Context, s Session) error {
	if !c.ready() {
		return ErrClientNotReady
	}
	s.LoggedIn = true
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = c.now()
	}
	if err := c.store.Set(ctx, s); err != nil {
		return err
	}
	c.coord.SignedIn()
	return nil
}

// SignOut clears the session without notifying the user.
func (c *Client) SignOut(ctx context.Context) error {
	if !c.ready() {
		return ErrClientNotReady
	}
	return c.store.Clear(ctx)
}

func (c *Client) emit(ctx context.Context, event Event) {
	if c.events == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = c.now()
	}
	c.events.Emit(ctx, event)
}

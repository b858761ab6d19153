package flows

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authpipe/session"
)

// DefaultRefreshTimeout bounds the refresh call when CoordinatorDeps.RefreshTimeout is
// zero.
const DefaultRefreshTimeout = 15 * time.Second

var (
	// ErrNoRefreshToken is the cause attached to auth failures when the session
	// carries no refresh credential.
	ErrNoRefreshToken = errors.New("session has no refresh token")
	// ErrRetryExhausted is the cause attached when a replayed call fails
	// authentication again.
	ErrRetryExhausted = errors.New("call already retried after refresh")
)

// State is the refresh state of a Coordinator.
type State uint8

const (
	Idle State = iota
	Refreshing
)

func (s State) String() string {
	if s == Refreshing {
		return "refreshing"
	}
	return "idle"
}

// Call is a replayable call descriptor. Token is the access token attached when the
// call was last dispatched; Attempted is set once the call has entered the refresh
// path and is never cleared.
type Call[S any] struct {
	Spec      S
	Token     string
	Attempted bool
}

type waiter[S, R any] struct {
	ctx     context.Context
	call    *Call[S]
	done    chan struct{}
	claimed atomic.Bool

	result R
	token  string
	err    error
}

// Coordinator serializes token refresh for one client.
//
// Session store I/O happens outside mu. A decision made on a session snapshot is
// only applied if no refresh completed since the snapshot was taken (gen).
type Coordinator[S, R any] struct {
	deps CoordinatorDeps[S, R]

	mu    sync.Mutex
	state State
	queue []*waiter[S, R]
	gen   uint64

	// signInRequested is set once sign-in has been requested for the current
	// episode and cleared when a credentialed session is seen again.
	signInRequested bool
}

// NewCoordinator validates deps and returns an Idle coordinator.
func NewCoordinator[S, R any](deps CoordinatorDeps[S, R]) (*Coordinator[S, R], error) {
	if deps.Sessions == nil {
		return nil, errors.New("flows: session store is required")
	}
	if deps.Refresh == nil {
		return nil, errors.New("flows: refresh func is required")
	}
	if deps.Replay == nil {
		return nil, errors.New("flows: replay func is required")
	}
	if deps.AuthFailure == nil {
		return nil, errors.New("flows: auth failure constructor is required")
	}
	if deps.Abandoned == nil {
		deps.Abandoned = func(cause error) error { return cause }
	}
	if deps.LoginRequired == nil {
		deps.LoginRequired = func(context.Context) {}
	}
	if deps.RefreshTimeout <= 0 {
		deps.RefreshTimeout = DefaultRefreshTimeout
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Hook == nil {
		deps.Hook = func(Event) {}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Coordinator[S, R]{deps: deps}, nil
}

// State returns the current refresh state.
func (c *Coordinator[S, R]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending returns the number of queued waiters, including abandoned ones not yet
// flushed.
func (c *Coordinator[S, R]) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// SignedIn starts a new auth episode. The next unrecoverable auth failure requests
// sign-in again.
func (c *Coordinator[S, R]) SignedIn() {
	c.mu.Lock()
	c.signInRequested = false
	c.mu.Unlock()
}

// HandleAuthFailure is called when call failed with an auth failure. It either
// replays the call once with a fresh access token or returns the error built by
// CoordinatorDeps.AuthFailure. cause is the auth failure that triggered the call.
func (c *Coordinator[S, R]) HandleAuthFailure(ctx context.Context, call *Call[S], cause error) (R, error) {
	var zero R
	if call.Attempted {
		c.deps.Hook(EventRetryExhausted)
		return zero, c.deps.AuthFailure(errors.Join(ErrRetryExhausted, cause))
	}
	call.Attempted = true

	for {
		sess, w, err := c.snapshot(ctx, call)
		if w != nil {
			c.deps.Hook(EventWaiterQueued)
			c.await(w)
			return w.result, w.err
		}
		if err != nil {
			return zero, c.deps.AuthFailure(err)
		}

		c.mu.Lock()
		if w := c.joinLocked(ctx, call); w != nil {
			c.mu.Unlock()
			c.deps.Hook(EventWaiterQueued)
			c.await(w)
			return w.result, w.err
		}
		if c.gen != sess.gen {
			c.mu.Unlock()
			continue
		}

		if sess.RefreshToken == "" {
			redirect := !c.signInRequested
			c.signInRequested = true
			c.mu.Unlock()

			c.clearSession(ctx)
			if redirect {
				c.loginRequired(ctx)
			}
			return zero, c.deps.AuthFailure(errors.Join(ErrNoRefreshToken, cause))
		}

		if sess.AccessToken != "" && sess.AccessToken != call.Token {
			c.mu.Unlock()
			c.deps.Hook(EventStaleTokenReplay)
			return c.deps.Replay(ctx, call, sess.AccessToken)
		}

		w = c.startLocked(ctx, call)
		c.mu.Unlock()
		c.launch(ctx, sess.Session)
		c.await(w)
		return w.result, w.err
	}
}

// Refresh joins the in-flight refresh or starts one, and returns the new access
// token. It never clears a session that has no refresh token.
func (c *Coordinator[S, R]) Refresh(ctx context.Context) (string, error) {
	for {
		sess, w, err := c.snapshot(ctx, nil)
		if w != nil {
			c.await(w)
			return w.token, w.err
		}
		if err != nil {
			return "", c.deps.AuthFailure(err)
		}
		if sess.RefreshToken == "" {
			return "", c.deps.AuthFailure(ErrNoRefreshToken)
		}

		c.mu.Lock()
		if w := c.joinLocked(ctx, nil); w != nil {
			c.mu.Unlock()
			c.await(w)
			return w.token, w.err
		}
		if c.gen != sess.gen {
			c.mu.Unlock()
			continue
		}
		w = c.startLocked(ctx, nil)
		c.mu.Unlock()
		c.launch(ctx, sess.Session)
		c.await(w)
		return w.token, w.err
	}
}

type sessionSnapshot struct {
	session.Session
	gen uint64
}

// snapshot reads the session without holding mu. When a refresh is already in
// flight it queues call instead and returns the waiter.
func (c *Coordinator[S, R]) snapshot(ctx context.Context, call *Call[S]) (sessionSnapshot, *waiter[S, R], error) {
	c.mu.Lock()
	if w := c.joinLocked(ctx, call); w != nil {
		c.mu.Unlock()
		return sessionSnapshot{}, w, nil
	}
	gen := c.gen
	c.mu.Unlock()

	sess, err := c.deps.Sessions.Get(ctx)
	return sessionSnapshot{Session: sess, gen: gen}, nil, err
}

func (c *Coordinator[S, R]) joinLocked(ctx context.Context, call *Call[S]) *waiter[S, R] {
	if c.state != Refreshing {
		return nil
	}
	return c.enqueueLocked(ctx, call)
}

func (c *Coordinator[S, R]) clearSession(ctx context.Context) {
	if err := c.deps.Sessions.Clear(context.WithoutCancel(ctx)); err != nil {
		c.deps.Logger.Warn("session clear failed", "error", err)
	}
	c.deps.Hook(EventSessionCleared)
}

func (c *Coordinator[S, R]) enqueueLocked(ctx context.Context, call *Call[S]) *waiter[S, R] {
	w := &waiter[S, R]{ctx: ctx, call: call, done: make(chan struct{})}
	c.queue = append(c.queue, w)
	return w
}

// startLocked moves to Refreshing with the trigger at the queue head. The caller
// must launch the refresh after releasing the lock.
func (c *Coordinator[S, R]) startLocked(ctx context.Context, call *Call[S]) *waiter[S, R] {
	c.state = Refreshing
	c.signInRequested = false
	return c.enqueueLocked(ctx, call)
}

// launch runs the refresh on its own goroutine, detached from the trigger's
// cancellation.
func (c *Coordinator[S, R]) launch(ctx context.Context, sess session.Session) {
	c.deps.Hook(EventRefreshStarted)
	go c.run(context.WithoutCancel(ctx), sess)
}

func (c *Coordinator[S, R]) await(w *waiter[S, R]) {
	select {
	case <-w.done:
	case <-w.ctx.Done():
		if w.claimed.CompareAndSwap(false, true) {
			c.deps.Hook(EventWaiterAbandoned)
			w.err = c.deps.Abandoned(w.ctx.Err())
			return
		}
		<-w.done
	}
}

func (c *Coordinator[S, R]) run(ctx context.Context, sess session.Session) {
	logger := c.deps.Logger
	logger.Debug("refresh started", "user_id", sess.UserID)

	rctx, cancel := context.WithTimeout(ctx, c.deps.RefreshTimeout)
	grant, err := c.deps.Refresh(rctx, sess)
	cancel()

	if err == nil && grant.AccessToken == "" {
		err = errors.New("refresh returned empty access token")
	}
	if err == nil {
		next := sess
		next.AccessToken = grant.AccessToken
		if grant.RefreshToken != "" {
			next.RefreshToken = grant.RefreshToken
		}
		next.LoggedIn = true
		next.UpdatedAt = c.deps.Now()
		err = c.deps.Sessions.Set(ctx, next)
	}
	if err != nil {
		logger.Warn("refresh failed", "user_id", sess.UserID, "error", err)
		c.deps.Hook(EventRefreshFailed)
		c.fail(ctx, err)
		return
	}

	c.deps.Hook(EventRefreshSucceeded)
	logger.Debug("refresh succeeded", "user_id", sess.UserID)
	c.flush(grant.AccessToken)
}

// flush replays queued calls in FIFO order until the queue stays empty, then returns
// to Idle. Calls queued during the flush are drained by it.
func (c *Coordinator[S, R]) flush(token string) {
	for {
		c.mu.Lock()
		batch := c.queue
		c.queue = nil
		if len(batch) == 0 {
			c.state = Idle
			c.gen++
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		for _, w := range batch {
			if !w.claimed.CompareAndSwap(false, true) {
				continue
			}
			if w.call == nil {
				w.token = token
				close(w.done)
				continue
			}
			c.deps.Hook(EventReplayIssued)
			w.result, w.err = c.deps.Replay(w.ctx, w.call, token)
			close(w.done)
		}
	}
}

func (c *Coordinator[S, R]) fail(ctx context.Context, cause error) {
	keep := c.deps.KeepSessionOnTransportError &&
		c.deps.IsTransportFailure != nil &&
		c.deps.IsTransportFailure(cause)

	if !keep {
		c.clearSession(ctx)
	}

	c.mu.Lock()
	batch := c.queue
	c.queue = nil
	c.state = Idle
	c.gen++
	redirect := !keep && !c.signInRequested
	if !keep {
		c.signInRequested = true
	}
	c.mu.Unlock()

	// Sign-in is prompted before any waiter wakes.
	rejectErr := cause
	if !keep {
		rejectErr = c.deps.AuthFailure(cause)
	}
	if redirect {
		c.loginRequired(ctx)
	}
	for _, w := range batch {
		if !w.claimed.CompareAndSwap(false, true) {
			continue
		}
		c.deps.Hook(EventWaiterRejected)
		w.err = rejectErr
		close(w.done)
	}
}

func (c *Coordinator[S, R]) loginRequired(ctx context.Context) {
	c.deps.Hook(EventLoginRequired)
	c.deps.LoginRequired(ctx)
}

// Package notify delivers sign-in redirects and user-facing messages raised by the
// request pipeline.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Level is the severity of a user-facing message.
type Level uint8

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notifier sends the user to sign in and shows messages.
type Notifier interface {
	RedirectToLogin(ctx context.Context)
	Notify(ctx context.Context, message string, level Level)
}

// Noop discards everything.
type Noop struct{}

func (Noop) RedirectToLogin(context.Context)       {}
func (Noop) Notify(context.Context, string, Level) {}

// Slog writes redirects and messages to a logger.
type Slog struct {
	Logger *slog.Logger
}

// NewSlog returns a notifier logging through logger (slog.Default when nil).
func NewSlog(logger *slog.Logger) *Slog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Slog{Logger: logger.With("component", "notify")}
}

func (s *Slog) RedirectToLogin(ctx context.Context) {
	s.Logger.InfoContext(ctx, "sign-in required")
}

func (s *Slog) Notify(ctx context.Context, message string, level Level) {
	s.Logger.Log(ctx, slogLevel(level), message, "level_name", level.String())
}

func slogLevel(l Level) slog.Level {
	switch l {
	case LevelWarning:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Func adapts plain functions. Nil fields are skipped.
type Func struct {
	Redirect func(ctx context.Context)
	Message  func(ctx context.Context, message string, level Level)
}

func (f Func) RedirectToLogin(ctx context.Context) {
	if f.Redirect != nil {
		f.Redirect(ctx)
	}
}

func (f Func) Notify(ctx context.Context, message string, level Level) {
	if f.Message != nil {
		f.Message(ctx, message, level)
	}
}

// Message is one notification captured by Recorder.
type Message struct {
	Text  string
	Level Level
}

// Recorder counts redirects and keeps every message. Safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	redirects int
	messages  []Message
}

func (r *Recorder) RedirectToLogin(context.Context) {
	r.mu.Lock()
	r.redirects++
	r.mu.Unlock()
}

func (r *Recorder) Notify(_ context.Context, message string, level Level) {
	r.mu.Lock()
	r.messages = append(r.messages, Message{Text: message, Level: level})
	r.mu.Unlock()
}

// Redirects returns the number of RedirectToLogin calls.
func (r *Recorder) Redirects() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.redirects
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

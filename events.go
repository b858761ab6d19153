package authpipe

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Diagnostic event types.
const (
	EventRequestStarted  = "request.started"
	EventRequestFinished = "request.finished"
	EventRefreshStarted  = "refresh.started"
	EventRefreshFinished = "refresh.finished"
	EventLoginRequired   = "login.required"
)

type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	EventType  string            `json:"event_type"`
	RequestID  string            `json:"request_id,omitempty"`
	Method     string            `json:"method,omitempty"`
	Path       string            `json:"path,omitempty"`
	HTTPStatus int               `json:"http_status,omitempty"`
	Success    bool              `json:"success"`
	Kind       string            `json:"kind,omitempty"`
	Error      string            `json:"error,omitempty"`
	Duration   time.Duration     `json:"duration_ns,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// EventSink receives events on the dispatcher goroutine. Sinks that can block
// should honor ctx, which is canceled when Client.Close stops waiting.
type EventSink interface {
	Emit(ctx context.Context, event Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, event Event)

func (f EventSinkFunc) Emit(ctx context.Context, event Event) { f(ctx, event) }

type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// SlogSink logs every event at debug level.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger.With("component", "events")}
}

func (s *SlogSink) Emit(ctx context.Context, event Event) {
	attrs := []any{
		"request_id", event.RequestID,
		"method", event.Method,
		"path", event.Path,
		"success", event.Success,
	}
	if event.HTTPStatus != 0 {
		attrs = append(attrs, "http_status", event.HTTPStatus)
	}
	if event.Kind != "" {
		attrs = append(attrs, "kind", event.Kind)
	}
	if event.Error != "" {
		attrs = append(attrs, "error", event.Error)
	}
	if event.Duration > 0 {
		attrs = append(attrs, "duration", event.Duration)
	}
	s.logger.DebugContext(ctx, event.EventType, attrs...)
}

package authpipe

import (
	"errors"
	"net"
	"net/url"
	"strings"
	"time"
)

// LintSeverity ranks configuration warnings. Lint never rejects a configuration;
// use LintResult.AsError to turn warnings into a startup failure.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

const minEventBuffer = 16

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is one finding of Config.Lint.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

type LintResult []LintWarning

// Codes returns the warning codes in report order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins every warning at or above min into one error, or returns nil.
func (r LintResult) AsError(min LintSeverity) error {
	var errs []error
	for _, w := range r.BySeverity(min) {
		errs = append(errs, errors.New(w.Severity.String()+" "+w.Code+": "+w.Message))
	}
	return errors.Join(errs...)
}

// Lint reports settings that are valid but likely unintended.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if u, err := url.Parse(c.Transport.BaseURL); err == nil && u.Scheme == "http" && !isLoopbackHost(u.Hostname()) {
		add("plaintext_bearer", LintHigh, "access tokens are sent over plain http to a non-loopback host")
	}
	if c.Refresh.Timeout > c.Transport.Timeout {
		add("refresh_timeout_capped", LintInfo, "the refresh call is still bounded by Transport Timeout")
	}
	if c.Refresh.ProactiveWindow > 10*time.Minute {
		add("proactive_window_large", LintWarn, "tokens are refreshed long before they expire")
	}
	if c.Refresh.KeepSessionOnTransportError {
		add("keep_session_on_transport_error", LintInfo, "refresh network failures keep the session and raise no sign-in prompt")
	}
	if strings.TrimSpace(c.Refresh.NotifyMessage) == "" {
		add("notify_message_empty", LintInfo, "session expiry redirects without a user message")
	}
	if !c.CacheBust.Enabled {
		add("cache_bust_disabled", LintInfo, "GET responses may be served from intermediary caches")
	}
	if c.Debug.Enabled && c.Debug.BufferSize < minEventBuffer {
		add("debug_buffer_small", LintWarn, "a refresh episode can overflow the event buffer and drop events")
	}

	return ws
}

func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

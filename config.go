package authpipe

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config holds every tunable of a Client. Obtain a populated value with
// DefaultConfig and override fields before passing it to Builder.WithConfig.
type Config struct {
	Transport TransportConfig
	Refresh   RefreshConfig
	CacheBust CacheBustConfig
	Debug     DebugConfig
	Metrics   MetricsConfig
}

/*
====================================
TRANSPORT CONFIG
====================================
*/

// TransportConfig configures the default HTTP transport and per-call deadlines.
// BaseURL is ignored when a custom Transport is supplied to the Builder.
type TransportConfig struct {
	BaseURL          string
	Timeout          time.Duration
	MaxResponseBytes int64
	UserAgent        string
	DefaultHeaders   map[string]string
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig configures the refresh call and what happens when it fails.
type RefreshConfig struct {
	Path    string
	Timeout time.Duration

	// ProactiveWindow refreshes before sending when the access token is a JWT whose
	// exp falls within the window. Zero disables proactive refresh.
	ProactiveWindow time.Duration

	// KeepSessionOnTransportError keeps the session when the refresh call fails with a
	// network or timeout failure. Waiters receive that failure and no sign-in prompt
	// is raised.
	KeepSessionOnTransportError bool

	NotifyMessage string
}

/*
====================================
CACHE BUST CONFIG
====================================
*/

type CacheBustConfig struct {
	Enabled bool
	Param   string
}

/*
====================================
DIAGNOSTICS
====================================
*/

// DebugConfig enables request lifecycle events delivered through an asynchronous
// dispatcher. Emitting never blocks a call: when the buffer is full the new event
// is dropped, or the oldest queued one if DropOldest is set.
type DebugConfig struct {
	Enabled    bool
	BufferSize int
	DropOldest bool

	// CloseTimeout bounds how long Client.Close waits for the sink to drain.
	CloseTimeout time.Duration
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

const (
	DefaultBaseURL       = "http://localhost:8100"
	DefaultTimeout       = 15 * time.Second
	DefaultRefreshPath   = "/user/refresh"
	DefaultNotifyMessage = "session expired, please sign in again"
	DefaultCacheParam    = "_t"
)

// DefaultConfig returns the configuration used when Builder.WithConfig is not
// called.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Transport: TransportConfig{
			BaseURL:          DefaultBaseURL,
			Timeout:          DefaultTimeout,
			MaxResponseBytes: 10 << 20,
			UserAgent:        "authpipe/1",
		},
		Refresh: RefreshConfig{
			Path:          DefaultRefreshPath,
			Timeout:       DefaultTimeout,
			NotifyMessage: DefaultNotifyMessage,
		},
		CacheBust: CacheBustConfig{
			Enabled: true,
			Param:   DefaultCacheParam,
		},
		Debug: DebugConfig{
			Enabled:      false,
			BufferSize:   1024,
			CloseTimeout: DefaultEventCloseTimeout,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Transport.DefaultHeaders != nil {
		out.Transport.DefaultHeaders = make(map[string]string, len(cfg.Transport.DefaultHeaders))
		for k, v := range cfg.Transport.DefaultHeaders {
			out.Transport.DefaultHeaders[k] = v
		}
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid field of c.
func (c *Config) Validate() error {
	// Transport
	if c.Transport.BaseURL != "" {
		u, err := url.Parse(c.Transport.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.New("Transport BaseURL must be an absolute http(s) URL")
		}
	}
	if c.Transport.Timeout <= 0 {
		return errors.New("Transport Timeout must be > 0")
	}
	if c.Transport.MaxResponseBytes <= 0 {
		return errors.New("Transport MaxResponseBytes must be > 0")
	}
	for k := range c.Transport.DefaultHeaders {
		if strings.TrimSpace(k) == "" {
			return errors.New("Transport DefaultHeaders contains an empty name")
		}
		if strings.EqualFold(k, "Authorization") {
			return errors.New("Transport DefaultHeaders must not set Authorization")
		}
	}

	// Refresh
	if !strings.HasPrefix(c.Refresh.Path, "/") {
		return errors.New("Refresh Path must start with /")
	}
	if c.Refresh.Timeout <= 0 {
		return errors.New("Refresh Timeout must be > 0")
	}
	if c.Refresh.ProactiveWindow < 0 {
		return errors.New("Refresh ProactiveWindow must be >= 0")
	}
	if c.Refresh.ProactiveWindow > time.Hour {
		return errors.New("Refresh ProactiveWindow must be <= 1h")
	}

	// Cache busting
	if c.CacheBust.Enabled && strings.TrimSpace(c.CacheBust.Param) == "" {
		return errors.New("CacheBust Param must be set when CacheBust is enabled")
	}

	// Diagnostics
	if c.Debug.Enabled && c.Debug.BufferSize <= 0 {
		return errors.New("Debug BufferSize must be > 0 when Debug is enabled")
	}
	if c.Debug.CloseTimeout < 0 {
		return errors.New("Debug CloseTimeout must be >= 0")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

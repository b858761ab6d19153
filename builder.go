package authpipe

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/authpipe/internal"
	"github.com/MrEthical07/authpipe/internal/flows"
	"github.com/MrEthical07/authpipe/notify"
	"github.com/MrEthical07/authpipe/session"
	"github.com/MrEthical07/authpipe/transport"
	"github.com/go-playground/validator/v10"
)

// Builder assembles a Client. A Builder can be built once.
type Builder struct {
	config Config

	store      SessionStore
	transport  Transport
	httpClient *http.Client
	notifier   Notifier
	eventSink  EventSink
	logger     *slog.Logger
	now        func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig copies cfg; later changes to the caller's value have no effect.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSessionStore sets the session store. Defaults to an empty session.MemoryStore.
func (b *Builder) WithSessionStore(store SessionStore) *Builder {
	b.store = store
	return b
}

// WithTransport replaces the default HTTP transport. Transport BaseURL and
// MaxResponseBytes are ignored when set.
func (b *Builder) WithTransport(t Transport) *Builder {
	b.transport = t
	return b
}

// WithHTTPClient sets the net/http client used by the default transport.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithEventSink sets the diagnostic event sink. Events are only produced when
// Debug is enabled.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.eventSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithDebug(enabled bool) *Builder {
	b.config.Debug.Enabled = enabled
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when the configuration is invalid or no transport can be
// constructed. Build starts the event dispatcher when Debug is enabled; release it
// with Client.Close.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- TRANSPORT --------
	tr := b.transport
	if tr == nil {
		if cfg.Transport.BaseURL == "" {
			return nil, errors.New("Transport BaseURL required when no transport is supplied")
		}
		h, err := transport.NewHTTP(cfg.Transport.BaseURL, b.httpClient)
		if err != nil {
			return nil, err
		}
		h.MaxResponseBytes = cfg.Transport.MaxResponseBytes
		tr = h
	}

	// -------- COLLABORATORS --------
	store := b.store
	if store == nil {
		store = session.NewMemoryStore(session.Session{})
	}
	notifier := b.notifier
	if notifier == nil {
		notifier = notify.Noop{}
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	c := &Client{
		config:    cfg,
		store:     store,
		transport: tr,
		notifier:  notifier,
		logger:    logger.With("component", "authpipe"),
		metrics:   NewMetrics(cfg.Metrics),
		stamper:   internal.NewStamper(now),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		now:       now,
	}
	c.events = newEventDispatcher(cfg.Debug, b.eventSink)

	for _, w := range cfg.Lint().BySeverity(LintWarn) {
		c.logger.Warn("config lint", "code", w.Code, "severity", w.Severity.String(), "message", w.Message)
	}

	// -------- REFRESH COORDINATOR --------
	coord, err := flows.NewCoordinator(flows.CoordinatorDeps[preparedCall, *Response]{
		Sessions:                    store,
		Refresh:                     c.refreshGrant,
		Replay:                      c.attempt,
		LoginRequired:               c.loginRequired,
		AuthFailure:                 authFailure,
		Abandoned:                   abandoned,
		IsTransportFailure:          isTransportFailure,
		KeepSessionOnTransportError: cfg.Refresh.KeepSessionOnTransportError,
		RefreshTimeout:              cfg.Refresh.Timeout,
		Now:                         now,
		Hook:                        c.onCoordinatorEvent,
		Logger:                      c.logger.With("subsystem", "refresh"),
	})
	if err != nil {
		c.events.Close()
		return nil, err
	}
	c.coord = coord

	b.built = true

	return c, nil
}

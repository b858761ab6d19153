package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrResponseTooLarge is returned when a response body exceeds HTTP.MaxResponseBytes.
	ErrResponseTooLarge = errors.New("transport: response body too large")
	// ErrInvalidRequest wraps failures to build a request before anything is sent.
	ErrInvalidRequest = errors.New("transport: invalid request")
)

// Request is one physical call. Path is joined to the transport's base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Response is the raw outcome of a call that reached the server.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport executes requests. A non-nil error means no response was received.
type Transport interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a function to Transport.
type Func func(ctx context.Context, req *Request) (*Response, error)

func (f Func) Execute(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// DefaultMaxResponseBytes bounds response bodies read by HTTP.
const DefaultMaxResponseBytes int64 = 10 << 20

// HTTP sends requests with a net/http client.
type HTTP struct {
	BaseURL          string
	Client           *http.Client
	MaxResponseBytes int64
}

// NewHTTP returns an HTTP transport for baseURL. A nil client uses a client with
// no overall timeout; deadlines come from the request context.
func NewHTTP(baseURL string, client *http.Client) (*HTTP, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("transport: unsupported scheme %q", u.Scheme)
	}
	if client == nil {
		client = &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
	}
	return &HTTP{
		BaseURL:          strings.TrimRight(baseURL, "/"),
		Client:           client,
		MaxResponseBytes: DefaultMaxResponseBytes,
	}, nil
}

// Execute performs the request. Responses of any status are returned without error.
func (h *HTTP) Execute(ctx context.Context, req *Request) (*Response, error) {
	target := h.BaseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := h.Client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("transport: %w", ctxErr)
		}
		return nil, fmt.Errorf("transport: %w", err)
	}
	defer resp.Body.Close()

	limit := h.MaxResponseBytes
	if limit <= 0 {
		limit = DefaultMaxResponseBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("transport: read body: %w", ctxErr)
		}
		return nil, fmt.Errorf("transport: read body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrResponseTooLarge
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// Timeout returns a context bounded by d, or ctx unchanged when d is not positive.
func Timeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

package authpipe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/MrEthical07/authpipe/internal"
	"github.com/MrEthical07/authpipe/internal/envelope"
	"github.com/MrEthical07/authpipe/internal/flows"
	"github.com/MrEthical07/authpipe/jwt"
	"github.com/MrEthical07/authpipe/transport"
)

// preparedCall is a validated CallSpec with its body already encoded, so replays
// send identical bytes.
type preparedCall struct {
	spec CallSpec
	body []byte
}

// Send validates spec, attaches the current access token and performs the call. An
// auth failure hands the call to the refresh coordinator, which replays it at most
// once with a fresh token. Other failures are returned as *Error without retry.
func (c *Client) Send(ctx context.Context, spec CallSpec) (*Response, error) {
	if !c.ready() {
		return nil, ErrClientNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}

	pc, err := c.prepare(spec)
	if err != nil {
		return nil, err
	}

	token, err := c.currentToken(ctx)
	if err != nil {
		return nil, err
	}

	return c.attempt(ctx, &flows.Call[preparedCall]{Spec: pc}, token)
}

func (c *Client) prepare(spec CallSpec) (preparedCall, error) {
	spec.Method = strings.ToUpper(strings.TrimSpace(spec.Method))
	if err := c.validate.Struct(spec); err != nil {
		return preparedCall{}, fmt.Errorf("%w: %v", ErrInvalidCallSpec, err)
	}

	pc := preparedCall{spec: spec}
	switch body := spec.Body.(type) {
	case nil:
	case json.RawMessage:
		pc.body = body
	case []byte:
		pc.body = body
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return preparedCall{}, fmt.Errorf("%w: body: %v", ErrInvalidCallSpec, err)
		}
		pc.body = data
	}
	return pc, nil
}

// currentToken reads the access token, refreshing first when it is a JWT about to
// expire and proactive refresh is enabled.
func (c *Client) currentToken(ctx context.Context) (string, error) {
	sess, err := c.store.Get(ctx)
	if err != nil {
		return "", &Error{
			Kind:    KindUnknownFailure,
			Message: "session store unavailable",
			Cause:   err,
		}
	}

	window := c.config.Refresh.ProactiveWindow
	if window <= 0 || sess.RefreshToken == "" || !jwt.ExpiresWithin(sess.AccessToken, window, c.now()) {
		return sess.AccessToken, nil
	}

	token, err := c.coord.Refresh(ctx)
	if err == nil {
		return token, nil
	}
	c.logger.Debug("proactive refresh failed", "error", err)

	sess, err = c.store.Get(ctx)
	if err != nil {
		return "", &Error{
			Kind:    KindUnknownFailure,
			Message: "session store unavailable",
			Cause:   err,
		}
	}
	return sess.AccessToken, nil
}

// attempt issues call with token and routes an auth failure to the coordinator. It
// is also the coordinator's replay function, so a replayed call that fails auth
// again reaches HandleAuthFailure with Attempted set.
func (c *Client) attempt(ctx context.Context, call *flows.Call[preparedCall], token string) (*Response, error) {
	call.Token = token
	resp, err := c.execute(ctx, call.Spec, token)
	if err == nil {
		return resp, nil
	}
	if !errors.Is(err, ErrAuthFailure) {
		return nil, err
	}
	return c.coord.HandleAuthFailure(ctx, call, err)
}

// execute performs one physical attempt and normalizes its outcome. It never
// retries and never consults the coordinator.
func (c *Client) execute(ctx context.Context, pc preparedCall, token string) (*Response, error) {
	requestID := internal.NewRequestID()
	req := c.buildRequest(pc, token, requestID)

	callCtx, cancel := transport.Timeout(ctx, callTimeoutFromContext(ctx, c.config.Transport.Timeout))
	defer cancel()

	c.metrics.Inc(MetricRequestTotal)
	c.emit(ctx, Event{
		EventType: EventRequestStarted,
		RequestID: requestID,
		Method:    req.Method,
		Path:      req.Path,
	})

	start := c.now()
	raw, transportErr := c.transport.Execute(callCtx, req)
	elapsed := c.now().Sub(start)
	c.metrics.Observe(MetricRequestLatency, elapsed)

	var in *envelope.Raw
	if raw != nil && transportErr == nil {
		in = &envelope.Raw{StatusCode: raw.StatusCode, Body: raw.Body}
	}
	res := envelope.Normalize(in, transportErr)

	finished := Event{
		EventType: EventRequestFinished,
		RequestID: requestID,
		Method:    req.Method,
		Path:      req.Path,
		Duration:  elapsed,
	}
	if raw != nil {
		finished.HTTPStatus = raw.StatusCode
	}

	if res.Err != nil {
		e := newError(*res.Err, requestID, transportErr)
		c.metrics.recordFailure(e.Kind)
		finished.Kind = e.Kind.String()
		finished.Error = e.Message
		c.emit(ctx, finished)
		c.logger.Debug("call failed",
			"request_id", requestID,
			"method", req.Method,
			"path", req.Path,
			"kind", e.Kind.String(),
			"http_status", e.HTTPStatus,
			"code", e.Code,
		)
		return nil, e
	}

	c.metrics.Inc(MetricRequestSuccess)
	finished.Success = true
	c.emit(ctx, finished)

	resp := &Response{
		Code:      res.Code,
		Message:   res.Message,
		Data:      res.Data,
		RequestID: requestID,
	}
	if raw != nil {
		resp.HTTPStatus = raw.StatusCode
	}
	if res.Page != nil {
		resp.Page = &PageInfo{
			Items:    res.Page.Items,
			Total:    res.Page.Total,
			Current:  res.Page.Current,
			PageSize: res.Page.PageSize,
		}
	}
	return resp, nil
}

func (c *Client) buildRequest(pc preparedCall, token, requestID string) *transport.Request {
	spec := pc.spec
	header := make(http.Header, len(c.config.Transport.DefaultHeaders)+len(spec.Headers)+5)
	for k, v := range c.config.Transport.DefaultHeaders {
		header.Set(k, v)
	}
	for k, v := range spec.Headers {
		header.Set(k, v)
	}
	header.Set("Accept", "application/json")
	if pc.body != nil {
		header.Set("Content-Type", "application/json")
	}
	if c.config.Transport.UserAgent != "" {
		header.Set("User-Agent", c.config.Transport.UserAgent)
	}
	header.Set("X-Request-ID", requestID)
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	query := make(url.Values, len(spec.Params)+1)
	for k, v := range spec.Params {
		query.Set(k, v)
	}
	if spec.Method == http.MethodGet && c.config.CacheBust.Enabled {
		query.Set(c.config.CacheBust.Param, strconv.FormatInt(c.stamper.Next(), 10))
	}

	return &transport.Request{
		Method: spec.Method,
		Path:   spec.Path,
		Query:  query,
		Header: header,
		Body:   pc.body,
	}
}

// malformedPayload reports a 2xx envelope whose data does not decode into the
// requested type.
func malformedPayload(resp *Response, cause error) error {
	return &Error{
		Kind:       KindUnknownFailure,
		Message:    envelope.MalformedMessage,
		HTTPStatus: resp.HTTPStatus,
		Code:       resp.Code,
		RequestID:  resp.RequestID,
		Cause:      cause,
	}
}

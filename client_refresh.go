package authpipe

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/authpipe/internal/flows"
	"github.com/MrEthical07/authpipe/notify"
)

type refreshRequest struct {
	ID           json.RawMessage `json:"id"`
	RefreshToken string          `json:"refresh_token"`
}

type refreshData struct {
	Token        string `json:"token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges the refresh token for a new access token, joining a refresh
// already in flight. A failed refresh clears the session and prompts sign-in, as
// it would for a call.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	if !c.ready() {
		return "", ErrClientNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return c.coord.Refresh(ctx)
}

// refreshGrant performs the refresh call. It is sent without credentials and goes
// straight through execute, so its own auth failure never re-enters the
// coordinator.
func (c *Client) refreshGrant(ctx context.Context, s Session) (flows.Grant, error) {
	body, err := json.Marshal(refreshRequest{
		ID:           userIDJSON(s.UserID),
		RefreshToken: s.RefreshToken,
	})
	if err != nil {
		return flows.Grant{}, err
	}

	resp, err := c.execute(ctx, preparedCall{
		spec: CallSpec{Method: http.MethodPost, Path: c.config.Refresh.Path},
		body: body,
	}, "")
	if err != nil {
		return flows.Grant{}, err
	}

	var data refreshData
	if err := resp.Decode(&data); err != nil {
		return flows.Grant{}, malformedPayload(resp, err)
	}
	token := data.Token
	if token == "" {
		token = data.AccessToken
	}
	if token == "" {
		return flows.Grant{}, &Error{
			Kind:       KindAuthFailure,
			Message:    "refresh response carried no access token",
			HTTPStatus: resp.HTTPStatus,
			Code:       resp.Code,
			RequestID:  resp.RequestID,
		}
	}
	return flows.Grant{AccessToken: token, RefreshToken: data.RefreshToken}, nil
}

// userIDJSON encodes numeric user IDs as JSON numbers and anything else as a
// string.
func userIDJSON(id string) json.RawMessage {
	if id != "" && len(id) <= 18 {
		numeric := true
		for i := 0; i < len(id); i++ {
			if id[i] < '0' || id[i] > '9' {
				numeric = false
				break
			}
		}
		if numeric && (id == "0" || id[0] != '0') {
			return json.RawMessage(id)
		}
	}
	data, _ := json.Marshal(id)
	return data
}

func (c *Client) loginRequired(ctx context.Context) {
	c.logger.Info("sign-in required")
	c.emit(ctx, Event{EventType: EventLoginRequired})
	if msg := c.config.Refresh.NotifyMessage; msg != "" {
		c.notifier.Notify(ctx, msg, notify.LevelWarning)
	}
	c.notifier.RedirectToLogin(ctx)
}

func (c *Client) onCoordinatorEvent(e flows.Event) {
	switch e {
	case flows.EventRefreshStarted:
		c.metrics.Inc(MetricRefreshStarted)
		c.emit(context.Background(), Event{EventType: EventRefreshStarted, Path: c.config.Refresh.Path})
	case flows.EventRefreshSucceeded:
		c.metrics.Inc(MetricRefreshSuccess)
		c.emit(context.Background(), Event{EventType: EventRefreshFinished, Path: c.config.Refresh.Path, Success: true})
	case flows.EventRefreshFailed:
		c.metrics.Inc(MetricRefreshFailure)
		c.emit(context.Background(), Event{EventType: EventRefreshFinished, Path: c.config.Refresh.Path})
	case flows.EventWaiterQueued:
		c.metrics.Inc(MetricWaiterQueued)
	case flows.EventReplayIssued:
		c.metrics.Inc(MetricReplayIssued)
	case flows.EventWaiterRejected:
		c.metrics.Inc(MetricWaiterRejected)
	case flows.EventWaiterAbandoned:
		c.metrics.Inc(MetricWaiterAbandoned)
	case flows.EventRetryExhausted:
		c.metrics.Inc(MetricRetryExhausted)
	case flows.EventStaleTokenReplay:
		c.metrics.Inc(MetricStaleTokenReplay)
	case flows.EventSessionCleared:
		c.metrics.Inc(MetricSessionCleared)
	case flows.EventLoginRequired:
		c.metrics.Inc(MetricLoginRedirect)
	}
}

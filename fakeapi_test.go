package authpipe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/MrEthical07/authpipe/notify"
	"github.com/MrEthical07/authpipe/session"
	"github.com/MrEthical07/authpipe/transport"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	ReqID  string
	Body   string
}

// fakeAPI serves the movie API with envelope responses. Protected routes answer
// {code:401} unless the bearer token is the current access token.
type fakeAPI struct {
	mu           sync.Mutex
	access       string
	refresh      string
	generation   int
	requests     []recordedRequest
	refreshGate  chan struct{}
	refreshFail  bool
	unauthorized int // HTTP status used for auth failures; 0 means 200 with code 401

	refreshCalls  atomic.Int32
	executeCalls  atomic.Int32
	refreshBodies []map[string]any
}

func newFakeAPI(access, refresh string) *fakeAPI {
	return &fakeAPI{access: access, refresh: refresh}
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/user/refresh", f.handleRefresh)
	mux.HandleFunc("/movie/list", f.protected(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, 200, map[string]any{
			"items": []map[string]any{
				{"id": 1, "title": "Heat"},
				{"id": 2, "title": "Ronin"},
			},
			"total":    5,
			"current":  1,
			"pageSize": 2,
		}, "")
	}))
	mux.HandleFunc("/movie/add", f.protected(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["title"] == "" || in["title"] == nil {
			writeEnvelope(w, http.StatusOK, 422, nil, "title required")
			return
		}
		writeEnvelope(w, http.StatusOK, 200, map[string]any{"id": 7, "title": in["title"]}, "created")
	}))
	mux.HandleFunc("/movie/conflict", f.protected(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, 409, nil, "duplicate title")
	}))
	mux.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html>oops</html>"))
	})
	mux.HandleFunc("/public", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, 200, "pong", "")
	})
	return mux
}

func (f *fakeAPI) protected(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		ok := r.Header.Get("Authorization") == "Bearer "+f.access
		status := f.unauthorized
		f.mu.Unlock()
		if !ok {
			if status == 0 {
				status = http.StatusOK
			}
			writeEnvelope(w, status, 401, nil, "token expired")
			return
		}
		next(w, r)
	}
}

func (f *fakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f.refreshCalls.Add(1)
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	gate := f.refreshGate
	f.refreshBodies = append(f.refreshBodies, body)
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if r.Header.Get("Authorization") != "" {
		writeEnvelope(w, http.StatusBadRequest, 400, nil, "refresh must be anonymous")
		return
	}
	if f.refreshFail || body["refresh_token"] != f.refresh {
		writeEnvelope(w, http.StatusOK, 401, nil, "refresh token expired")
		return
	}
	f.generation++
	f.access = fmt.Sprintf("T%d", f.generation+1)
	f.refresh = fmt.Sprintf("R%d", f.generation+1)
	writeEnvelope(w, http.StatusOK, 200, map[string]any{
		"token":         f.access,
		"refresh_token": f.refresh,
	}, "")
}

func writeEnvelope(w http.ResponseWriter, status, code int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":    code,
		"data":    data,
		"message": message,
	})
}

// transport serves requests in process, without sockets.
func (f *fakeAPI) transport() transport.Func {
	h := f.handler()
	return func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		f.executeCalls.Add(1)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		target := req.Path
		if len(req.Query) > 0 {
			target += "?" + req.Query.Encode()
		}
		var body io.Reader = http.NoBody
		if req.Body != nil {
			body = bytes.NewReader(req.Body)
		}
		httpReq := httptest.NewRequest(req.Method, target, body).WithContext(ctx)
		for k, vs := range req.Header {
			for _, v := range vs {
				httpReq.Header.Add(k, v)
			}
		}

		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{
			Method: req.Method,
			Path:   req.Path,
			Query:  req.Query.Encode(),
			Auth:   req.Header.Get("Authorization"),
			ReqID:  req.Header.Get("X-Request-ID"),
			Body:   string(req.Body),
		})
		f.mu.Unlock()

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httpReq)
		return &transport.Response{
			StatusCode: rec.Code,
			Header:     rec.Header(),
			Body:       rec.Body.Bytes(),
		}, nil
	}
}

func (f *fakeAPI) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

func (f *fakeAPI) requestsTo(path string) []recordedRequest {
	var out []recordedRequest
	for _, r := range f.recorded() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

type testClientOption func(*Builder)

func withConfig(mut func(*Config)) testClientOption {
	return func(b *Builder) {
		cfg := b.config
		mut(&cfg)
		b.WithConfig(cfg)
	}
}

func newTestClient(t *testing.T, api *fakeAPI, initial session.Session, opts ...testClientOption) (*Client, *session.MemoryStore, *notify.Recorder) {
	t.Helper()
	store := session.NewMemoryStore(initial)
	rec := &notify.Recorder{}
	b := New().
		WithTransport(api.transport()).
		WithSessionStore(store).
		WithNotifier(rec).
		WithMetricsEnabled(true)
	for _, opt := range opts {
		opt(b)
	}
	c, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(c.Close)
	return c, store, rec
}

func signedIn(access, refresh string) session.Session {
	return session.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		UserID:       "42",
		Username:     "alice",
		LoggedIn:     true,
	}
}

//go:build integration
// +build integration

package test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/authpipe"
	"github.com/MrEthical07/authpipe/jwt"
	"github.com/MrEthical07/authpipe/notify"
	"github.com/MrEthical07/authpipe/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newIntegrationStore(t *testing.T, profile string) (*session.RedisStore, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := session.NewRedisStore(rdb, "arp", profile, time.Hour)

	return store, mr, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

// movieServer verifies access tokens with a jwt.Issuer and rotates the refresh
// token on every successful refresh.
type movieServer struct {
	mu        sync.Mutex
	issuer    *jwt.Issuer
	refresh   string
	gen       int
	refreshes atomic.Int32
	srv       *httptest.Server
}

func newMovieServer(t *testing.T) *movieServer {
	t.Helper()
	m := &movieServer{refresh: "refresh-0"}
	m.rotateIssuer(t)
	m.srv = httptest.NewServer(m)
	t.Cleanup(m.srv.Close)
	return m
}

// rotateIssuer invalidates every access token issued so far.
func (m *movieServer) rotateIssuer(t *testing.T) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	iss, err := jwt.NewIssuer([]byte(strings.Repeat("k", 24)+string(rune('a'+m.gen))), time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}
	m.issuer = iss
}

func (m *movieServer) signedIn(t *testing.T) authpipe.Session {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, err := m.issuer.Issue("7")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	return authpipe.Session{AccessToken: tok, RefreshToken: m.refresh, UserID: "7", Username: "neo", LoggedIn: true}
}

func (m *movieServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	write := func(code int, data any, msg string) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"code": code, "data": data, "msg": msg})
	}

	switch r.URL.Path {
	case authpipe.DefaultRefreshPath:
		m.refreshes.Add(1)
		var body struct {
			ID           int    `json:"id"`
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID != 7 {
			write(400, nil, "bad refresh body")
			return
		}
		if body.RefreshToken != m.refresh {
			write(401, nil, "refresh token revoked")
			return
		}
		tok, _ := m.issuer.Issue("7")
		m.refresh = "refresh-" + tok[len(tok)-6:]
		write(200, map[string]string{"access_token": tok, "refresh_token": m.refresh}, "")
	case "/movie/list":
		claims, err := m.issuer.Verify(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		if err != nil {
			write(401, nil, "")
			return
		}
		write(200, map[string]any{
			"items":    []map[string]string{{"title": "The Matrix", "owner": claims.UserID()}},
			"total":    1,
			"current":  1,
			"pageSize": 10,
		}, "")
	default:
		http.NotFound(w, r)
	}
}

func newClient(t *testing.T, baseURL string, store authpipe.SessionStore) (*authpipe.Client, *notify.Recorder) {
	t.Helper()
	cfg := authpipe.DefaultConfig()
	cfg.Transport.BaseURL = baseURL
	rec := &notify.Recorder{}
	c, err := authpipe.New().
		WithConfig(cfg).
		WithSessionStore(store).
		WithNotifier(rec).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(c.Close)
	return c, rec
}

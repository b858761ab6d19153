package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authpipe"
	"github.com/MrEthical07/authpipe/jwt"
	"github.com/MrEthical07/authpipe/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		callers   = flag.Int("callers", 64, "concurrent callers per round")
		rounds    = flag.Int("rounds", 50, "token expiry rounds")
		latency   = flag.Duration("refresh-latency", 20*time.Millisecond, "artificial refresh endpoint latency")
		redisAddr = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix    = flag.String("prefix", "arp", "session key prefix")
	)
	flag.Parse()

	if *callers <= 0 || *rounds <= 0 {
		fmt.Fprintln(os.Stderr, "callers and rounds must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		rdb     redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = rdb.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = rdb.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	api, err := newRotatingAPI(*latency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fake api: %v\n", err)
		os.Exit(1)
	}
	srv := httptest.NewServer(api)
	defer srv.Close()

	store := session.NewRedisStore(rdb, *prefix, "loadtest", time.Hour)
	access, refresh := api.initial()
	if err := store.Set(ctx, session.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		UserID:       "42",
		Username:     "loadtest",
		LoggedIn:     true,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "seed session: %v\n", err)
		os.Exit(1)
	}

	cfg := authpipe.DefaultConfig()
	cfg.Transport.BaseURL = srv.URL
	client, err := authpipe.New().
		WithConfig(cfg).
		WithSessionStore(store).
		WithMetricsEnabled(true).
		WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build client: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	stats := runRounds(ctx, client, api, *rounds, *callers)

	snap := client.MetricsSnapshot()
	fmt.Println("---- results ----")
	printStats("call", stats)
	fmt.Printf("auth failures=%d refreshes=%d queued=%d replays=%d stale-replays=%d redirects=%d\n",
		snap.Counters[authpipe.MetricAuthFailure],
		api.refreshes.Load(),
		snap.Counters[authpipe.MetricWaiterQueued],
		snap.Counters[authpipe.MetricReplayIssued],
		snap.Counters[authpipe.MetricStaleTokenReplay],
		snap.Counters[authpipe.MetricLoginRedirect],
	)
	if got := api.refreshes.Load(); got > int64(*rounds) {
		fmt.Fprintf(os.Stderr, "expected at most %d refreshes, got %d\n", *rounds, got)
		os.Exit(1)
	}
}

// runRounds expires the access token, then fires callers concurrent calls that all
// hit a 401 and share one refresh.
func runRounds(ctx context.Context, client *authpipe.Client, api *rotatingAPI, rounds, callers int) phaseStats {
	var (
		failures  int64
		latencies = make([]time.Duration, 0, rounds*callers)
		mu        sync.Mutex
	)

	start := time.Now()
	for r := 0; r < rounds; r++ {
		if err := api.expire(); err != nil {
			fmt.Fprintf(os.Stderr, "expire: %v\n", err)
			os.Exit(1)
		}

		var wg sync.WaitGroup
		for w := 0; w < callers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				t0 := time.Now()
				_, err := client.Get(ctx, "/movie/list", nil)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}()
		}
		wg.Wait()
	}
	return computeStats(time.Since(start), latencies, failures)
}

// rotatingAPI accepts access tokens signed by the current issuer only. expire
// replaces the issuer, so every outstanding token is rejected until refreshed.
type rotatingAPI struct {
	mu        sync.Mutex
	issuer    *jwt.Issuer
	refresh   string
	latency   time.Duration
	refreshes atomic.Int64
}

func newRotatingAPI(latency time.Duration) (*rotatingAPI, error) {
	a := &rotatingAPI{latency: latency}
	if err := a.expire(); err != nil {
		return nil, err
	}
	a.refresh = randomToken()
	return a, nil
}

func (a *rotatingAPI) initial() (string, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	tok, _ := a.issuer.Issue("42")
	return tok, a.refresh
}

func (a *rotatingAPI) expire() error {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return err
	}
	iss, err := jwt.NewIssuer(secret, time.Hour)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.issuer = iss
	a.mu.Unlock()
	return nil
}

func (a *rotatingAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case authpipe.DefaultRefreshPath:
		a.handleRefresh(w, r)
	case "/movie/list":
		a.mu.Lock()
		iss := a.issuer
		a.mu.Unlock()
		if _, err := iss.Verify(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")); err != nil {
			writeEnvelope(w, 401, nil, "token expired")
			return
		}
		writeEnvelope(w, 200, map[string]any{"items": []string{}, "total": 0, "current": 1, "pageSize": 20}, "")
	default:
		http.NotFound(w, r)
	}
}

func (a *rotatingAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	a.refreshes.Add(1)
	var body struct {
		ID           json.Number `json:"id"`
		RefreshToken string      `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeEnvelope(w, 400, nil, "bad refresh body")
		return
	}
	time.Sleep(a.latency)

	a.mu.Lock()
	defer a.mu.Unlock()
	if body.RefreshToken != a.refresh {
		writeEnvelope(w, 401, nil, "refresh token revoked")
		return
	}
	tok, err := a.issuer.Issue(body.ID.String())
	if err != nil {
		writeEnvelope(w, 500, nil, "")
		return
	}
	a.refresh = randomToken()
	writeEnvelope(w, 200, map[string]string{"token": tok, "refresh_token": a.refresh}, "")
}

func writeEnvelope(w http.ResponseWriter, code int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"code": code, "data": data, "message": message})
}

func randomToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x", b)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

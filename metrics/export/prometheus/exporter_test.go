package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/authpipe"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot authpipe.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() authpipe.MetricsSnapshot { return f.snapshot }
func (f fakeSource) EventsDropped() uint64                     { return f.dropped }

func populated() fakeSource {
	return fakeSource{
		snapshot: authpipe.MetricsSnapshot{
			Counters: map[authpipe.MetricID]uint64{
				authpipe.MetricRefreshStarted: 1,
				authpipe.MetricWaiterQueued:   7,
			},
			Histograms: map[authpipe.MetricID][]uint64{
				authpipe.MetricRequestLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	}
}

func TestCollectEmptyWhenMetricsDisabled(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: authpipe.MetricsSnapshot{
			Counters:   map[authpipe.MetricID]uint64{},
			Histograms: map[authpipe.MetricID][]uint64{},
		},
	})

	if n := testutil.CollectAndCount(c); n != 0 {
		t.Fatalf("expected no metrics for disabled source, got %d", n)
	}
}

func TestCollectCountersAndHistogram(t *testing.T) {
	c := NewCollectorFromSource(populated())

	expected := `
# HELP authpipe_waiter_queued_total Calls queued behind an in-flight refresh.
# TYPE authpipe_waiter_queued_total counter
authpipe_waiter_queued_total 7
# HELP authpipe_events_dropped_total Diagnostic events dropped due to dispatcher backpressure.
# TYPE authpipe_events_dropped_total counter
authpipe_events_dropped_total 2
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"authpipe_waiter_queued_total", "authpipe_events_dropped_total"); err != nil {
		t.Fatal(err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "authpipe_request_latency_seconds" {
			continue
		}
		h := mf.GetMetric()[0].GetHistogram()
		if h.GetSampleCount() != 36 {
			t.Fatalf("expected 36 samples, got %d", h.GetSampleCount())
		}
		if b := h.GetBucket()[0]; b.GetUpperBound() != 0.005 || b.GetCumulativeCount() != 1 {
			t.Fatalf("unexpected first bucket %v", b)
		}
		return
	}
	t.Fatal("latency histogram not gathered")
}

func TestCollectSkipsMissingHistogram(t *testing.T) {
	src := populated()
	delete(src.snapshot.Histograms, authpipe.MetricRequestLatency)
	c := NewCollectorFromSource(src)

	if err := testutil.CollectAndCompare(c, strings.NewReader(""), "authpipe_request_latency_seconds"); err != nil {
		t.Fatal(err)
	}
}

func TestHandlerServesExposition(t *testing.T) {
	srv := httptest.NewServer(Handler(NewCollectorFromSource(populated())))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	out := string(body)
	if !strings.Contains(out, "authpipe_refresh_started_total 1") {
		t.Fatalf("expected refresh_started counter, got:\n%s", out)
	}
	if !strings.Contains(out, `authpipe_request_latency_seconds_bucket{le="+Inf"} 36`) {
		t.Fatalf("expected +Inf cumulative bucket, got:\n%s", out)
	}
}

func TestCollectorFromClient(t *testing.T) {
	client, err := authpipe.New().WithMetricsEnabled(true).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer client.Close()

	if n := testutil.CollectAndCount(NewCollector(client), "authpipe_request_total"); n != 1 {
		t.Fatalf("expected request_total series, got %d", n)
	}
}

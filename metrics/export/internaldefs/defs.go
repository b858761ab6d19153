package internaldefs

import (
	"github.com/MrEthical07/authpipe"
)

type CounterDef struct {
	ID   authpipe.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   authpipe.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in MetricID order.
var CounterDefs = []CounterDef{
	{ID: authpipe.MetricRequestTotal, Name: "authpipe_request_total", Help: "Physical request attempts, including replays and refresh calls."},
	{ID: authpipe.MetricRequestSuccess, Name: "authpipe_request_success_total", Help: "Attempts that produced a success envelope."},
	{ID: authpipe.MetricRequestFailure, Name: "authpipe_request_failure_total", Help: "Attempts that produced a classified failure."},
	{ID: authpipe.MetricAuthFailure, Name: "authpipe_auth_failure_total", Help: "Attempts rejected as unauthenticated."},
	{ID: authpipe.MetricNetworkFailure, Name: "authpipe_network_failure_total", Help: "Attempts that failed before a response was received."},
	{ID: authpipe.MetricTimeoutFailure, Name: "authpipe_timeout_failure_total", Help: "Attempts that exceeded their deadline."},
	{ID: authpipe.MetricServerFailure, Name: "authpipe_server_failure_total", Help: "Attempts answered with a 5xx status or code."},
	{ID: authpipe.MetricRefreshStarted, Name: "authpipe_refresh_started_total", Help: "Refresh calls started."},
	{ID: authpipe.MetricRefreshSuccess, Name: "authpipe_refresh_success_total", Help: "Refresh calls that produced a new access token."},
	{ID: authpipe.MetricRefreshFailure, Name: "authpipe_refresh_failure_total", Help: "Refresh calls that failed."},
	{ID: authpipe.MetricWaiterQueued, Name: "authpipe_waiter_queued_total", Help: "Calls queued behind an in-flight refresh."},
	{ID: authpipe.MetricReplayIssued, Name: "authpipe_replay_issued_total", Help: "Calls replayed with a refreshed token."},
	{ID: authpipe.MetricWaiterRejected, Name: "authpipe_waiter_rejected_total", Help: "Queued calls rejected by a failed refresh."},
	{ID: authpipe.MetricWaiterAbandoned, Name: "authpipe_waiter_abandoned_total", Help: "Queued calls whose caller gave up."},
	{ID: authpipe.MetricRetryExhausted, Name: "authpipe_retry_exhausted_total", Help: "Replayed calls rejected as unauthenticated again."},
	{ID: authpipe.MetricStaleTokenReplay, Name: "authpipe_stale_token_replay_total", Help: "Calls replayed with a token refreshed after they were sent."},
	{ID: authpipe.MetricSessionCleared, Name: "authpipe_session_cleared_total", Help: "Sessions cleared after an unrecoverable auth failure."},
	{ID: authpipe.MetricLoginRedirect, Name: "authpipe_login_redirect_total", Help: "Sign-in prompts raised."},
}

var HistogramDefs = []HistogramDef{
	{ID: authpipe.MetricRequestLatency, Name: "authpipe_request_latency_seconds", Help: "Request attempt latency histogram."},
}

// HistogramBounds are the upper bounds in seconds of the first seven buckets; the
// eighth bucket is +Inf.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero-filling
// missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

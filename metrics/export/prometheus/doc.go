// Package prometheus exposes authpipe client metrics as a prometheus.Collector.
//
// Counters are named authpipe_*_total; the only histogram is
// authpipe_request_latency_seconds, present when latency histograms are enabled.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry. Callers register the
//     Collector or mount Handler.
//   - Mutate client state.
package prometheus

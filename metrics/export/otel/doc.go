// Package otel publishes authpipe client metrics through an OpenTelemetry meter.
//
// Counters become Int64ObservableCounters with the same names as the Prometheus
// exporter. The latency histogram is exposed as one cumulative gauge per bucket
// plus a count gauge.
package otel

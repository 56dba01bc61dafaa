// Package prometheus provides Prometheus collectors for tokenkit metrics.
//
// [NewPrometheusExporter] accepts a [tokenkit.Service] and exposes an [http.Handler]
// that renders all tokenkit counters and histograms in Prometheus text exposition
// format. Counter names are prefixed tokenkit_*_total; the single histogram is
// tokenkit_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate service state.
package prometheus

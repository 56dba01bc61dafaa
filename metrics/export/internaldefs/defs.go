package internaldefs

import (
	tokenkit "github.com/dkovalenko/tokenkit"
)

// CounterDef binds a counter ID to its stable exported name and help text.
type CounterDef struct {
	ID   tokenkit.MetricID
	Name string
	Help string
}

// HistogramDef binds a histogram ID to its stable exported name and help text.
type HistogramDef struct {
	ID   tokenkit.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a fixed order. Exporters
// iterate this slice so that all backends emit identical metric names.
var CounterDefs = []CounterDef{
	{ID: tokenkit.MetricIssueSuccess, Name: "tokenkit_issue_success_total", Help: "Successfully issued token pairs."},
	{ID: tokenkit.MetricIssueFailure, Name: "tokenkit_issue_failure_total", Help: "Failed token pair issuances."},
	{ID: tokenkit.MetricValidateSuccess, Name: "tokenkit_validate_success_total", Help: "Access tokens that passed validation."},
	{ID: tokenkit.MetricValidateFailure, Name: "tokenkit_validate_failure_total", Help: "Access tokens rejected by signature, expiry, or shape checks."},
	{ID: tokenkit.MetricValidateDenied, Name: "tokenkit_validate_denied_total", Help: "Access tokens rejected by the denylist."},
	{ID: tokenkit.MetricRotateSuccess, Name: "tokenkit_rotate_success_total", Help: "Successful refresh rotations."},
	{ID: tokenkit.MetricRotateFailure, Name: "tokenkit_rotate_failure_total", Help: "Failed refresh rotations."},
	{ID: tokenkit.MetricRotateReuseDetected, Name: "tokenkit_rotate_reuse_detected_total", Help: "Detected refresh token reuses."},
	{ID: tokenkit.MetricRotateGraceReplay, Name: "tokenkit_rotate_grace_replay_total", Help: "Duplicate rotations served from the grace window."},
	{ID: tokenkit.MetricRevokeSuccess, Name: "tokenkit_revoke_success_total", Help: "Single refresh token revocations."},
	{ID: tokenkit.MetricRevokeAll, Name: "tokenkit_revoke_all_total", Help: "Revoke-all operations."},
	{ID: tokenkit.MetricAccessDenied, Name: "tokenkit_access_denied_total", Help: "Access token jtis added to the denylist."},
}

// HistogramDefs lists every exported histogram in a fixed order.
var HistogramDefs = []HistogramDef{
	{ID: tokenkit.MetricValidateLatency, Name: "tokenkit_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramBounds are the upper bounds, in seconds, of each latency bucket.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix mirrors HistogramBounds for backends that cannot
// represent bounds as label values.
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

// NormalizeBuckets fixes a raw snapshot slice to the exported bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form
// Prometheus and OTel both expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

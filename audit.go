package tokenkit

import (
	"io"

	"github.com/dkovalenko/tokenkit/internal/audit"
)

// Audit sinks, re-exported so callers can wire them through the builder.
type (
	NoOpSink       = audit.NoOpSink
	ChannelSink    = audit.ChannelSink
	JSONWriterSink = audit.JSONWriterSink
)

// NewChannelSink returns a sink backed by a buffered channel. Useful for
// tests and for callers that forward events to their own pipeline.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink that writes one JSON object per line.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// Audit event types emitted by the service.
const (
	AuditEventIssue         = "token.issue"
	AuditEventValidate      = "token.validate"
	AuditEventRotate        = "token.rotate"
	AuditEventRotateReplay  = "token.rotate.replay"
	AuditEventReuseDetected = "token.reuse_detected"
	AuditEventRevoke        = "token.revoke"
	AuditEventRevokeAll     = "token.revoke_all"
	AuditEventAccessDenied  = "token.access_denied"
	AuditEventOneTimeRevoke = "token.one_time_revoke"
)

// Package tokenkit is a token lifecycle subsystem: JWT access-token issuance
// and validation, opaque rotating refresh tokens with reuse detection, and
// TTL-bounded revocation denylisting.
//
// The package is designed for concurrent server workloads: Service methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// tokenkit is the public surface. It exposes [Service], [Builder], [Config],
// and value types (TokenPair, MetricsSnapshot, AuditEvent). All internal
// coordination — flow orchestration, token encoding, audit dispatch — lives
// under internal/ and is never exported. The store and denylist contracts are
// public so deployments can supply their own backends.
//
// # What this package must NOT do
//
//   - Authenticate users. Primary authentication (passwords, MFA, SSO)
//     happens elsewhere; tokenkit starts where a verified user ID ends.
//   - Persist raw refresh-token secrets. Only their SHA-256 digest is ever
//     written to the store.
//   - Consult the refresh-token store on the access validation path.
//
// # Performance contract
//
// ValidateAccess is the hot path. It performs signature verification plus a
// single denylist probe and never queries the refresh-token store. Issuance,
// rotation, and revocation are allowed store round-trips.
package tokenkit

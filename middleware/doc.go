// Package middleware exposes HTTP middleware adapters built on top of
// tokenkit.Service validation.
//
// # Guards
//
//   - [Guard] — bearer token validation, claims injected into context.
//   - [RequirePermissions] — validation plus a permission check on the claims.
//
// Each guard reads the Authorization header, calls Service.ValidateAccess, and
// injects validated claims into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Service calls. It does NOT
// implement token logic itself — all decisions are delegated to
// Service.ValidateAccess.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Service).
//   - Access the store or denylist (Service handles I/O).
//   - Make authorization decisions beyond pass/reject from the claims.
package middleware

// Package denylist provides the revocation denylist for access tokens:
// a TTL-bounded cache of jti values revoked before their natural expiry.
//
// Two implementations are provided: [Redis] for multi-instance deployments
// where the denylist must be shared, and [Memory] for single-instance use.
// Which one a deployment gets is a configuration choice, never a code change.
package denylist

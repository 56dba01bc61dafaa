// Package jwt manages access-token issuance and verification using configured
// signing keys and strict validation semantics suitable for low-latency
// authentication paths. It is a pure codec: no storage, no revocation state.
package jwt

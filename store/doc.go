// Package store provides relational persistence for refresh-token records and
// the atomic claim operation at the heart of rotation with reuse detection.
//
// # Claim semantics
//
// ClaimForRotation is a single conditional UPDATE with a row-count check. Two
// concurrent rotation attempts for one jti therefore resolve to exactly one
// Claimed outcome; the loser observes ClaimAlreadyRevoked (or ClaimNotFound
// if the row was expired or never existed).
//
// # Architecture boundaries
//
// This package owns the refresh_tokens table and nothing else. It does NOT
// decide how reuse is punished — the cascade is the Service's call — and it
// never sees plaintext refresh secrets, only their hashes.
package store

// Package internal contains helper utilities that are intentionally private to
// tokenkit, including refresh-token encoding and secret hashing.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - flows — pure-function flow orchestrators for every Service operation
//
// # What this package must NOT do
//
//   - Export types that appear in the public tokenkit API.
//   - Be imported by any package outside the tokenkit module.
package internal

// Package goGuard adds server-side state to stateless JWTs: every issued token is recorded
// in a per-subject ledger keyed by device (user agent) and token type, so tokens can be
// revoked individually, per device or all at once, and an operator-declared incident
// invalidates everything issued before it.
//
// Engine methods are safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// goGuard is the public surface. It exposes [Engine], [Builder], [Config] and value types.
// Token encoding lives in jwt, key material in keys, the ledger and its backends in ledger,
// and the incident clock in incident. HTTP adapters live in middleware.
//
// # What this package must NOT do
//
//   - Store user identities; subjects are resolved through a [UserDirectory].
//   - Act as an OAuth or OIDC server.
//   - Import middleware or any package that re-imports goGuard.
package goGuard

// Package middleware adapts goGuard.Engine.Authenticate to net/http.
//
// # Guards
//
//   - [Guard]: authenticates one token type and injects the result into the request context.
//   - [RequireAccess] and [RequireRefresh]: shortcuts for the two token types.
//
// The guard reads the User-Agent header, the Authorization bearer token (or the refresh
// cookie when the refresh mechanism is "cookie") and the access-token verifier cookie.
// Failures are written as JSON with the status from [StatusFor].
//
// Sub-package ginguard offers the same guard for gin.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access the ledger (Engine handles I/O).
package middleware

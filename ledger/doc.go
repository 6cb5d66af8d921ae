// Package ledger keeps the per-subject issued-token ledger.
//
// Each subject owns one versioned Record holding at most one Entry per (user agent, token type).
// Mutations run load, mutate and compare-and-swap with optimistic retry, so concurrent writers
// on the same subject never lose updates. Records never expire and entries are never deleted.
//
// Backends implement Store (and incident.Store for the shared incident clock): MemoryStore and
// RedisStore live here, durable SQL and DynamoDB stores live in sub-packages.
package ledger

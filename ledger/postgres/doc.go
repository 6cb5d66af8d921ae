// Package postgres is a durable ledger.Backend on PostgreSQL.
//
// Records live in issued_token_ledgers with an optimistic version column; the incident clock
// is the single row of incident_clock. Schema migrations are embedded and applied by Migrate.
package postgres

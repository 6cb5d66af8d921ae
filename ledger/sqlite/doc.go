// Package sqlite is a single-node durable ledger.Backend on SQLite (modernc.org/sqlite, no cgo).
package sqlite

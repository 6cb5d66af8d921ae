// Package internal contains helpers that are private to goGuard: secure random strings and
// user agent fingerprints.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher, Sink implementations, ULID ids)
//   - backend: opens the ledger backend named by the settings
//   - envconfig: process settings for commands (.env, environment, flags)
//   - logging: logrus construction from settings
//
// # What this package must NOT do
//
//   - Export types that appear in the public goGuard API.
package internal

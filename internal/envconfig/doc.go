// Package envconfig loads the settings shared by the goGuard commands from .env files,
// the environment and flags.
package envconfig

// Package incident maintains the process-wide incident clock. Every token issued at or before
// the latest incident time is considered compromised.
package incident

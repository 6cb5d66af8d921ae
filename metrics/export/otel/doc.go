// Package otel publishes goGuard metrics through an OpenTelemetry meter using observable
// counters and gauges read from one engine snapshot per collection.
package otel

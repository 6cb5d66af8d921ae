// Package internaldefs holds the metric names, help strings and bucket labels shared by
// the Prometheus and OTel exporters, derived from goGuard's metric table.
package internaldefs

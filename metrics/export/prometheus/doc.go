// Package prometheus renders goGuard counters and the authenticate latency histogram in
// Prometheus text exposition format. Nothing is registered globally; mount Handler where
// the scraper can reach it.
package prometheus

// Package metrics exposes the server's operational state at /metrics in
// Prometheus text exposition format, for scraping alongside the systems the
// fleet manages.
package metrics

// Package observability turns panel lifecycle hooks into Prometheus metrics
// and structured log lines.
package observability

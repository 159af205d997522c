// Package prometheus exposes the linking engine's outcome counters in
// Prometheus text exposition format, either as a rendered string or as an
// http.Handler for a scrape endpoint.
package prometheus

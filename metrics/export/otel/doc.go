// Package otel bridges the linking engine's outcome counters to an
// OpenTelemetry Meter via observable instruments.
package otel

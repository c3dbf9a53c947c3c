// Package observes sets up OpenTelemetry tracing for repository spans.
package observes

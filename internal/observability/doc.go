// Package observability holds process metrics, HTTP request middleware, and
// opt-in OpenTelemetry trace export.
package observability

// Package observability provides metrics and tracing for loctrack.
//
// Features:
//   - Metrics via OpenTelemetry (saves, flushes, flush latency, blob size,
//     status transitions)
//   - Tracing via OpenTelemetry (spans around snapshot flush and load)
//
// Both use the global OTel providers and have no-op implementations for
// when they are disabled. Logging is plain log/slog and lives with the
// components that log.
package observability

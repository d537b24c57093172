// Package instrumentation wires up OpenTelemetry metrics for the server.
//
// The Provider owns the meter provider and exports through the Prometheus
// exporter, which the metrics server scrapes via the default registry. The
// Metrics recorder covers MCP tool invocations, TickTick API operations and
// OAuth token refreshes. A disabled provider hands out no-op recorders so
// callers never branch on instrumentation state.
package instrumentation

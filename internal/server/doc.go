// Package server holds the shared runtime pieces of the MCP server: the
// ServerContext that tool handlers receive (TickTick client, view engine,
// logger, metrics), Kubernetes-style health endpoints, and the dedicated
// Prometheus metrics server.
package server

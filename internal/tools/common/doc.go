// Package common provides shared helpers for MCP tool handlers, currently the
// instrumented handler wrapper that records metrics for every invocation.
package common

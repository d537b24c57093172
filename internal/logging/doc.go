// Package logging provides slog helpers used across the server: consistent
// attribute keys, a constructor for the shared text handler, and sanitizers
// for values that must never appear in logs verbatim (OAuth tokens).
package logging

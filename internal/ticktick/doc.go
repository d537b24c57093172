// Package ticktick provides an authenticated, rate-limited client for the
// TickTick Open API.
//
// The client owns the OAuth token pair for the process lifetime and refreshes
// the access token in place when the API rejects it. Concurrent callers that
// observe the same rejected token coalesce into a single refresh exchange;
// TickTick invalidates a refresh token on first use, so issuing two concurrent
// refreshes with the same refresh token would permanently lock one caller out.
//
// Outbound calls pass through a process-wide pacing gate (default 200ms
// between calls) and a per-call retry state machine:
//   - 401/403: one token refresh, one retry; a second rejection is terminal
//   - 429 and 5xx: exponential backoff from the base delay, capped, up to
//     three retries
//   - other 4xx: no retry
//   - network failures: one retry after a short fixed delay
//
// Every error returned by the client is a *Error carrying a machine-readable
// Kind; transport-level errors never leak to callers.
//
// Task and project state is never cached: each operation reflects the remote
// system at call time. Derived views (due today, overdue, GTD categories) are
// built on AllTasks, which concatenates the task sets of all open projects,
// and filtered locally by the views package.
package ticktick

// Package views computes derived task views that the TickTick API has no
// native filter for: due today/tomorrow/in N days, due this week, overdue,
// text search, and the GTD "engaged" and "next" categories.
//
// The engine works over an in-memory task list and performs no I/O. Views are
// returned sorted by due date ascending (undated tasks last) with priority
// descending as the secondary key; the ordering is deterministic, with the
// original fetch order preserved for equal keys.
package views

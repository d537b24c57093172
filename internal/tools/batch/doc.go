// Package batch provides helpers for batch task creation: parsing the task
// array argument and formatting per-item outcomes as a JSON report.
package batch

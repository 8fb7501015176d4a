// Package database provides SQLite-based storage for export run
// history. Each time a report is parsed, a run record is stored with
// the aggregate totals and the full report as JSON, so later
// invocations can list history and compare proof progress between runs.
package database

// Package history records each export run in PostgreSQL.
//
// A row is inserted into export_runs when a run starts and updated when it
// finishes. Recording is best effort: callers log history failures and
// carry on with the export.
package history

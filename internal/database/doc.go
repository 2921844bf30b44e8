// Package database opens the run-history database: a PostgreSQL pool or a
// local SQLite file.
package database

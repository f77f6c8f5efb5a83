// Package jobs persists analysis jobs and enforces their lifecycle.
//
// A job is created pending, and is finalized exactly once as completed (with
// its result bytes) or failed (with an error message). Worker leases
// (claimed_at, last_heartbeat) live on pending rows only and are never
// reported as a separate public state. Result bytes are stored verbatim so a
// read returns exactly what was written.
//
// Two backends share one schema: SQLite through modernc.org/sqlite (the
// default, one file under the data directory) and PostgreSQL through lib/pq.
package jobs

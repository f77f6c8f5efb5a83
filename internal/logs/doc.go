// Package logs reads the daemon log file for the /api/logs endpoint.
//
// Reads are offset based so clients can poll for new lines: a negative
// offset returns the last N lines, a non-negative offset returns whatever
// was appended since. Lines can be narrowed to a single job in either the
// JSON or console log format.
package logs

// Package preflight provides readiness checks for the external services and
// filesystem paths the analysis daemon depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and logs every failed check as a
//     warning. Jobs are still accepted because a detector may come up later.
//   - The CLI "vidtrack preflight" command prints the same results as a table
//     and exits non-zero when a check fails.
//
// Checks for disabled features are skipped.
package preflight

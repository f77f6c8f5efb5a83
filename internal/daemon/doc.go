// Package daemon coordinates the long-running vidtrack process.
//
// It wires configuration, the job store, the workflow manager, and the HTTP
// API into a single lifecycle with flock-based locking to prevent multiple
// instances from sharing one data directory. On start it releases leases left
// behind by an unclean shutdown so interrupted jobs run again, and removes their
// leftover work directories. While running it prunes old log files, orphaned
// work directories, and finished jobs on a fixed interval.
//
// Keep orchestration logic here: analysis steps live in pipeline and the
// worker loop lives in workflow.
package daemon

// Package workflow runs analysis jobs on a pool of workers.
//
// The Manager starts a fixed number of workers. Each worker reclaims stale
// leases, claims the oldest pending job from the store, runs it through the
// analysis Runner while refreshing its heartbeat, and then records the job as
// completed or failed. A failed or completed job is never run again.
//
// Submission is decoupled from execution: the HTTP boundary only creates the
// job row and calls Notify, so a request never blocks on analysis. The
// manager also publishes queue-level notifications and feeds worker and
// queue gauges into the metrics registry.
package workflow

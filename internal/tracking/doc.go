// Package tracking associates per-frame object detections into persistent
// track identities using greedy IoU matching.
//
// A Tracker belongs to exactly one job. Tracks age by one on every Update,
// are evicted once their age exceeds the configured maximum, and are matched
// to detections in detection order. Labels never participate in matching, so
// a track may continue across a label change when boxes overlap.
package tracking

// Package analysis reduces a job's detections and transcript into the single
// Result document persisted by the job store.
package analysis

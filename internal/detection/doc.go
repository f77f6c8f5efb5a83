// Package detection runs face and object detectors over a job's sampled
// frames and feeds object detections through a per-job tracker.
//
// Detector implementations are pluggable through FaceDetector and
// ObjectDetector. Client talks to HTTP inference services; frames larger than
// the configured side limit are downscaled before upload and the returned
// boxes are mapped back to source pixel coordinates.
package detection

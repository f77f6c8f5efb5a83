// Package pipeline runs one analysis job end to end.
//
// A Pipeline executes four stage handlers in order on a per-job stage.Run:
// prepare (ffmpeg frames and audio), detect (per-frame detectors feeding the
// job's own tracker), transcribe (speech to text), and aggregate (primary
// label, translation, Result encoding). Any failure in the first three stages
// fails the job. Translation problems in aggregate never do.
//
// FromConfig wires the production adapters; New accepts arbitrary
// collaborators so the workflow tests and `vidtrack analyze` can substitute
// their own.
package pipeline

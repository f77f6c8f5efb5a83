// Package media turns an uploaded video into sampled frame images and a mono
// audio track using ffmpeg and ffprobe.
//
// Key types:
//   - Preparer: the contract the pipeline depends on
//   - FFmpegPreparer: the ffmpeg-backed implementation
//   - Frame, Prepared: preparation output
//   - Probe: parsed ffprobe report used to validate inputs
package media

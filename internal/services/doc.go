// Package services defines shared utilities consumed by the pipeline stages
// and external collaborator adapters.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, worker slots, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures from media
//     preparation, detection, transcription, and translation are classified
//     the same way everywhere.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability) stays uniform across the pipeline.
package services

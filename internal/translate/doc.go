// Package translate renders short detector labels into the configured target
// language through an OpenAI-compatible chat completion endpoint.
//
// Translations are cached per (target, text) pair for the life of the client
// because the detector vocabulary is small and repeats across jobs.
package translate

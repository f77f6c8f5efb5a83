// Package language normalizes the language codes used for transcription
// hints and label translation targets.
//
// Parsing and English display names come from golang.org/x/text; a small
// alias table covers ISO 639-2 bibliographic codes.
package language

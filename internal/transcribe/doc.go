// Package transcribe converts a job's extracted audio into text.
//
// OpenAI calls the Whisper transcription API through go-openai. WhisperX runs
// the whisperx CLI through uvx and reads its JSON segments.
package transcribe

package transcribe

import "context"

// Transcriber turns an audio file into text. language is a hint in any form
// the language package understands; empty means auto-detect.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (string, error)
}

package models

import "context"

// TranscriptionEngine turns an audio file into text.
// Never call a specific engine directly; always inject this interface.
type TranscriptionEngine interface {
	// Transcribe returns the full text spoken in the audio file. An empty
	// language lets the engine detect it.
	Transcribe(ctx context.Context, audioPath, language string) (string, error)
	// Name returns the engine identifier stored on the transcript (e.g., "whisper-1").
	Name() string
}

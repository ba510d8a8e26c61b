package transcribe

import "errors"

var (
	ErrEngineUnavailable    = errors.New("transcription engine unavailable")
	ErrTranscriptionTimeout = errors.New("transcription timeout")
)

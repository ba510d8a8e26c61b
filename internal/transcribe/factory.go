// Package transcribe selects the speech-to-text engine used by the
// transcription stage.
package transcribe

import (
	"fmt"

	"github.com/kiranshivaraju/vslpipeline/internal/config"
	"github.com/kiranshivaraju/vslpipeline/internal/transcribe/openai"
	"github.com/kiranshivaraju/vslpipeline/internal/transcribe/whisperx"
	"github.com/kiranshivaraju/vslpipeline/pkg/models"
)

// NewEngine constructs the engine named in config. Called once at worker startup.
// The "mock" engine is resolved by the caller; its package imports this one.
func NewEngine(cfg config.TranscriptionConfig) (models.TranscriptionEngine, error) {
	switch cfg.Engine {
	case "openai":
		return openai.NewEngine(cfg.OpenAI), nil
	case "whisperx":
		return whisperx.NewEngine(cfg.WhisperX, nil), nil
	default:
		return nil, fmt.Errorf("unknown transcription engine %q: must be one of openai, whisperx", cfg.Engine)
	}
}

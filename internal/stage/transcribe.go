package stage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kiranshivaraju/vslpipeline/internal/media"
	"github.com/kiranshivaraju/vslpipeline/internal/store"
	"github.com/kiranshivaraju/vslpipeline/pkg/models"
)

// DegradedPrefix starts the text stored when the engine fails on a readable file.
const DegradedPrefix = "[TRANSCRIPTION ERROR]"

// Transcribe extracts audio from a stored Video and records its Transcript.
type Transcribe struct {
	store     store.Store
	extractor media.AudioExtractor
	engine    models.TranscriptionEngine
	language  string
	policy    FailurePolicy
	timeout   time.Duration
}

type TranscribeOption func(*Transcribe)

// WithLanguage passes a language hint to the engine. Empty lets it detect.
func WithLanguage(lang string) TranscribeOption {
	return func(t *Transcribe) { t.language = lang }
}

func WithFailurePolicy(p FailurePolicy) TranscribeOption {
	return func(t *Transcribe) { t.policy = p }
}

func NewTranscribe(st store.Store, extractor media.AudioExtractor, engine models.TranscriptionEngine, timeout time.Duration, opts ...TranscribeOption) *Transcribe {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	t := &Transcribe{
		store:     st,
		extractor: extractor,
		engine:    engine,
		policy:    PolicyRollback,
		timeout:   timeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transcribe) Stage() models.Stage { return models.StageTranscription }

type transcription struct {
	engine string
	text   string
}

// Run transcribes the Video with the given id and returns the Transcript id.
func (t *Transcribe) Run(ctx context.Context, videoID int64) (*Output, error) {
	var videoPath string

	return attempt(ctx, t.store, t.timeout, plan[transcription]{
		stage:        models.StageTranscription,
		resourceType: models.ResourceVideo,
		resourceID:   videoID,
		doneStatus:   models.URLStatusTranscribed,
		failStatus:   t.policy.status(),

		resolve: func(ctx context.Context, q store.Queries) (target, error) {
			v, err := q.GetVideo(ctx, videoID)
			if errors.Is(err, store.ErrNotFound) {
				return target{}, errMissingUpstream
			}
			if err != nil {
				return target{}, fmt.Errorf("loading video: %w", err)
			}
			videoPath = v.StorageKey

			u, err := q.GetURL(ctx, v.URLID)
			if err != nil {
				return target{}, fmt.Errorf("loading url: %w", err)
			}
			tgt := target{urlID: u.ID, retries: u.RetryCount(models.StageTranscription)}

			existing, err := q.LatestReadyTranscript(ctx, v.ID)
			switch {
			case err == nil:
				tgt.existingID = existing.ID
			case !errors.Is(err, store.ErrNotFound):
				return tgt, fmt.Errorf("looking up ready transcript: %w", err)
			}
			return tgt, nil
		},

		work: t.transcribe(&videoPath),

		complete: func(ctx context.Context, q store.Queries, res transcription) (int64, error) {
			tr := &models.Transcript{
				VideoID:  videoID,
				Engine:   res.engine,
				FullText: res.text,
				Status:   models.ArtifactStatusReady,
			}
			if t.language != "" {
				lang := t.language
				tr.Language = &lang
			}
			if err := q.CreateTranscript(ctx, tr); err != nil {
				return 0, fmt.Errorf("creating transcript: %w", err)
			}
			return tr.ID, nil
		},
	})
}

// transcribe returns the external operation. A missing video file or a failed
// extraction fails the stage. An engine error on a readable file is stored as
// degraded text instead, unless the stage deadline caused it.
func (t *Transcribe) transcribe(videoPath *string) func(ctx context.Context) (transcription, error) {
	return func(ctx context.Context) (transcription, error) {
		if _, err := os.Stat(*videoPath); err != nil {
			return transcription{}, fmt.Errorf("video file not found: %s", *videoPath)
		}

		audioPath, err := t.extractor.ExtractAudio(ctx, *videoPath)
		if err != nil {
			return transcription{}, fmt.Errorf("extracting audio: %w", err)
		}
		defer func() {
			if err := os.Remove(audioPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				slog.Warn("failed to remove temporary audio", "path", audioPath, "error", err)
			}
		}()

		text, err := t.engine.Transcribe(ctx, audioPath, t.language)
		if err != nil {
			if ctx.Err() != nil {
				return transcription{}, fmt.Errorf("transcribing audio: %w", err)
			}
			slog.Warn("transcription engine failed, storing degraded transcript",
				"engine", t.engine.Name(),
				"audio_path", audioPath,
				"error", err,
			)
			return transcription{
				engine: t.engine.Name() + "_error",
				text:   fmt.Sprintf("%s failed to transcribe audio %s: %v", DegradedPrefix, audioPath, err),
			}, nil
		}
		return transcription{engine: t.engine.Name(), text: text}, nil
	}
}

package stage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kiranshivaraju/vslpipeline/internal/categorize"
	"github.com/kiranshivaraju/vslpipeline/internal/store"
	"github.com/kiranshivaraju/vslpipeline/pkg/models"
)

// Categorize classifies a Transcript and upserts the VideoMetadata of its Video.
type Categorize struct {
	store      store.Store
	classifier categorize.Classifier
	timeout    time.Duration
}

func NewCategorize(st store.Store, classifier categorize.Classifier, timeout time.Duration) *Categorize {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Categorize{store: st, classifier: classifier, timeout: timeout}
}

func (c *Categorize) Stage() models.Stage { return models.StageCategorization }

// Run categorizes the Transcript with the given id and returns the metadata id.
// Ready metadata already present for the video is reused.
func (c *Categorize) Run(ctx context.Context, transcriptID int64) (*Output, error) {
	var (
		text    string
		videoID int64
	)

	return attempt(ctx, c.store, c.timeout, plan[categorize.Result]{
		stage:        models.StageCategorization,
		resourceType: models.ResourceTranscript,
		resourceID:   transcriptID,
		doneStatus:   models.URLStatusCategorized,

		resolve: func(ctx context.Context, q store.Queries) (target, error) {
			tr, err := q.GetTranscript(ctx, transcriptID)
			if errors.Is(err, store.ErrNotFound) {
				return target{}, errMissingUpstream
			}
			if err != nil {
				return target{}, fmt.Errorf("loading transcript: %w", err)
			}
			text = tr.FullText

			v, err := q.GetVideo(ctx, tr.VideoID)
			if errors.Is(err, store.ErrNotFound) {
				return target{}, errMissingUpstream
			}
			if err != nil {
				return target{}, fmt.Errorf("loading video: %w", err)
			}
			videoID = v.ID

			u, err := q.GetURL(ctx, v.URLID)
			if err != nil {
				return target{}, fmt.Errorf("loading url: %w", err)
			}
			tgt := target{urlID: u.ID, retries: u.RetryCount(models.StageCategorization)}

			existing, err := q.GetMetadataByVideo(ctx, v.ID)
			switch {
			case err == nil && existing.Status == models.ArtifactStatusReady:
				tgt.existingID = existing.ID
			case err != nil && !errors.Is(err, store.ErrNotFound):
				return tgt, fmt.Errorf("looking up metadata: %w", err)
			}
			return tgt, nil
		},

		work: func(ctx context.Context) (categorize.Result, error) {
			return c.classifier.Classify(ctx, text)
		},

		complete: func(ctx context.Context, q store.Queries, res categorize.Result) (int64, error) {
			main := res.MainCategory
			name, version := c.classifier.Name(), c.classifier.Version()
			m := &models.VideoMetadata{
				VideoID:      videoID,
				MainCategory: &main,
				SubCategory:  res.SubCategory,
				Tags:         res.Tags,
				ModelName:    &name,
				ModelVersion: &version,
				Status:       models.ArtifactStatusReady,
			}
			if err := q.UpsertMetadata(ctx, m); err != nil {
				return 0, fmt.Errorf("upserting metadata: %w", err)
			}
			return m.ID, nil
		},
	})
}

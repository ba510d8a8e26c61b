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

// Download fetches the stream behind a URL and records the stored Video.
type Download struct {
	store      store.Store
	downloader media.Downloader
	timeout    time.Duration
}

func NewDownload(st store.Store, downloader media.Downloader, timeout time.Duration) *Download {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Download{store: st, downloader: downloader, timeout: timeout}
}

func (d *Download) Stage() models.Stage { return models.StageDownload }

// Run downloads the URL with the given id and returns the Video id.
func (d *Download) Run(ctx context.Context, urlID int64) (*Output, error) {
	var rawURL string

	return attempt(ctx, d.store, d.timeout, plan[*media.Download]{
		stage:        models.StageDownload,
		resourceType: models.ResourceURL,
		resourceID:   urlID,
		startStatus:  models.URLStatusDownloading,
		doneStatus:   models.URLStatusDownloaded,
		failStatus:   models.URLStatusDownloadFailed,

		resolve: func(ctx context.Context, q store.Queries) (target, error) {
			u, err := q.GetURL(ctx, urlID)
			if errors.Is(err, store.ErrNotFound) {
				return target{}, errMissingUpstream
			}
			if err != nil {
				return target{}, fmt.Errorf("loading url: %w", err)
			}
			rawURL = u.RawURL

			tgt := target{urlID: u.ID, retries: u.RetryCount(models.StageDownload)}
			existing, err := q.LatestStoredVideo(ctx, u.ID)
			switch {
			case err == nil:
				tgt.existingID = existing.ID
			case !errors.Is(err, store.ErrNotFound):
				return tgt, fmt.Errorf("looking up stored video: %w", err)
			}
			return tgt, nil
		},

		work: func(ctx context.Context) (*media.Download, error) {
			return d.downloader.Download(ctx, rawURL)
		},

		complete: func(ctx context.Context, q store.Queries, dl *media.Download) (int64, error) {
			v := &models.Video{
				URLID:           urlID,
				StorageKey:      dl.Path,
				FilesizeBytes:   dl.SizeBytes,
				DurationSeconds: dl.DurationSeconds,
				Status:          models.VideoStatusStored,
			}
			if dl.Format != "" {
				format := dl.Format
				v.Format = &format
			}
			if err := q.CreateVideo(ctx, v); err != nil {
				return 0, fmt.Errorf("creating video: %w", err)
			}
			return v.ID, nil
		},

		discard: func(dl *media.Download) {
			if err := os.Remove(dl.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
				slog.Warn("failed to remove orphaned download", "path", dl.Path, "error", err)
			}
		},
	})
}

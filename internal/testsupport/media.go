package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/kiranshivaraju/vslpipeline/internal/media"
)

// FakeMedia implements media.Downloader and media.AudioExtractor by writing
// small placeholder files into Dir.
type FakeMedia struct {
	Dir string

	// DownloadErr and ExtractErr, when set, are returned instead of writing a file.
	DownloadErr error
	ExtractErr  error
	// Block makes Download wait for context cancellation.
	Block bool

	mu        sync.Mutex
	sources   []string
	seq       atomic.Int64
	audioMade []string
}

func NewFakeMedia(dir string) *FakeMedia {
	return &FakeMedia{Dir: dir}
}

func (f *FakeMedia) Download(ctx context.Context, sourceURL string) (*media.Download, error) {
	f.mu.Lock()
	f.sources = append(f.sources, sourceURL)
	f.mu.Unlock()

	if f.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.DownloadErr != nil {
		return nil, f.DownloadErr
	}

	path := filepath.Join(f.Dir, fmt.Sprintf("video-%d.mp4", f.seq.Add(1)))
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		return nil, err
	}
	size := int64(5)
	duration := 42
	return &media.Download{Path: path, Format: "mp4", SizeBytes: &size, DurationSeconds: &duration}, nil
}

func (f *FakeMedia) ExtractAudio(_ context.Context, videoPath string) (string, error) {
	if f.ExtractErr != nil {
		return "", f.ExtractErr
	}
	path := filepath.Join(f.Dir, fmt.Sprintf("%s-%d.mp3", filepath.Base(videoPath), f.seq.Add(1)))
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.audioMade = append(f.audioMade, path)
	f.mu.Unlock()
	return path, nil
}

// Sources returns every source URL passed to Download.
func (f *FakeMedia) Sources() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sources...)
}

// AudioFiles returns every temporary audio path handed out.
func (f *FakeMedia) AudioFiles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.audioMade...)
}

var (
	_ media.Downloader     = (*FakeMedia)(nil)
	_ media.AudioExtractor = (*FakeMedia)(nil)
)

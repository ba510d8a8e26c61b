package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Download describes a stream saved to local storage.
type Download struct {
	Path            string
	Format          string
	SizeBytes       *int64
	DurationSeconds *int
}

// Downloader saves remote streams into a storage directory.
type Downloader interface {
	Download(ctx context.Context, sourceURL string) (*Download, error)
}

// AudioExtractor writes the audio track of a video to a temporary file.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoPath string) (string, error)
}

// FFmpeg implements Downloader and AudioExtractor on top of the ffmpeg binary.
type FFmpeg struct {
	binary   string
	videoDir string
	audioDir string
	prober   *Prober
	run      Runner
}

type FFmpegConfig struct {
	Binary   string
	VideoDir string
	AudioDir string
}

func NewFFmpeg(cfg FFmpegConfig, prober *Prober, run Runner) *FFmpeg {
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = "ffmpeg"
	}
	if run == nil {
		run = ExecRunner
	}
	return &FFmpeg{
		binary:   cfg.Binary,
		videoDir: cfg.VideoDir,
		audioDir: cfg.AudioDir,
		prober:   prober,
		run:      run,
	}
}

// Download remuxes the stream into <videoDir>/<random>.mp4 without re-encoding.
// Size and duration are best effort: a failed probe leaves them nil.
func (f *FFmpeg) Download(ctx context.Context, sourceURL string) (*Download, error) {
	if strings.TrimSpace(sourceURL) == "" {
		return nil, fmt.Errorf("download: empty source url")
	}
	if err := os.MkdirAll(f.videoDir, 0o755); err != nil {
		return nil, fmt.Errorf("download: ensure storage dir: %w", err)
	}

	out := filepath.Join(f.videoDir, newFileName("mp4"))
	if _, err := f.run(ctx, f.binary, buildDownloadArgs(sourceURL, out)...); err != nil {
		_ = os.Remove(out)
		return nil, fmt.Errorf("download: %w", err)
	}

	d := &Download{Path: out, Format: "mp4"}
	if info, err := os.Stat(out); err == nil {
		size := info.Size()
		d.SizeBytes = &size
	}
	if f.prober != nil {
		probe, err := f.prober.Inspect(ctx, out)
		if err != nil {
			slog.Warn("duration probe failed", "path", out, "error", err)
		} else if secs := probe.DurationSeconds(); secs > 0 {
			whole := int(secs)
			d.DurationSeconds = &whole
		}
	}
	return d, nil
}

// ExtractAudio writes a mono 48 kbps mp3 of the video into the audio temp dir.
// The caller owns the returned file.
func (f *FFmpeg) ExtractAudio(ctx context.Context, videoPath string) (string, error) {
	if err := os.MkdirAll(f.audioDir, 0o755); err != nil {
		return "", fmt.Errorf("extract audio: ensure temp dir: %w", err)
	}
	out := filepath.Join(f.audioDir, newFileName("mp3"))
	if _, err := f.run(ctx, f.binary, buildAudioArgs(videoPath, out)...); err != nil {
		_ = os.Remove(out)
		return "", fmt.Errorf("extract audio: %w", err)
	}
	return out, nil
}

func buildDownloadArgs(source, dest string) []string {
	return []string{"-y", "-i", source, "-c", "copy", dest}
}

func buildAudioArgs(source, dest string) []string {
	return []string{"-y", "-i", source, "-vn", "-acodec", "libmp3lame", "-b:a", "48k", "-ac", "1", dest}
}

func newFileName(ext string) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + "." + ext
}

var (
	_ Downloader     = (*FFmpeg)(nil)
	_ AudioExtractor = (*FFmpeg)(nil)
)

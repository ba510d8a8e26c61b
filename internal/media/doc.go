// Package media wraps the ffmpeg and ffprobe binaries used by the download and
// transcription stages.
package media

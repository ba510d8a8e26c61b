// Package search finds ready transcripts containing a phrase.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kiranshivaraju/vslpipeline/internal/cache"
	"github.com/kiranshivaraju/vslpipeline/pkg/models"
)

const (
	snippetRunes = 220
	ellipsis     = "…"

	DefaultLimit = 100
	DefaultTTL   = 30 * time.Second
)

// Result is one search hit as shown to the frontend.
type Result struct {
	ID                int64   `json:"id"`
	Title             string  `json:"title"`
	VideoPath         string  `json:"video_path"`
	TranscriptSnippet string  `json:"transcript_snippet"`
	TranscriptFull    string  `json:"transcript_full"`
	Score             float64 `json:"score"`
}

// Finder is the store query the service runs.
type Finder interface {
	SearchTranscripts(ctx context.Context, query string, limit int) ([]*models.TranscriptMatch, error)
}

type Service struct {
	finder  Finder
	cache   cache.Cache
	baseURL string
	limit   int
	ttl     time.Duration
}

type Option func(*Service)

// WithCache caches result lists for ttl. A nil cache disables caching.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.limit = n
		}
	}
}

func NewService(finder Finder, publicBaseURL string, opts ...Option) *Service {
	s := &Service{
		finder:  finder,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		limit:   DefaultLimit,
		ttl:     DefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search returns transcripts containing q, case-insensitively. A blank query
// returns no results without touching the store.
func (s *Service) Search(ctx context.Context, q string) ([]Result, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []Result{}, nil
	}

	key := cache.SearchResultKey(q)
	if s.cache != nil {
		if b, found, err := s.cache.Get(ctx, key); err != nil {
			slog.Warn("search cache read failed", "error", err)
		} else if found {
			var cached []Result
			if err := json.Unmarshal(b, &cached); err == nil {
				return cached, nil
			}
		}
	}

	matches, err := s.finder.SearchTranscripts(ctx, q, s.limit)
	if err != nil {
		return nil, fmt.Errorf("searching transcripts: %w", err)
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, Result{
			ID:                m.Transcript.ID,
			Title:             m.URL.RawURL,
			VideoPath:         PublicURL(s.baseURL, m.Video.StorageKey),
			TranscriptSnippet: Snippet(m.Transcript.FullText),
			TranscriptFull:    m.Transcript.FullText,
			Score:             1.0,
		})
	}

	if s.cache != nil {
		if b, err := json.Marshal(results); err == nil {
			if err := s.cache.Set(ctx, key, b, s.ttl); err != nil {
				slog.Warn("search cache write failed", "error", err)
			}
		}
	}
	return results, nil
}

// Snippet returns the first 220 characters of text followed by an ellipsis,
// or text unchanged when it is not longer than that.
func Snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetRunes {
		return text
	}
	return string(runes[:snippetRunes]) + ellipsis
}

// PublicURL maps a stored video path to the URL it is served from. Anything
// up to and including the first "storage/" is dropped, so relative keys and
// absolute paths under a storage directory resolve alike.
func PublicURL(baseURL, storageKey string) string {
	if storageKey == "" {
		return ""
	}
	key := strings.ReplaceAll(storageKey, `\`, "/")
	if _, after, found := strings.Cut(key, "storage/"); found {
		key = after
	}
	key = strings.TrimLeft(key, "/")
	return strings.TrimRight(baseURL, "/") + "/storage/" + key
}

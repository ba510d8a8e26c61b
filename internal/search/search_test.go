package search_test

import (
	"context"
	"strings"
	"testing"

	"github.com/kiranshivaraju/vslpipeline/internal/cache"
	"github.com/kiranshivaraju/vslpipeline/internal/search"
	"github.com/kiranshivaraju/vslpipeline/internal/testsupport"
	"github.com/kiranshivaraju/vslpipeline/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = "http://localhost:8000"

func seed(t *testing.T, st *testsupport.MemStore, raw, storageKey, text string, status models.ArtifactStatus) {
	t.Helper()
	ctx := context.Background()
	u := &models.URL{RawURL: raw}
	require.NoError(t, st.CreateURL(ctx, u))
	v := &models.Video{URLID: u.ID, StorageKey: storageKey, Status: models.VideoStatusStored}
	require.NoError(t, st.CreateVideo(ctx, v))
	require.NoError(t, st.CreateTranscript(ctx, &models.Transcript{
		VideoID: v.ID, Engine: "mock", FullText: text, Status: status,
	}))
}

func TestSearch_MatchesReadyTranscriptsCaseInsensitive(t *testing.T) {
	st := testsupport.NewMemStore()
	seed(t, st, "https://a.example.com/1.m3u8", "storage/videos/1.mp4", "Perca PESO com esta dieta", models.ArtifactStatusReady)
	seed(t, st, "https://a.example.com/2.m3u8", "storage/videos/2.mp4", "aprenda a investir", models.ArtifactStatusReady)
	seed(t, st, "https://a.example.com/3.m3u8", "storage/videos/3.mp4", "dieta pendente", models.ArtifactStatusPending)

	svc := search.NewService(st, base)
	results, err := svc.Search(context.Background(), "  peso ")
	require.NoError(t, err)

	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, "https://a.example.com/1.m3u8", r.Title)
	assert.Equal(t, "http://localhost:8000/storage/videos/1.mp4", r.VideoPath)
	assert.Equal(t, "Perca PESO com esta dieta", r.TranscriptSnippet)
	assert.Equal(t, "Perca PESO com esta dieta", r.TranscriptFull)
	assert.Equal(t, 1.0, r.Score)
}

func TestSearch_BlankQuery(t *testing.T) {
	st := testsupport.NewMemStore()
	st.FailOn["SearchTranscripts"] = testsupport.ErrInjected

	results, err := search.NewService(st, base).Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_StoreError(t *testing.T) {
	st := testsupport.NewMemStore()
	st.FailOn["SearchTranscripts"] = testsupport.ErrInjected

	_, err := search.NewService(st, base).Search(context.Background(), "dieta")
	assert.ErrorIs(t, err, testsupport.ErrInjected)
}

func TestSearch_CachesResults(t *testing.T) {
	st := testsupport.NewMemStore()
	seed(t, st, "https://a.example.com/1.m3u8", "storage/videos/1.mp4", "curso de dieta", models.ArtifactStatusReady)
	mc := testsupport.NewMemCache()
	svc := search.NewService(st, base, search.WithCache(mc, 0))

	first, err := svc.Search(context.Background(), "Dieta")
	require.NoError(t, err)
	require.Len(t, first, 1)

	_, found, err := mc.Get(context.Background(), cache.SearchResultKey("dieta"))
	require.NoError(t, err)
	assert.True(t, found)

	// Served from cache while the store is down.
	st.FailOn["SearchTranscripts"] = testsupport.ErrInjected
	second, err := svc.Search(context.Background(), "dieta")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSnippet(t *testing.T) {
	long := strings.Repeat("a", 500)
	got := search.Snippet(long)
	assert.Equal(t, strings.Repeat("a", 220)+"…", got)

	short := strings.Repeat("b", 100)
	assert.Equal(t, short, search.Snippet(short))

	exact := strings.Repeat("c", 220)
	assert.Equal(t, exact, search.Snippet(exact))

	multibyte := strings.Repeat("ç", 221)
	assert.Equal(t, strings.Repeat("ç", 220)+"…", search.Snippet(multibyte))
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"relative key", "videos/2025/11/13/abcd.mp4", base + "/storage/videos/2025/11/13/abcd.mp4"},
		{"storage prefix", "storage/videos/abcd.mp4", base + "/storage/videos/abcd.mp4"},
		{"absolute path", "/Users/lanna/vsl_pipeline/storage/videos/abcd.mp4", base + "/storage/videos/abcd.mp4"},
		{"windows path", `C:\data\storage\videos\abcd.mp4`, base + "/storage/videos/abcd.mp4"},
		{"leading slash", "/videos/abcd.mp4", base + "/storage/videos/abcd.mp4"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, search.PublicURL(base, tt.key))
		})
	}
}

func TestPublicURL_TrimsBaseSlash(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/storage/v.mp4", search.PublicURL("https://cdn.example.com/", "v.mp4"))
}

package openai_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kiranshivaraju/vslpipeline/internal/config"
	"github.com/kiranshivaraju/vslpipeline/internal/transcribe/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "clip.mp3")
	require.NoError(t, os.WriteFile(p, []byte("ID3fake-audio"), 0o644))
	return p
}

func TestTranscribe_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "pt", r.FormValue("language"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "clip.mp3", hdr.Filename)
		b, _ := io.ReadAll(f)
		assert.Equal(t, "ID3fake-audio", string(b))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"olá, hoje vou te mostrar"}`))
	}))
	defer srv.Close()

	e := openai.NewEngine(config.OpenAIConfig{APIKey: "sk-test", Model: "whisper-1", BaseURL: srv.URL})
	text, err := e.Transcribe(context.Background(), writeAudio(t), "pt")
	require.NoError(t, err)
	assert.Equal(t, "olá, hoje vou te mostrar", text)
}

func TestTranscribe_OmitsEmptyLanguage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, present := r.MultipartForm.Value["language"]
		assert.False(t, present)
		_, _ = w.Write([]byte(`{"text":"ok"}`))
	}))
	defer srv.Close()

	e := openai.NewEngine(config.OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := e.Transcribe(context.Background(), writeAudio(t), "")
	require.NoError(t, err)
}

func TestTranscribe_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
	}))
	defer srv.Close()

	e := openai.NewEngine(config.OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := e.Transcribe(context.Background(), writeAudio(t), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "Rate limit reached")
}

func TestTranscribe_MissingFile(t *testing.T) {
	e := openai.NewEngine(config.OpenAIConfig{APIKey: "k", BaseURL: "http://127.0.0.1:1"})
	_, err := e.Transcribe(context.Background(), "/nonexistent/a.mp3", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open audio")
}

func TestTranscribe_ContextTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	e := openai.NewEngine(config.OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := e.Transcribe(ctx, writeAudio(t), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

package mock

import (
	"context"
	"sync/atomic"

	"github.com/kiranshivaraju/vslpipeline/internal/transcribe"
	"github.com/kiranshivaraju/vslpipeline/pkg/models"
)

// MockEngine satisfies models.TranscriptionEngine for testing and local runs.
type MockEngine struct {
	Name_          string
	TranscribeFunc func(ctx context.Context, audioPath, language string) (string, error)
	calls          atomic.Int64
}

func (m *MockEngine) Name() string { return m.Name_ }

func (m *MockEngine) Transcribe(ctx context.Context, audioPath, language string) (string, error) {
	m.calls.Add(1)
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, audioPath, language)
	}
	return "", nil
}

// Calls reports how many times Transcribe was invoked.
func (m *MockEngine) Calls() int { return int(m.calls.Load()) }

// NewMockEngine returns a MockEngine that always answers with text.
func NewMockEngine(text string) *MockEngine {
	return &MockEngine{
		Name_: "mock",
		TranscribeFunc: func(_ context.Context, _, _ string) (string, error) {
			return text, nil
		},
	}
}

// NewFailingEngine returns a MockEngine that always returns the given error.
func NewFailingEngine(err error) *MockEngine {
	return &MockEngine{
		Name_: "mock-failing",
		TranscribeFunc: func(_ context.Context, _, _ string) (string, error) {
			return "", err
		},
	}
}

// NewTimeoutEngine returns a MockEngine that blocks until context is cancelled.
func NewTimeoutEngine() *MockEngine {
	return &MockEngine{
		Name_: "mock-timeout",
		TranscribeFunc: func(ctx context.Context, _, _ string) (string, error) {
			<-ctx.Done()
			return "", transcribe.ErrTranscriptionTimeout
		},
	}
}

var _ models.TranscriptionEngine = (*MockEngine)(nil)

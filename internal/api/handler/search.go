package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/vslpipeline/internal/api/response"
	"github.com/kiranshivaraju/vslpipeline/internal/search"
)

// Searcher finds transcripts by phrase.
type Searcher interface {
	Search(ctx context.Context, q string) ([]search.Result, error)
}

type searchResponse struct {
	Results []search.Result `json:"results"`
}

// NewSearchHandler returns GET /api/search?q=.
func NewSearchHandler(s Searcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "q is required", nil)
			return
		}

		results, err := s.Search(r.Context(), strings.TrimSpace(q))
		if err != nil {
			slog.Error("search failed", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		response.JSON(w, searchResponse{Results: results})
	}
}

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/vslpipeline/internal/api/response"
	"github.com/kiranshivaraju/vslpipeline/internal/pipeline"
	"github.com/kiranshivaraju/vslpipeline/internal/store"
	"github.com/kiranshivaraju/vslpipeline/pkg/models"
)

// URLIntake registers URLs.
type URLIntake interface {
	Submit(ctx context.Context, rawURL, urlType string) (*pipeline.SubmitResult, error)
	SubmitBulk(ctx context.Context, source string, refs []string) (*pipeline.BulkResult, error)
}

// URLReader loads a URL and its audit trail.
type URLReader interface {
	GetURL(ctx context.Context, id int64) (*models.URL, error)
	ListJobsForURL(ctx context.Context, urlID int64) ([]*models.Job, error)
}

// NewCreateURLHandler returns POST /urls. A new URL starts its pipeline at
// once and answers 201; a known URL answers 200 with created=false.
func NewCreateURLHandler(intake URLIntake) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RawURL string `json:"raw_url"`
			Type   string `json:"type"`
		}
		if err := decodeBody(w, r, &req, false); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		res, err := intake.Submit(r.Context(), req.RawURL, req.Type)
		if err != nil {
			if errors.Is(err, pipeline.ErrEmptyInput) {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "raw_url is required", nil)
				return
			}
			slog.Error("url intake failed", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		if res.Created {
			response.Created(w, res)
			return
		}
		response.JSON(w, res)
	}
}

// NewBulkURLHandler returns POST /urls/bulk. URLs are stored for the next
// batch pass; no pipeline is started here.
func NewBulkURLHandler(intake URLIntake) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Source string   `json:"source"`
			URLs   []string `json:"urls"`
		}
		if err := decodeBody(w, r, &req, false); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		res, err := intake.SubmitBulk(r.Context(), req.Source, req.URLs)
		if err != nil {
			if errors.Is(err, pipeline.ErrEmptyInput) {
				response.Error(w, http.StatusBadRequest, "EMPTY_INPUT",
					"URL list is empty after trimming", nil)
				return
			}
			slog.Error("bulk intake failed", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		response.JSON(w, res)
	}
}

type urlDetail struct {
	URL  *models.URL   `json:"url"`
	Jobs []*models.Job `json:"jobs"`
}

// NewGetURLHandler returns GET /urls/{id} with every Job recorded for the URL
// and its derived artifacts.
func NewGetURLHandler(reader URLReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := int64Param(r, "id")
		if !ok {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "id must be a positive integer", nil)
			return
		}

		u, err := reader.GetURL(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "URL not found", nil)
				return
			}
			slog.Error("get url failed", "url_id", id, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		jobs, err := reader.ListJobsForURL(r.Context(), id)
		if err != nil {
			slog.Error("list jobs failed", "url_id", id, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		if jobs == nil {
			jobs = []*models.Job{}
		}
		response.JSON(w, urlDetail{URL: u, Jobs: jobs})
	}
}

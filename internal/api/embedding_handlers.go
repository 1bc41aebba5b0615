package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ranklab/ranklab/internal/embedding"
	"github.com/ranklab/ranklab/internal/middleware"
)

// Backfill batch constraints.
const (
	DefaultBackfillBatch = 500
	MaxBackfillBatch     = 5000
)

// ComputeEmbeddingRequest represents the request body for computing a post embedding.
type ComputeEmbeddingRequest struct {
	Text string `json:"text"`
}

// ComputeEmbeddingResponse represents the stored embedding metadata.
type ComputeEmbeddingResponse struct {
	PostID string `json:"post_id"`
	Dim    int    `json:"dim"`
}

// BackfillRequest represents the request body for the backfill sweep.
type BackfillRequest struct {
	BatchSize int `json:"batch_size,omitempty"`
}

// BackfillResponse reports how many posts gained an embedding.
type BackfillResponse struct {
	Processed int `json:"processed"`
}

// EmbeddingHandlers holds dependencies for embedding HTTP handlers.
type EmbeddingHandlers struct {
	service      *embedding.Service
	defaultBatch int
}

// NewEmbeddingHandlers creates a new EmbeddingHandlers instance.
func NewEmbeddingHandlers(service *embedding.Service) *EmbeddingHandlers {
	return &EmbeddingHandlers{
		service:      service,
		defaultBatch: DefaultBackfillBatch,
	}
}

// WithDefaultBatch overrides the batch size used when a backfill request
// does not name one. Values outside (0, MaxBackfillBatch] are ignored.
func (h *EmbeddingHandlers) WithDefaultBatch(n int) *EmbeddingHandlers {
	if n > 0 && n <= MaxBackfillBatch {
		h.defaultBatch = n
	}
	return h
}

// ComputeEmbedding handles POST /v1/posts/{post_id}/embedding - encodes the
// post text and stores the projected embedding.
func (h *EmbeddingHandlers) ComputeEmbedding(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/posts/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "embedding" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Post ID is required")
		return
	}
	postID := parts[0]

	var req ComputeEmbeddingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "text is required")
		return
	}

	vec, err := h.service.ComputeAndStore(r.Context(), postID, req.Text)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to compute post embedding", "error", err, "post_id", postID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeEncoderUnavailable)
		WriteError(w, ctx, http.StatusBadGateway, ErrCodeEncoderUnavailable, "Failed to compute embedding")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(ComputeEmbeddingResponse{PostID: postID, Dim: len(vec)}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
		return
	}
}

// Backfill handles POST /v1/embeddings/backfill - computes embeddings for
// recent posts that do not have one yet.
func (h *EmbeddingHandlers) Backfill(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	batchSize := h.defaultBatch
	if r.ContentLength != 0 {
		var req BackfillRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
			return
		}
		if req.BatchSize < 0 {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "batch_size must be positive")
			return
		}
		if req.BatchSize > 0 {
			batchSize = req.BatchSize
		}
		if batchSize > MaxBackfillBatch {
			batchSize = MaxBackfillBatch
		}
	}

	processed, err := h.service.Backfill(r.Context(), batchSize)
	if err != nil {
		slog.ErrorContext(r.Context(), "embedding backfill failed", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Backfill failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(BackfillResponse{Processed: processed}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
		return
	}
}

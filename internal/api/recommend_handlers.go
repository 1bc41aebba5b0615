package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ranklab/ranklab/internal/middleware"
	"github.com/ranklab/ranklab/internal/recommend"
)

// RecommendHandlers holds dependencies for the recommendation endpoint.
type RecommendHandlers struct {
	pipeline *recommend.Pipeline
}

// NewRecommendHandlers creates a new RecommendHandlers instance.
func NewRecommendHandlers(pipeline *recommend.Pipeline) *RecommendHandlers {
	return &RecommendHandlers{
		pipeline: pipeline,
	}
}

// GetRecommendations handles GET /v1/recommendations/{user_id}.
// The optional limit query parameter is clamped to the configured maximum.
func (h *RecommendHandlers) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	userID := strings.TrimPrefix(r.URL.Path, "/v1/recommendations/")
	if userID == "" || strings.Contains(userID, "/") {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "User ID is required")
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidLimit)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidLimit, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	resp, err := h.pipeline.Recommend(r.Context(), userID, limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "recommendation pipeline failed", "error", err, "user_id", userID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to compute recommendations")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
		return
	}
}

package api

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"

	"github.com/ranklab/ranklab/internal/engagement"
	"github.com/ranklab/ranklab/internal/middleware"
	"github.com/ranklab/ranklab/internal/scoring"
)

// Weight magnitude bound. Weights outside this range almost certainly mean a
// fat-fingered config push rather than a deliberate tuning choice.
const MaxWeightMagnitude = 100.0

// UpdateWeightsRequest represents the request body for replacing weight rows.
type UpdateWeightsRequest struct {
	Weights []WeightEntry `json:"weights"`
}

// WeightEntry is one action → weight assignment in an update request.
type WeightEntry struct {
	ActionType string  `json:"action_type"`
	Weight     float64 `json:"weight"`
	IsActive   bool    `json:"is_active"`
}

// WeightListResponse represents the response for listing weight rows.
type WeightListResponse struct {
	Weights []*scoring.ScoringWeight `json:"weights"`
}

// WeightHandlers holds dependencies for scoring weight HTTP handlers.
type WeightHandlers struct {
	repo scoring.WeightRepository
}

// NewWeightHandlers creates a new WeightHandlers instance.
func NewWeightHandlers(repo scoring.WeightRepository) *WeightHandlers {
	return &WeightHandlers{
		repo: repo,
	}
}

// HandleWeights dispatches GET and PUT /v1/weights.
func (h *WeightHandlers) HandleWeights(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listWeights(w, r)
	case http.MethodPut:
		h.updateWeights(w, r)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}

// listWeights returns all configured weight rows, active or not.
func (h *WeightHandlers) listWeights(w http.ResponseWriter, r *http.Request) {
	weights, err := h.repo.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list scoring weights", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve weights")
		return
	}
	if weights == nil {
		weights = []*scoring.ScoringWeight{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(WeightListResponse{Weights: weights}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
		return
	}
}

// updateWeights validates and upserts the submitted weight rows. The update
// takes effect on the next recommendation request; there is no cache to bust.
func (h *WeightHandlers) updateWeights(w http.ResponseWriter, r *http.Request) {
	var req UpdateWeightsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	if len(req.Weights) == 0 {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "weights is required")
		return
	}

	for _, entry := range req.Weights {
		if !engagement.ValidActions[entry.ActionType] {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidAction)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidAction, "Unknown action_type: "+entry.ActionType)
			return
		}
		if math.IsNaN(entry.Weight) || math.IsInf(entry.Weight, 0) || math.Abs(entry.Weight) > MaxWeightMagnitude {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidWeight)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidWeight, "Weight out of range for "+entry.ActionType)
			return
		}
	}

	for _, entry := range req.Weights {
		row := &scoring.ScoringWeight{
			ActionType: entry.ActionType,
			Weight:     entry.Weight,
			IsActive:   entry.IsActive,
		}
		if err := h.repo.Upsert(r.Context(), row); err != nil {
			slog.ErrorContext(r.Context(), "failed to upsert scoring weight", "error", err,
				"action_type", entry.ActionType)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to update weights")
			return
		}
	}

	h.listWeights(w, r)
}

package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ranklab/ranklab/internal/engagement"
	"github.com/ranklab/ranklab/internal/learning"
	"github.com/ranklab/ranklab/internal/middleware"
)

// Engagement listing constraints.
const (
	DefaultEngagementListLimit = 50
	MaxEngagementListLimit     = 200
)

// CreateEngagementRequest represents the request body for recording an engagement.
// The acting user comes from the access token, never from the body. Clients
// buffering events offline may supply created_at; absent, the server stamps
// the event at insert time.
type CreateEngagementRequest struct {
	PostID     string     `json:"post_id"`
	ActionType string     `json:"action_type"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

// EngagementResponse wraps the stored event with the dedupe outcome. Replays
// of idempotent actions return the original event with inserted=false.
type EngagementResponse struct {
	Event    *engagement.Event `json:"event"`
	Inserted bool              `json:"inserted"`
}

// EngagementListResponse represents the response for engagement history.
type EngagementListResponse struct {
	UserID string              `json:"user_id"`
	Events []*engagement.Event `json:"events"`
}

// EngagementHandlers holds dependencies for engagement HTTP handlers.
type EngagementHandlers struct {
	repo      engagement.Repository
	publisher engagement.Publisher
	learner   *learning.Learner
}

// NewEngagementHandlers creates a new EngagementHandlers instance.
// publisher and learner may be nil, in which case events are only persisted.
func NewEngagementHandlers(repo engagement.Repository, publisher engagement.Publisher, learner *learning.Learner) *EngagementHandlers {
	return &EngagementHandlers{
		repo:      repo,
		publisher: publisher,
		learner:   learner,
	}
}

// CreateEngagement handles POST /v1/engagements - records an engagement event.
// Persisting the event is the only step that can fail the request: the stream
// publish and the embedding update run after the response status is decided.
func (h *EngagementHandlers) CreateEngagement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	var req CreateEngagementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	req.PostID = strings.TrimSpace(req.PostID)
	if req.PostID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "post_id is required")
		return
	}
	if !engagement.ValidActions[req.ActionType] {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidAction)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidAction, "Unknown action_type")
		return
	}

	var createdAt time.Time
	if req.CreatedAt != nil {
		createdAt = req.CreatedAt.UTC()
	}

	event, inserted, err := h.repo.Insert(r.Context(), userID, req.PostID, req.ActionType, createdAt)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to record engagement", "error", err,
			"user_id", userID, "post_id", req.PostID, "action_type", req.ActionType)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to record engagement")
		return
	}

	if inserted {
		h.afterInsert(r.Context(), event)
	}

	status := http.StatusCreated
	if !inserted {
		status = http.StatusOK
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(EngagementResponse{Event: event, Inserted: inserted}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
		return
	}
}

// afterInsert runs the post-persistence side effects for a freshly stored
// event: publish to the engagement stream and apply the embedding updates.
// Both are best-effort and detached from the request context so client
// disconnects cannot interrupt them.
func (h *EngagementHandlers) afterInsert(ctx context.Context, event *engagement.Event) {
	if h.publisher != nil {
		if err := h.publisher.Publish(ctx, event); err != nil {
			slog.WarnContext(ctx, "failed to publish engagement event", "error", err,
				"event_id", event.ID)
		}
	}

	if h.learner != nil {
		detached := context.WithoutCancel(ctx)
		go func() {
			updateCtx, cancel := context.WithTimeout(detached, 10*time.Second)
			defer cancel()
			h.learner.Apply(updateCtx, event.UserID, event.PostID, event.ActionType)
		}()
	}
}

// ListEngagements handles GET /v1/users/{user_id}/engagements - returns the
// user's engagement history, newest first.
func (h *EngagementHandlers) ListEngagements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "engagements" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "User ID is required")
		return
	}
	userID := parts[0]

	limit := DefaultEngagementListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidLimit)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidLimit, "Invalid limit parameter")
			return
		}
		if parsed > MaxEngagementListLimit {
			parsed = MaxEngagementListLimit
		}
		limit = parsed
	}

	events, err := h.repo.ListByUser(r.Context(), userID, limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list engagements", "error", err, "user_id", userID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve engagements")
		return
	}
	if events == nil {
		events = []*engagement.Event{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(EngagementListResponse{UserID: userID, Events: events}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
		return
	}
}

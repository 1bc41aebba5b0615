package engagement

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory implementation of Repository for tests
// and local development. Thread-safe via RWMutex.
type MemoryRepository struct {
	mu     sync.RWMutex
	events []*Event
	seen   map[string]bool // userID|postID|actionType for idempotent actions
}

// NewMemoryRepository creates a new in-memory engagement repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{seen: make(map[string]bool)}
}

func dedupeKey(userID, postID, actionType string) string {
	return userID + "|" + postID + "|" + actionType
}

// Insert stores the event, skipping replays of idempotent actions. A zero
// createdAt is replaced with the current time.
func (r *MemoryRepository) Insert(ctx context.Context, userID, postID, actionType string, createdAt time.Time) (*Event, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if IdempotentActions[actionType] {
		key := dedupeKey(userID, postID, actionType)
		if r.seen[key] {
			for i := len(r.events) - 1; i >= 0; i-- {
				e := r.events[i]
				if e.UserID == userID && e.PostID == postID && e.ActionType == actionType {
					cp := *e
					return &cp, false, nil
				}
			}
		}
		r.seen[key] = true
	}

	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	event := &Event{
		ID:         uuid.NewString(),
		UserID:     userID,
		PostID:     postID,
		ActionType: actionType,
		CreatedAt:  createdAt.UTC(),
	}
	r.events = append(r.events, event)
	cp := *event
	return &cp, true, nil
}

// ListByUser returns the user's events, newest first.
func (r *MemoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Event
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		if r.events[i].UserID == userID {
			cp := *r.events[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

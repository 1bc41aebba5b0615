// Package engagement records user actions on posts and publishes them for
// downstream consumers. Idempotent actions (like, repost, not_interested,
// block_author, mute_author) are stored at most once per (user, post,
// action); replays are reported explicitly rather than erroring.
package engagement

import (
	"context"
	"time"

	"github.com/ranklab/ranklab/internal/ranker"
)

// Event is one recorded user action on a post.
type Event struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	PostID     string    `json:"post_id"`
	ActionType string    `json:"action_type"`
	CreatedAt  time.Time `json:"created_at"`
}

// IdempotentActions lists the action types stored at most once per
// (user, post, action). Replies and views may legitimately repeat.
var IdempotentActions = map[string]bool{
	ranker.ActionLike:          true,
	ranker.ActionRepost:        true,
	ranker.ActionNotInterested: true,
	ranker.ActionBlockAuthor:   true,
	ranker.ActionMuteAuthor:    true,
}

// ValidActions lists every recordable action type, including view, which
// carries no learning signal but is kept for analytics.
var ValidActions = map[string]bool{
	ranker.ActionLike:          true,
	ranker.ActionReply:         true,
	ranker.ActionRepost:        true,
	ranker.ActionNotInterested: true,
	ranker.ActionBlockAuthor:   true,
	ranker.ActionMuteAuthor:    true,
	ranker.ActionView:          true,
}

// Repository persists engagement events.
type Repository interface {
	// Insert stores the event. A non-zero createdAt stamps the event with
	// the client-supplied time; the zero value falls back to the store's
	// current time. For idempotent action types a replay of an existing
	// (user, post, action) combination is not stored; inserted reports
	// whether a new row was written. The returned event carries the
	// assigned ID and timestamp.
	Insert(ctx context.Context, userID, postID, actionType string, createdAt time.Time) (*Event, bool, error)

	// ListByUser returns the user's events, newest first, up to limit.
	ListByUser(ctx context.Context, userID string, limit int) ([]*Event, error)
}

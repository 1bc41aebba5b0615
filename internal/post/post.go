// Package post provides the post model and read-side repository consumed by
// candidate sourcing. Posts are authored elsewhere; this service only reads
// them, so the repository surface is intentionally narrow.
package post

import (
	"context"
	"errors"
	"time"
)

// ErrPostNotFound is returned when a post does not exist.
var ErrPostNotFound = errors.New("post not found")

// Post represents a user post. A non-nil ParentID marks the post as a reply;
// candidate sourcing only considers top-level posts.
type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	ParentID  *string   `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository defines read access to posts for candidate sourcing and
// embedding backfill.
type Repository interface {
	// GetByID retrieves a single post.
	GetByID(ctx context.Context, id string) (*Post, error)

	// ListRecentByAuthors returns the most recent top-level posts authored
	// by any of the given authors, newest first, capped at limit.
	ListRecentByAuthors(ctx context.Context, authorIDs []string, limit int) ([]*Post, error)

	// GetByIDs hydrates the given post IDs, excluding replies. The result
	// order follows the input ID order; missing IDs are silently dropped.
	GetByIDs(ctx context.Context, ids []string) ([]*Post, error)

	// ListRecent returns the most recent posts (replies included), newest
	// first, capped at limit. Used by embedding backfill.
	ListRecent(ctx context.Context, limit int) ([]*Post, error)
}

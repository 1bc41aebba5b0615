// Package embedding provides the embedding store adapter: read/write access
// to user and post embedding vectors and engagement counters. The store is
// the only shared mutable resource in the system; the recommendation
// pipeline and the online learner both go through this package and never
// cache vectors beyond a single request or event.
package embedding

import (
	"context"
	"errors"
	"time"
)

// Vector dimensions used throughout the system.
const (
	// UserDim is the dimension of user embedding vectors.
	UserDim = 128
	// PostDim is the dimension of post embedding vectors.
	PostDim = 128
	// BaseDim is the dimension of the raw text encoding a post embedding
	// is projected from.
	BaseDim = 384
)

// ErrNotFound is returned when no embedding row exists for the given key.
var ErrNotFound = errors.New("embedding not found")

// UserEmbedding is the per-user taste vector. The vector is zero-initialized
// until the first signal-bearing engagement; after any update it is either
// the zero vector or unit-norm.
type UserEmbedding struct {
	UserID          string    `json:"user_id"`
	Vector          []float32 `json:"vector"`
	EngagementCount int       `json:"engagement_count"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// PostEmbedding is the per-post vector, projected from a 384-dim base text
// encoding. IsPretrained stays true until the first online-learning nudge
// touches the vector.
type PostEmbedding struct {
	PostID       string    `json:"post_id"`
	Vector       []float32 `json:"vector"`
	BaseVector   []float32 `json:"base_vector,omitempty"`
	IsPretrained bool      `json:"is_pretrained"`
	ComputedAt   time.Time `json:"computed_at"`
}

// PostVector is the slim (id, vector) pair used by out-of-network sourcing,
// which scans a bounded working set of post vectors without hydrating the
// full rows.
type PostVector struct {
	PostID string
	Vector []float32
}

// Store is the embedding store adapter contract. Implementations must be
// safe for concurrent use; individual operations are atomic but the store
// offers no cross-operation transaction isolation (callers that need
// read-modify-write atomicity serialize per key, see internal/learning).
type Store interface {
	// GetUserEmbedding returns the embedding row for a user, or ErrNotFound.
	GetUserEmbedding(ctx context.Context, userID string) (*UserEmbedding, error)

	// UpsertUserEmbedding inserts or overwrites a user's embedding row.
	UpsertUserEmbedding(ctx context.Context, emb *UserEmbedding) error

	// GetPostEmbedding returns the embedding row for a post, or ErrNotFound.
	GetPostEmbedding(ctx context.Context, postID string) (*PostEmbedding, error)

	// UpsertPostEmbedding inserts or overwrites a post's embedding row.
	UpsertPostEmbedding(ctx context.Context, emb *PostEmbedding) error

	// UpdatePostVector replaces a post's 128-dim vector and clears its
	// pretrained flag, leaving the stored base vector untouched.
	// Returns ErrNotFound if no embedding row exists for the post.
	UpdatePostVector(ctx context.Context, postID string, vector []float32) error

	// ListPostVectors returns up to limit (post_id, vector) pairs forming
	// the out-of-network similarity working set.
	ListPostVectors(ctx context.Context, limit int) ([]PostVector, error)
}

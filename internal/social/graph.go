// Package social provides read access to the follow/block/mute graph used
// for candidate sourcing and social-graph filtering.
package social

import "context"

// Graph defines read access to a user's social edges.
type Graph interface {
	// Following returns the IDs of users the given user follows.
	Following(ctx context.Context, userID string) ([]string, error)

	// BlockedAndMuted returns the author IDs the given user has blocked and
	// muted, respectively.
	BlockedAndMuted(ctx context.Context, userID string) (blocked, muted []string, err error)
}

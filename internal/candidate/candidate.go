// Package candidate defines the post candidate types that flow through the
// recommendation pipeline: sourcing produces them, filters prune them, and
// the scoring pipeline orders them.
package candidate

import "time"

// Candidate is a post eligible for ranking in a single recommendation
// request. Candidates are created by retrieval and treated as read-only by
// every later stage; they are never persisted.
type Candidate struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`

	// InNetwork is true when the post was sourced via the follow graph,
	// false when it was sourced via embedding similarity.
	InNetwork bool `json:"is_in_network"`
}

// Scored pairs a candidate with its running pipeline score.
type Scored struct {
	Candidate Candidate
	Score     float64
}

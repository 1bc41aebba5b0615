package filter

import (
	"time"

	"github.com/ranklab/ranklab/internal/candidate"
)

// Chain runs an ordered sequence of filters, aggregating per-stage removal
// counts for diagnostics. The order affects the removal breakdown but not
// the final surviving set, since every filter is a monotonic predicate.
type Chain struct {
	filters []Filter
}

// NewChain creates a chain from the given filters, applied in order.
func NewChain(filters ...Filter) *Chain {
	return &Chain{filters: filters}
}

// DefaultChain builds the standard pre-scoring chain for a request:
// dedupe, core-data hydration, age window, self-authorship, social graph.
func DefaultChain(userID string, blocked, muted []string, maxAge time.Duration) *Chain {
	return NewChain(
		Dedupe{},
		CoreData{},
		MaxAge{Window: maxAge},
		SelfAuthor{UserID: userID},
		NewSocialGraph(blocked, muted),
	)
}

// Apply runs all filters in order and returns the surviving candidates plus
// a map of filter name to removed count.
func (c *Chain) Apply(candidates []candidate.Candidate) ([]candidate.Candidate, map[string]int) {
	current := candidates
	stats := make(map[string]int, len(c.filters))
	for _, f := range c.filters {
		var removed int
		current, removed = f.Apply(current)
		stats[f.Name()] = removed
	}
	return current, stats
}

// Package filter provides the pre-scoring filter chain: an ordered sequence
// of independent, composable predicate stages that prune the candidate list.
// Filters are pure, side-effect-free, and never reorder survivors, so each
// stage's output length is at most its input length and re-applying a stage
// is a no-op.
package filter

import (
	"time"

	"github.com/ranklab/ranklab/internal/candidate"
)

// Filter names used in the per-stage removal breakdown.
const (
	NameDedupe      = "dedupe"
	NameCoreData    = "core_data"
	NameMaxAge      = "max_age"
	NameSelfAuthor  = "self_author"
	NameSocialGraph = "social_graph"
)

// Filter is a single predicate stage. Apply returns the surviving
// candidates in their original relative order plus the number removed.
type Filter interface {
	Name() string
	Apply(candidates []candidate.Candidate) ([]candidate.Candidate, int)
}

// keep is the shared survivor loop: candidates passing pred survive.
func keep(candidates []candidate.Candidate, pred func(candidate.Candidate) bool) ([]candidate.Candidate, int) {
	out := make([]candidate.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if pred(c) {
			out = append(out, c)
		}
	}
	return out, len(candidates) - len(out)
}

// Dedupe drops candidates whose ID has already been seen; the first
// occurrence wins.
type Dedupe struct{}

// Name returns the filter name.
func (Dedupe) Name() string { return NameDedupe }

// Apply removes duplicate candidate IDs.
func (Dedupe) Apply(candidates []candidate.Candidate) ([]candidate.Candidate, int) {
	seen := make(map[string]bool, len(candidates))
	return keep(candidates, func(c candidate.Candidate) bool {
		if seen[c.ID] {
			return false
		}
		seen[c.ID] = true
		return true
	})
}

// CoreData drops candidates missing required text, author, or timestamp.
type CoreData struct{}

// Name returns the filter name.
func (CoreData) Name() string { return NameCoreData }

// Apply removes candidates with missing core fields.
func (CoreData) Apply(candidates []candidate.Candidate) ([]candidate.Candidate, int) {
	return keep(candidates, func(c candidate.Candidate) bool {
		return c.Text != "" && c.AuthorID != "" && !c.CreatedAt.IsZero()
	})
}

// MaxAge drops candidates older than the window relative to Now. Timestamps
// are normalized to UTC before comparison so naive and offset-bearing times
// compare consistently.
type MaxAge struct {
	Window time.Duration
	// Now supplies the reference time; defaults to time.Now when nil.
	Now func() time.Time
}

// Name returns the filter name.
func (MaxAge) Name() string { return NameMaxAge }

// Apply removes candidates created before now − Window.
func (f MaxAge) Apply(candidates []candidate.Candidate) ([]candidate.Candidate, int) {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	cutoff := now().UTC().Add(-f.Window)
	return keep(candidates, func(c candidate.Candidate) bool {
		return c.CreatedAt.UTC().After(cutoff)
	})
}

// SelfAuthor drops candidates authored by the requesting user.
type SelfAuthor struct {
	UserID string
}

// Name returns the filter name.
func (SelfAuthor) Name() string { return NameSelfAuthor }

// Apply removes the user's own posts.
func (f SelfAuthor) Apply(candidates []candidate.Candidate) ([]candidate.Candidate, int) {
	return keep(candidates, func(c candidate.Candidate) bool {
		return c.AuthorID != f.UserID
	})
}

// SocialGraph drops candidates authored by anyone in the blocked or muted
// sets.
type SocialGraph struct {
	blocked map[string]bool
	muted   map[string]bool
}

// NewSocialGraph creates a SocialGraph filter from blocked and muted author
// ID lists.
func NewSocialGraph(blocked, muted []string) SocialGraph {
	f := SocialGraph{
		blocked: make(map[string]bool, len(blocked)),
		muted:   make(map[string]bool, len(muted)),
	}
	for _, id := range blocked {
		f.blocked[id] = true
	}
	for _, id := range muted {
		f.muted[id] = true
	}
	return f
}

// Name returns the filter name.
func (SocialGraph) Name() string { return NameSocialGraph }

// Apply removes posts from blocked or muted authors.
func (f SocialGraph) Apply(candidates []candidate.Candidate) ([]candidate.Candidate, int) {
	return keep(candidates, func(c candidate.Candidate) bool {
		return !f.blocked[c.AuthorID] && !f.muted[c.AuthorID]
	})
}

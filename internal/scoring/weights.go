package scoring

import (
	"context"
	"time"

	"github.com/ranklab/ranklab/internal/ranker"
)

// ScoringWeight is one row of the action → weight configuration. Inactive
// rows are ignored when loading the effective table.
type ScoringWeight struct {
	ActionType string    `json:"action_type"`
	Weight     float64   `json:"weight"`
	IsActive   bool      `json:"is_active"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DefaultWeights returns the fallback weight table used when no active
// configuration exists. Negative weights penalize predicted negative
// feedback far harder than positive actions reward engagement.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		ranker.ActionLike:          1.0,
		ranker.ActionReply:         1.2,
		ranker.ActionRepost:        1.0,
		ranker.ActionNotInterested: -2.0,
		ranker.ActionBlockAuthor:   -10.0,
		ranker.ActionMuteAuthor:    -5.0,
	}
}

// WeightRepository provides the weight-configuration surface. LoadActive is
// consulted per recommendation request; Upsert and List serve the admin API.
type WeightRepository interface {
	// LoadActive returns the active action → weight table. An empty map
	// means no configuration exists and defaults apply.
	LoadActive(ctx context.Context) (map[string]float64, error)

	// Upsert inserts or updates one weight row.
	Upsert(ctx context.Context, w *ScoringWeight) error

	// List returns all weight rows, active or not.
	List(ctx context.Context) ([]*ScoringWeight, error)
}

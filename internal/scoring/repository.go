package scoring

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ranklab/ranklab/internal/tracing"
)

// MemoryWeightRepository is an in-memory implementation of WeightRepository.
// Thread-safe via RWMutex.
type MemoryWeightRepository struct {
	mu      sync.RWMutex
	weights map[string]*ScoringWeight
}

// NewMemoryWeightRepository creates a new in-memory weight repository.
func NewMemoryWeightRepository() *MemoryWeightRepository {
	return &MemoryWeightRepository{weights: make(map[string]*ScoringWeight)}
}

// LoadActive returns the active action → weight table.
func (r *MemoryWeightRepository) LoadActive(ctx context.Context) (map[string]float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]float64)
	for _, w := range r.weights {
		if w.IsActive {
			out[w.ActionType] = w.Weight
		}
	}
	return out, nil
}

// Upsert inserts or updates one weight row.
func (r *MemoryWeightRepository) Upsert(ctx context.Context, w *ScoringWeight) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *w
	stored.UpdatedAt = time.Now().UTC()
	r.weights[w.ActionType] = &stored
	return nil
}

// List returns all weight rows sorted by action type.
func (r *MemoryWeightRepository) List(ctx context.Context) ([]*ScoringWeight, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*ScoringWeight, 0, len(r.weights))
	for _, w := range r.weights {
		cp := *w
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActionType < out[j].ActionType })
	return out, nil
}

// PostgresWeightRepository implements WeightRepository using PostgreSQL.
type PostgresWeightRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresWeightRepository creates a new PostgresWeightRepository.
func NewPostgresWeightRepository(db *sql.DB, logger *slog.Logger) *PostgresWeightRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresWeightRepository{db: db, logger: logger}
}

// LoadActive returns the active action → weight table.
func (r *PostgresWeightRepository) LoadActive(ctx context.Context) (map[string]float64, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "scoring_weights", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	rows, err := r.db.QueryContext(ctx, `SELECT action_type, weight FROM scoring_weights WHERE is_active`)
	if err != nil {
		return nil, fmt.Errorf("failed to load scoring weights: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var (
			action string
			weight float64
		)
		if err = rows.Scan(&action, &weight); err != nil {
			return nil, fmt.Errorf("failed to scan scoring weight: %w", err)
		}
		out[action] = weight
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scoring weights: %w", err)
	}
	return out, nil
}

// Upsert inserts or updates one weight row.
func (r *PostgresWeightRepository) Upsert(ctx context.Context, w *ScoringWeight) error {
	ctx, endSpan := tracing.StartDBSpan(ctx, "scoring_weights", tracing.DBOperationUpdate)
	var err error
	defer func() { endSpan(err) }()

	query := `
		INSERT INTO scoring_weights (action_type, weight, is_active, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (action_type) DO UPDATE
		SET weight = EXCLUDED.weight,
		    is_active = EXCLUDED.is_active,
		    updated_at = now()
	`
	_, err = r.db.ExecContext(ctx, query, w.ActionType, w.Weight, w.IsActive)
	if err != nil {
		return fmt.Errorf("failed to upsert scoring weight: %w", err)
	}
	return nil
}

// List returns all weight rows sorted by action type.
func (r *PostgresWeightRepository) List(ctx context.Context) ([]*ScoringWeight, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "scoring_weights", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	rows, err := r.db.QueryContext(ctx, `
		SELECT action_type, weight, is_active, updated_at
		FROM scoring_weights
		ORDER BY action_type
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list scoring weights: %w", err)
	}
	defer rows.Close()

	var out []*ScoringWeight
	for rows.Next() {
		w := &ScoringWeight{}
		if err = rows.Scan(&w.ActionType, &w.Weight, &w.IsActive, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scoring weight: %w", err)
		}
		out = append(out, w)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scoring weights: %w", err)
	}
	return out, nil
}

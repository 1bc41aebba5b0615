package social

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/ranklab/ranklab/internal/tracing"
)

// PostgresGraph implements Graph using PostgreSQL follows/blocks/mutes tables.
type PostgresGraph struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresGraph creates a new PostgresGraph.
func NewPostgresGraph(db *sql.DB, logger *slog.Logger) *PostgresGraph {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresGraph{db: db, logger: logger}
}

// Following returns the IDs of users the given user follows.
func (g *PostgresGraph) Following(ctx context.Context, userID string) ([]string, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "follows", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	ids, err := g.queryIDs(ctx, `SELECT following_id FROM follows WHERE follower_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch following set: %w", err)
	}
	return ids, nil
}

// BlockedAndMuted returns the blocked and muted author sets for a user.
func (g *PostgresGraph) BlockedAndMuted(ctx context.Context, userID string) ([]string, []string, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "blocks", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	blocked, err := g.queryIDs(ctx, `SELECT blocked_id FROM blocks WHERE blocker_id = $1`, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch blocked set: %w", err)
	}
	muted, err := g.queryIDs(ctx, `SELECT muted_id FROM mutes WHERE muter_id = $1`, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch muted set: %w", err)
	}
	return blocked, muted, nil
}

func (g *PostgresGraph) queryIDs(ctx context.Context, query, userID string) ([]string, error) {
	rows, err := g.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

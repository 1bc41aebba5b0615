package engagement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ranklab/ranklab/internal/tracing"
)

// PostgresRepository implements Repository using PostgreSQL. Idempotency is
// enforced by a partial unique index over (user_id, post_id, action_type)
// restricted to idempotent action types, so concurrent replays race safely
// at the database.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{db: db, logger: logger}
}

// Insert stores the event. Replays of idempotent actions hit the partial
// unique index, insert nothing, and return the already-stored row. A zero
// createdAt lets the database assign the current time.
func (r *PostgresRepository) Insert(ctx context.Context, userID, postID, actionType string, createdAt time.Time) (*Event, bool, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "engagement_events", tracing.DBOperationInsert)
	var err error
	defer func() { endSpan(err) }()

	event := &Event{
		ID:         uuid.NewString(),
		UserID:     userID,
		PostID:     postID,
		ActionType: actionType,
	}
	clientTime := sql.NullTime{Time: createdAt.UTC(), Valid: !createdAt.IsZero()}

	if !IdempotentActions[actionType] {
		query := `
			INSERT INTO engagement_events (id, user_id, post_id, action_type, created_at)
			VALUES ($1, $2, $3, $4, COALESCE($5, now()))
			RETURNING created_at
		`
		if err = r.db.QueryRowContext(ctx, query, event.ID, userID, postID, actionType, clientTime).Scan(&event.CreatedAt); err != nil {
			return nil, false, fmt.Errorf("failed to insert engagement event: %w", err)
		}
		return event, true, nil
	}

	query := `
		INSERT INTO engagement_events (id, user_id, post_id, action_type, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
		ON CONFLICT (user_id, post_id, action_type) WHERE action_type IN ('like', 'repost', 'not_interested', 'block_author', 'mute_author')
		DO NOTHING
		RETURNING created_at
	`
	err = r.db.QueryRowContext(ctx, query, event.ID, userID, postID, actionType, clientTime).Scan(&event.CreatedAt)
	if err == nil {
		return event, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to insert engagement event: %w", err)
	}

	// Conflict: fetch the stored row so the caller sees the original event.
	existing := &Event{UserID: userID, PostID: postID, ActionType: actionType}
	err = r.db.QueryRowContext(ctx, `
		SELECT id, created_at FROM engagement_events
		WHERE user_id = $1 AND post_id = $2 AND action_type = $3
	`, userID, postID, actionType).Scan(&existing.ID, &existing.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load existing engagement event: %w", err)
	}
	return existing, false, nil
}

// ListByUser returns the user's events, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*Event, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "engagement_events", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, post_id, action_type, created_at
		FROM engagement_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list engagement events: %w", err)
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		e := &Event{}
		if err = rows.Scan(&e.ID, &e.UserID, &e.PostID, &e.ActionType, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan engagement event: %w", err)
		}
		out = append(out, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate engagement events: %w", err)
	}
	return out, nil
}

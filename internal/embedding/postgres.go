package embedding

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/fxamacker/cbor/v2"
	"github.com/pgvector/pgvector-go"

	"github.com/ranklab/ranklab/internal/tracing"
)

// PostgresStore implements Store using PostgreSQL with the pgvector
// extension. The 128-dim searchable vectors live in vector(128) columns;
// the 384-dim base text encoding is never searched and is stored as
// CBOR-encoded bytea.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

// GetUserEmbedding returns the embedding row for a user, or ErrNotFound.
func (s *PostgresStore) GetUserEmbedding(ctx context.Context, userID string) (*UserEmbedding, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "user_embeddings", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	query := `
		SELECT vector, engagement_count, updated_at
		FROM user_embeddings
		WHERE user_id = $1
	`
	var vec pgvector.Vector
	emb := &UserEmbedding{UserID: userID}
	err = s.db.QueryRowContext(ctx, query, userID).Scan(&vec, &emb.EngagementCount, &emb.UpdatedAt)
	if err == sql.ErrNoRows {
		err = ErrNotFound
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user embedding: %w", err)
	}
	emb.Vector = vec.Slice()
	return emb, nil
}

// UpsertUserEmbedding inserts or overwrites a user's embedding row.
func (s *PostgresStore) UpsertUserEmbedding(ctx context.Context, emb *UserEmbedding) error {
	ctx, endSpan := tracing.StartDBSpan(ctx, "user_embeddings", tracing.DBOperationUpdate)
	var err error
	defer func() { endSpan(err) }()

	query := `
		INSERT INTO user_embeddings (user_id, vector, engagement_count, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id) DO UPDATE
		SET vector = EXCLUDED.vector,
		    engagement_count = EXCLUDED.engagement_count,
		    updated_at = now()
	`
	_, err = s.db.ExecContext(ctx, query, emb.UserID, pgvector.NewVector(emb.Vector), emb.EngagementCount)
	if err != nil {
		return fmt.Errorf("failed to upsert user embedding: %w", err)
	}
	return nil
}

// GetPostEmbedding returns the embedding row for a post, or ErrNotFound.
func (s *PostgresStore) GetPostEmbedding(ctx context.Context, postID string) (*PostEmbedding, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "post_embeddings", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	query := `
		SELECT vector_128, base_vector_384, is_pretrained, computed_at
		FROM post_embeddings
		WHERE post_id = $1
	`
	var (
		vec  pgvector.Vector
		base []byte
	)
	emb := &PostEmbedding{PostID: postID}
	err = s.db.QueryRowContext(ctx, query, postID).Scan(&vec, &base, &emb.IsPretrained, &emb.ComputedAt)
	if err == sql.ErrNoRows {
		err = ErrNotFound
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post embedding: %w", err)
	}
	emb.Vector = vec.Slice()
	if len(base) > 0 {
		if err = cbor.Unmarshal(base, &emb.BaseVector); err != nil {
			return nil, fmt.Errorf("failed to decode base vector: %w", err)
		}
	}
	return emb, nil
}

// UpsertPostEmbedding inserts or overwrites a post's embedding row.
func (s *PostgresStore) UpsertPostEmbedding(ctx context.Context, emb *PostEmbedding) error {
	ctx, endSpan := tracing.StartDBSpan(ctx, "post_embeddings", tracing.DBOperationUpdate)
	var err error
	defer func() { endSpan(err) }()

	var base []byte
	if len(emb.BaseVector) > 0 {
		base, err = cbor.Marshal(emb.BaseVector)
		if err != nil {
			return fmt.Errorf("failed to encode base vector: %w", err)
		}
	}

	query := `
		INSERT INTO post_embeddings (post_id, vector_128, base_vector_384, is_pretrained, computed_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (post_id) DO UPDATE
		SET vector_128 = EXCLUDED.vector_128,
		    base_vector_384 = COALESCE(EXCLUDED.base_vector_384, post_embeddings.base_vector_384),
		    is_pretrained = EXCLUDED.is_pretrained,
		    computed_at = now()
	`
	_, err = s.db.ExecContext(ctx, query, emb.PostID, pgvector.NewVector(emb.Vector), base, emb.IsPretrained)
	if err != nil {
		return fmt.Errorf("failed to upsert post embedding: %w", err)
	}
	return nil
}

// UpdatePostVector replaces a post's vector and clears its pretrained flag.
// Returns ErrNotFound if no embedding row exists for the post.
func (s *PostgresStore) UpdatePostVector(ctx context.Context, postID string, vector []float32) error {
	ctx, endSpan := tracing.StartDBSpan(ctx, "post_embeddings", tracing.DBOperationUpdate)
	var err error
	defer func() { endSpan(err) }()

	query := `
		UPDATE post_embeddings
		SET vector_128 = $2, is_pretrained = false
		WHERE post_id = $1
	`
	res, err := s.db.ExecContext(ctx, query, postID, pgvector.NewVector(vector))
	if err != nil {
		return fmt.Errorf("failed to update post vector: %w", err)
	}
	rows, raErr := res.RowsAffected()
	if raErr != nil {
		err = raErr
		return fmt.Errorf("failed to check update result: %w", raErr)
	}
	if rows == 0 {
		err = ErrNotFound
		return ErrNotFound
	}
	return nil
}

// ListPostVectors returns up to limit (post_id, vector) pairs forming the
// out-of-network similarity working set, newest rows first.
func (s *PostgresStore) ListPostVectors(ctx context.Context, limit int) ([]PostVector, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "post_embeddings", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	query := `
		SELECT post_id, vector_128
		FROM post_embeddings
		ORDER BY computed_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list post vectors: %w", err)
	}
	defer rows.Close()

	var out []PostVector
	for rows.Next() {
		var (
			pv  PostVector
			vec pgvector.Vector
		)
		if err = rows.Scan(&pv.PostID, &vec); err != nil {
			return nil, fmt.Errorf("failed to scan post vector: %w", err)
		}
		pv.Vector = vec.Slice()
		out = append(out, pv)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate post vectors: %w", err)
	}
	return out, nil
}

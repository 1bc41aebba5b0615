package post

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/ranklab/ranklab/internal/tracing"
)

// PostgresRepository implements Repository using PostgreSQL.
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

// GetByID retrieves a single post.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Post, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "posts", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	query := `
		SELECT id, author_id, text, parent_id, created_at
		FROM posts
		WHERE id = $1
	`
	p := &Post{}
	err = r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.AuthorID, &p.Text, &p.ParentID, &p.CreatedAt)
	if err == sql.ErrNoRows {
		err = ErrPostNotFound
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return p, nil
}

// ListRecentByAuthors returns the most recent top-level posts by the given
// authors, newest first.
func (r *PostgresRepository) ListRecentByAuthors(ctx context.Context, authorIDs []string, limit int) ([]*Post, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "posts", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	query := `
		SELECT id, author_id, text, parent_id, created_at
		FROM posts
		WHERE author_id = ANY($1) AND parent_id IS NULL
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(authorIDs), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts by authors: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// GetByIDs hydrates the given post IDs in input order, excluding replies.
func (r *PostgresRepository) GetByIDs(ctx context.Context, ids []string) ([]*Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "posts", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	query := `
		SELECT id, author_id, text, parent_id, created_at
		FROM posts
		WHERE id = ANY($1) AND parent_id IS NULL
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to hydrate posts: %w", err)
	}
	defer rows.Close()

	posts, err := scanPosts(rows)
	if err != nil {
		return nil, err
	}

	// Restore the caller's ID order (similarity rank).
	byID := make(map[string]*Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	ordered := make([]*Post, 0, len(posts))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

// ListRecent returns the most recent posts, newest first.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]*Post, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "posts", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	query := `
		SELECT id, author_id, text, parent_id, created_at
		FROM posts
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

func scanPosts(rows *sql.Rows) ([]*Post, error) {
	var posts []*Post
	for rows.Next() {
		p := &Post{}
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Text, &p.ParentID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}
	return posts, nil
}

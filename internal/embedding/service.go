package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ranklab/ranklab/internal/post"
)

// Encoder produces the 384-dim base text encoding for a post.
// Implemented by ranker.OpenAIEncoder.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// Projector projects a 384-dim base encoding down to the 128-dim candidate
// space. Implemented by ranker.ServiceClient.
type Projector interface {
	Project(ctx context.Context, base []float32) ([]float32, error)
}

// Service computes and persists post embeddings. Out-of-network sourcing
// only considers posts that already have an embedding row, so this service
// should run whenever a post is created, with Backfill sweeping up stragglers.
type Service struct {
	store     Store
	posts     post.Repository
	encoder   Encoder
	projector Projector
	logger    *slog.Logger
}

// NewService creates a new embedding service.
func NewService(store Store, posts post.Repository, encoder Encoder, projector Projector, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		posts:     posts,
		encoder:   encoder,
		projector: projector,
		logger:    logger,
	}
}

// ComputeAndStore encodes the post content, projects it into the candidate
// space, and upserts the embedding row. Returns the stored 128-dim vector.
func (s *Service) ComputeAndStore(ctx context.Context, postID, content string) ([]float32, error) {
	base, err := s.encoder.Encode(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("failed to encode post text: %w", err)
	}

	vec, err := s.projector.Project(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("failed to project post embedding: %w", err)
	}

	emb := &PostEmbedding{
		PostID:       postID,
		Vector:       vec,
		BaseVector:   base,
		IsPretrained: true,
	}
	if err := s.store.UpsertPostEmbedding(ctx, emb); err != nil {
		return nil, fmt.Errorf("failed to store post embedding: %w", err)
	}

	s.logger.Debug("stored post embedding", "post_id", postID, "dim", len(vec))
	return vec, nil
}

// Backfill computes embeddings for recent posts that do not have one yet.
// Returns the number of posts processed. Per-post failures are logged and
// skipped so one bad post cannot stall the sweep.
func (s *Service) Backfill(ctx context.Context, batchSize int) (int, error) {
	posts, err := s.posts.ListRecent(ctx, batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list posts for backfill: %w", err)
	}

	count := 0
	for _, p := range posts {
		if p.Text == "" {
			continue
		}
		_, err := s.store.GetPostEmbedding(ctx, p.ID)
		if err == nil {
			continue // already embedded
		}
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("failed to check existing embedding", "post_id", p.ID, "error", err)
			continue
		}
		if _, err := s.ComputeAndStore(ctx, p.ID, p.Text); err != nil {
			s.logger.Warn("failed to backfill embedding", "post_id", p.ID, "error", err)
			continue
		}
		count++
	}

	s.logger.Info("backfilled post embeddings", "processed", count, "scanned", len(posts))
	return count, nil
}

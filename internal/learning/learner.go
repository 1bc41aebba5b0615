// Package learning applies online embedding updates from engagement events.
// Updates run fire-and-forget relative to event logging: failures are logged
// and never propagate back to the caller that recorded the event.
package learning

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/ranklab/ranklab/internal/embedding"
	"github.com/ranklab/ranklab/internal/ranker"
)

// Update parameters.
const (
	// DefaultBaseAlpha caps the user-embedding EMA learning rate.
	DefaultBaseAlpha = 0.1
	// DefaultPostLearningRate scales the post-embedding nudge.
	DefaultPostLearningRate = 0.01

	lockStripes = 64
)

// Signals maps action types to their signed update magnitude. A zero signal
// is a no-op: views never move embeddings.
var Signals = map[string]float64{
	ranker.ActionLike:          1.0,
	ranker.ActionReply:         1.5,
	ranker.ActionRepost:        1.0,
	ranker.ActionNotInterested: -1.0,
	ranker.ActionBlockAuthor:   -2.0,
	ranker.ActionMuteAuthor:    -1.5,
	ranker.ActionView:          0.0,
}

// Learner performs per-engagement embedding updates. Read-modify-write
// sequences for one user or post are serialized through striped mutexes so
// concurrent events on the same key cannot lose updates within this process.
type Learner struct {
	store     embedding.Store
	logger    *slog.Logger
	metrics   *Metrics
	baseAlpha float64
	postLR    float64

	userLocks [lockStripes]sync.Mutex
	postLocks [lockStripes]sync.Mutex
}

// NewLearner creates a learner with default parameters.
func NewLearner(store embedding.Store, logger *slog.Logger) *Learner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Learner{
		store:     store,
		logger:    logger,
		baseAlpha: DefaultBaseAlpha,
		postLR:    DefaultPostLearningRate,
	}
}

// WithMetrics attaches learning metrics. A nil-metrics learner records
// nothing.
func (l *Learner) WithMetrics(m *Metrics) *Learner {
	l.metrics = m
	return l
}

func stripe(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % lockStripes)
}

// Apply runs both embedding updates for one engagement. It never returns an
// error to the caller path that logged the event; failures are logged here.
func (l *Learner) Apply(ctx context.Context, userID, postID, actionType string) {
	signal, ok := Signals[actionType]
	if !ok || signal == 0 {
		l.metrics.IncSkipped(SkipZeroSignal)
		return
	}

	// Both endpoints must already have an embedding row. An event on an
	// unseen user or post is ignored entirely, never partially applied.
	if _, err := l.store.GetUserEmbedding(ctx, userID); err != nil {
		l.logger.Debug("skipping embedding update",
			slog.String("user_id", userID),
			slog.String("reason", err.Error()))
		l.metrics.IncSkipped(SkipMissingEmbedding)
		return
	}

	postEmb, err := l.store.GetPostEmbedding(ctx, postID)
	if err != nil {
		l.logger.Debug("skipping embedding update",
			slog.String("post_id", postID),
			slog.String("reason", err.Error()))
		l.metrics.IncSkipped(SkipMissingEmbedding)
		return
	}

	userVec, err := l.updateUser(ctx, userID, signal, postEmb.Vector)
	if err != nil {
		l.logger.Error("user embedding update failed",
			slog.String("user_id", userID),
			slog.String("post_id", postID),
			slog.String("error", err.Error()))
		l.metrics.IncFailure("user")
		return
	}

	if err := l.updatePost(ctx, postID, signal, userVec); err != nil {
		l.logger.Error("post embedding update failed",
			slog.String("user_id", userID),
			slog.String("post_id", postID),
			slog.String("error", err.Error()))
		l.metrics.IncFailure("post")
		return
	}
	l.metrics.IncApplied()
}

// updateUser applies the EMA update and returns the user vector as read
// before the update, so the post nudge sees the pre-update state.
func (l *Learner) updateUser(ctx context.Context, userID string, signal float64, postVec []float32) ([]float32, error) {
	lock := &l.userLocks[stripe(userID)]
	lock.Lock()
	defer lock.Unlock()

	current, err := l.store.GetUserEmbedding(ctx, userID)
	if err != nil && err != embedding.ErrNotFound {
		return nil, fmt.Errorf("failed to read user embedding: %w", err)
	}
	if current == nil {
		// Row vanished between the existence gate and this locked read.
		current = &embedding.UserEmbedding{
			UserID: userID,
			Vector: embedding.Zero(embedding.UserDim),
		}
	}
	before := make([]float32, len(current.Vector))
	copy(before, current.Vector)

	alpha := l.baseAlpha
	if adaptive := 1.0 / float64(current.EngagementCount+1); adaptive < alpha {
		alpha = adaptive
	}

	updated := make([]float32, len(current.Vector))
	for i := range updated {
		var p float32
		if i < len(postVec) {
			p = postVec[i]
		}
		updated[i] = float32((1-alpha)*float64(current.Vector[i]) + alpha*signal*float64(p))
	}

	next := &embedding.UserEmbedding{
		UserID:          userID,
		Vector:          embedding.Normalize(updated),
		EngagementCount: current.EngagementCount + 1,
		UpdatedAt:       time.Now().UTC(),
	}
	if err := l.store.UpsertUserEmbedding(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to write user embedding: %w", err)
	}
	return before, nil
}

func (l *Learner) updatePost(ctx context.Context, postID string, signal float64, userVec []float32) error {
	lock := &l.postLocks[stripe(postID)]
	lock.Lock()
	defer lock.Unlock()

	current, err := l.store.GetPostEmbedding(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to read post embedding: %w", err)
	}

	updated := make([]float32, len(current.Vector))
	for i := range updated {
		var u float32
		if i < len(userVec) {
			u = userVec[i]
		}
		updated[i] = current.Vector[i] + float32(l.postLR*signal*float64(u))
	}

	if err := l.store.UpdatePostVector(ctx, postID, embedding.Normalize(updated)); err != nil {
		return fmt.Errorf("failed to write post embedding: %w", err)
	}
	return nil
}

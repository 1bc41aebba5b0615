package embedding

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store.
// Thread-safe via RWMutex. Vectors are copied on read and write so callers
// can never alias store-internal state.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*UserEmbedding
	posts map[string]*PostEmbedding
	// order tracks post insertion so ListPostVectors can walk newest-first.
	order []string
}

// NewMemoryStore creates a new in-memory embedding store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*UserEmbedding),
		posts: make(map[string]*PostEmbedding),
	}
}

func copyVec(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

// GetUserEmbedding returns the embedding row for a user, or ErrNotFound.
func (s *MemoryStore) GetUserEmbedding(ctx context.Context, userID string) (*UserEmbedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	emb, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *emb
	out.Vector = copyVec(emb.Vector)
	return &out, nil
}

// UpsertUserEmbedding inserts or overwrites a user's embedding row.
func (s *MemoryStore) UpsertUserEmbedding(ctx context.Context, emb *UserEmbedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *emb
	stored.Vector = copyVec(emb.Vector)
	stored.UpdatedAt = time.Now().UTC()
	s.users[emb.UserID] = &stored
	return nil
}

// GetPostEmbedding returns the embedding row for a post, or ErrNotFound.
func (s *MemoryStore) GetPostEmbedding(ctx context.Context, postID string) (*PostEmbedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	emb, ok := s.posts[postID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *emb
	out.Vector = copyVec(emb.Vector)
	out.BaseVector = copyVec(emb.BaseVector)
	return &out, nil
}

// UpsertPostEmbedding inserts or overwrites a post's embedding row.
func (s *MemoryStore) UpsertPostEmbedding(ctx context.Context, emb *PostEmbedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.posts[emb.PostID]; !exists {
		s.order = append(s.order, emb.PostID)
	}
	stored := *emb
	stored.Vector = copyVec(emb.Vector)
	stored.BaseVector = copyVec(emb.BaseVector)
	if stored.ComputedAt.IsZero() {
		stored.ComputedAt = time.Now().UTC()
	}
	s.posts[emb.PostID] = &stored
	return nil
}

// UpdatePostVector replaces a post's vector and clears its pretrained flag.
func (s *MemoryStore) UpdatePostVector(ctx context.Context, postID string, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	emb, ok := s.posts[postID]
	if !ok {
		return ErrNotFound
	}
	emb.Vector = copyVec(vector)
	emb.IsPretrained = false
	return nil
}

// ListPostVectors returns up to limit (post_id, vector) pairs, newest
// insertion first, matching the SQL store's computed_at ordering.
func (s *MemoryStore) ListPostVectors(ctx context.Context, limit int) ([]PostVector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]PostVector, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		id := s.order[i]
		out = append(out, PostVector{PostID: id, Vector: copyVec(s.posts[id].Vector)})
	}
	return out, nil
}

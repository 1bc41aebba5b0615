package post

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type MemoryRepository struct {
	mu    sync.RWMutex
	posts map[string]*Post
}

// NewMemoryRepository creates a new in-memory post repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{posts: make(map[string]*Post)}
}

// Add stores a post, generating an ID when absent. Test and seed helper.
func (r *MemoryRepository) Add(p *Post) *Post {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	stored := *p
	r.posts[p.ID] = &stored
	return p
}

// GetByID retrieves a single post.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	out := *p
	return &out, nil
}

// ListRecentByAuthors returns the most recent top-level posts by the given
// authors, newest first.
func (r *MemoryRepository) ListRecentByAuthors(ctx context.Context, authorIDs []string, limit int) ([]*Post, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}

	authors := make(map[string]bool, len(authorIDs))
	for _, id := range authorIDs {
		authors[id] = true
	}

	r.mu.RLock()
	var matched []*Post
	for _, p := range r.posts {
		if p.ParentID == nil && authors[p.AuthorID] {
			out := *p
			matched = append(matched, &out)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// GetByIDs hydrates the given post IDs in input order, excluding replies.
func (r *MemoryRepository) GetByIDs(ctx context.Context, ids []string) ([]*Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Post, 0, len(ids))
	for _, id := range ids {
		p, ok := r.posts[id]
		if !ok || p.ParentID != nil {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

// ListRecent returns the most recent posts, newest first.
func (r *MemoryRepository) ListRecent(ctx context.Context, limit int) ([]*Post, error) {
	r.mu.RLock()
	all := make([]*Post, 0, len(r.posts))
	for _, p := range r.posts {
		out := *p
		all = append(all, &out)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

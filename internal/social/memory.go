package social

import (
	"context"
	"sync"
)

// MemoryGraph is an in-memory implementation of Graph.
// Thread-safe via RWMutex.
type MemoryGraph struct {
	mu      sync.RWMutex
	follows map[string][]string
	blocks  map[string][]string
	mutes   map[string][]string
}

// NewMemoryGraph creates a new in-memory social graph.
func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		follows: make(map[string][]string),
		blocks:  make(map[string][]string),
		mutes:   make(map[string][]string),
	}
}

// Follow records that follower follows followee.
func (g *MemoryGraph) Follow(follower, followee string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.follows[follower] = append(g.follows[follower], followee)
}

// Block records that blocker blocked the given author.
func (g *MemoryGraph) Block(blocker, author string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.blocks[blocker] = append(g.blocks[blocker], author)
}

// Mute records that muter muted the given author.
func (g *MemoryGraph) Mute(muter, author string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mutes[muter] = append(g.mutes[muter], author)
}

// Following returns the IDs of users the given user follows.
func (g *MemoryGraph) Following(ctx context.Context, userID string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.follows[userID]...), nil
}

// BlockedAndMuted returns the blocked and muted author sets for a user.
func (g *MemoryGraph) BlockedAndMuted(ctx context.Context, userID string) ([]string, []string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	blocked := append([]string(nil), g.blocks[userID]...)
	muted := append([]string(nil), g.mutes[userID]...)
	return blocked, muted, nil
}

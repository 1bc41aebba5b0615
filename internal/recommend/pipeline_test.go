package recommend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ranklab/ranklab/internal/embedding"
	"github.com/ranklab/ranklab/internal/post"
	"github.com/ranklab/ranklab/internal/ranker"
	"github.com/ranklab/ranklab/internal/scoring"
	"github.com/ranklab/ranklab/internal/social"
)

func newTestPipeline(store *embedding.MemoryStore, posts *post.MemoryRepository, graph social.Graph) *Pipeline {
	return NewPipeline(store, posts, graph, &ranker.StubModel{}, scoring.NewMemoryWeightRepository(), nil, nil, Config{})
}

// TestPipeline_EmptyInput verifies a user with no follows and no embedding
// gets a well-formed empty response, not an error.
func TestPipeline_EmptyInput(t *testing.T) {
	pipeline := newTestPipeline(embedding.NewMemoryStore(), post.NewMemoryRepository(), social.NewMemoryGraph())

	resp, err := pipeline.Recommend(context.Background(), "u1", 30)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(resp.Posts) != 0 {
		t.Errorf("expected no posts, got %d", len(resp.Posts))
	}
	if len(resp.Scores) != 0 {
		t.Errorf("expected no scores, got %d", len(resp.Scores))
	}
	if resp.TotalCandidates != 0 {
		t.Errorf("expected total_candidates 0, got %d", resp.TotalCandidates)
	}
	if resp.UserID != "u1" {
		t.Errorf("expected user_id u1, got %s", resp.UserID)
	}
}

// TestPipeline_InNetworkFlow verifies follows produce ranked in-network
// recommendations with parallel score lists.
func TestPipeline_InNetworkFlow(t *testing.T) {
	store := embedding.NewMemoryStore()
	posts := post.NewMemoryRepository()
	graph := social.NewMemoryGraph()

	graph.Follow("u1", "author1")
	for i := 0; i < 5; i++ {
		posts.Add(&post.Post{
			AuthorID:  "author1",
			Text:      string(rune('a' + i)),
			CreatedAt: time.Now().Add(-time.Duration(i) * time.Hour),
		})
	}

	pipeline := newTestPipeline(store, posts, graph)
	resp, err := pipeline.Recommend(context.Background(), "u1", 3)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if resp.TotalCandidates != 5 {
		t.Errorf("expected 5 sourced candidates, got %d", resp.TotalCandidates)
	}
	if len(resp.Posts) != 3 {
		t.Fatalf("expected truncation to 3 posts, got %d", len(resp.Posts))
	}
	if len(resp.Scores) != len(resp.Posts) {
		t.Fatalf("posts and scores not parallel: %d vs %d", len(resp.Posts), len(resp.Scores))
	}
	for i := 1; i < len(resp.Scores); i++ {
		if resp.Scores[i] > resp.Scores[i-1] {
			t.Errorf("scores not descending at position %d", i)
		}
	}
}

// TestPipeline_FiltersSelfAndBlocked verifies the filter chain runs: the
// requester's own posts and blocked authors never surface.
func TestPipeline_FiltersSelfAndBlocked(t *testing.T) {
	store := embedding.NewMemoryStore()
	posts := post.NewMemoryRepository()
	graph := social.NewMemoryGraph()

	graph.Follow("u1", "u1")
	graph.Follow("u1", "friend")
	graph.Follow("u1", "enemy")
	graph.Block("u1", "enemy")

	posts.Add(&post.Post{AuthorID: "u1", Text: "mine", CreatedAt: time.Now()})
	posts.Add(&post.Post{AuthorID: "friend", Text: "ok", CreatedAt: time.Now()})
	posts.Add(&post.Post{AuthorID: "enemy", Text: "blocked", CreatedAt: time.Now()})

	pipeline := newTestPipeline(store, posts, graph)
	resp, err := pipeline.Recommend(context.Background(), "u1", 30)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(resp.Posts) != 1 {
		t.Fatalf("expected 1 surviving post, got %d", len(resp.Posts))
	}
	if resp.Posts[0].AuthorID != "friend" {
		t.Errorf("expected friend's post, got author %s", resp.Posts[0].AuthorID)
	}
	// Total counts everything sourced before filtering.
	if resp.TotalCandidates != 3 {
		t.Errorf("expected total_candidates 3, got %d", resp.TotalCandidates)
	}
}

// TestPipeline_OONSourcing verifies embedding similarity surfaces posts from
// unfollowed authors, excluding replies.
func TestPipeline_OONSourcing(t *testing.T) {
	store := embedding.NewMemoryStore()
	posts := post.NewMemoryRepository()
	graph := social.NewMemoryGraph()
	ctx := context.Background()

	userVec := embedding.Zero(embedding.UserDim)
	userVec[0] = 1
	if err := store.UpsertUserEmbedding(ctx, &embedding.UserEmbedding{UserID: "u1", Vector: userVec, EngagementCount: 3}); err != nil {
		t.Fatalf("failed to seed user embedding: %v", err)
	}

	near := posts.Add(&post.Post{AuthorID: "stranger", Text: "similar", CreatedAt: time.Now()})
	parent := "x"
	reply := posts.Add(&post.Post{AuthorID: "stranger", Text: "reply", ParentID: &parent, CreatedAt: time.Now()})
	for i, id := range []string{near.ID, reply.ID} {
		vec := embedding.Zero(embedding.PostDim)
		vec[0] = 1 - float32(i)*0.1
		if err := store.UpsertPostEmbedding(ctx, &embedding.PostEmbedding{PostID: id, Vector: vec, IsPretrained: true}); err != nil {
			t.Fatalf("failed to seed post embedding: %v", err)
		}
	}

	pipeline := newTestPipeline(store, posts, graph)
	resp, err := pipeline.Recommend(ctx, "u1", 30)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(resp.Posts) != 1 {
		t.Fatalf("expected 1 OON post (reply excluded), got %d", len(resp.Posts))
	}
	if resp.Posts[0].ID != near.ID {
		t.Errorf("expected post %s, got %s", near.ID, resp.Posts[0].ID)
	}
}

type failingGraph struct{}

func (failingGraph) Following(ctx context.Context, userID string) ([]string, error) {
	return nil, errors.New("graph unavailable")
}

func (failingGraph) BlockedAndMuted(ctx context.Context, userID string) ([]string, []string, error) {
	return nil, nil, errors.New("graph unavailable")
}

// TestPipeline_DegradesOnGraphFailure verifies sourcing failures yield an
// empty response instead of an error.
func TestPipeline_DegradesOnGraphFailure(t *testing.T) {
	pipeline := newTestPipeline(embedding.NewMemoryStore(), post.NewMemoryRepository(), failingGraph{})

	resp, err := pipeline.Recommend(context.Background(), "u1", 30)
	if err != nil {
		t.Fatalf("expected graceful degradation, got error: %v", err)
	}
	if resp.TotalCandidates != 0 || len(resp.Posts) != 0 {
		t.Errorf("expected empty response, got %d candidates", resp.TotalCandidates)
	}
}

func TestClampLimit(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, DefaultLimit},
		{-5, DefaultLimit},
		{10, 10},
		{100, 100},
		{101, MaxLimit},
	}
	for _, tc := range cases {
		if got := ClampLimit(tc.in); got != tc.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

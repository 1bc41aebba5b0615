package engagement

import (
	"context"
	"testing"
	"time"

	"github.com/ranklab/ranklab/internal/ranker"
)

func TestMemoryRepository_InsertAssignsIDAndTime(t *testing.T) {
	repo := NewMemoryRepository()

	event, inserted, err := repo.Insert(context.Background(), "u1", "p1", ranker.ActionLike, time.Time{})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if !inserted {
		t.Error("expected first insert to report inserted")
	}
	if event.ID == "" {
		t.Error("expected assigned event ID")
	}
	if event.CreatedAt.IsZero() {
		t.Error("expected assigned timestamp")
	}
}

// TestMemoryRepository_ClientTimestamp verifies a non-zero createdAt is
// stored as given, for clients that buffer events offline.
func TestMemoryRepository_ClientTimestamp(t *testing.T) {
	repo := NewMemoryRepository()
	stamp := time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC)

	event, _, err := repo.Insert(context.Background(), "u1", "p1", ranker.ActionLike, stamp)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if !event.CreatedAt.Equal(stamp) {
		t.Errorf("expected client timestamp %v, got %v", stamp, event.CreatedAt)
	}
}

// TestMemoryRepository_DuplicateLikeNotStored verifies a replayed idempotent
// action stores nothing and returns the original event.
func TestMemoryRepository_DuplicateLikeNotStored(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	first, inserted, err := repo.Insert(ctx, "u1", "p1", ranker.ActionLike, time.Time{})
	if err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}

	second, inserted, err := repo.Insert(ctx, "u1", "p1", ranker.ActionLike, time.Time{})
	if err != nil {
		t.Fatalf("second insert failed: %v", err)
	}
	if inserted {
		t.Error("expected replay to report not inserted")
	}
	if second.ID != first.ID {
		t.Errorf("expected original event back, got %s vs %s", second.ID, first.ID)
	}

	events, err := repo.ListByUser(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 stored event, got %d", len(events))
	}
}

// TestMemoryRepository_RepliesMayRepeat verifies non-idempotent actions are
// stored every time.
func TestMemoryRepository_RepliesMayRepeat(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, inserted, err := repo.Insert(ctx, "u1", "p1", ranker.ActionReply, time.Time{}); err != nil || !inserted {
			t.Fatalf("reply %d: inserted=%v err=%v", i, inserted, err)
		}
	}

	events, _ := repo.ListByUser(ctx, "u1", 10)
	if len(events) != 3 {
		t.Errorf("expected 3 reply events, got %d", len(events))
	}
}

// TestMemoryRepository_SameActionDifferentPosts verifies the dedupe key is
// scoped to the (user, post, action) triple.
func TestMemoryRepository_SameActionDifferentPosts(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if _, inserted, _ := repo.Insert(ctx, "u1", "p1", ranker.ActionLike, time.Time{}); !inserted {
		t.Fatal("expected insert for p1")
	}
	if _, inserted, _ := repo.Insert(ctx, "u1", "p2", ranker.ActionLike, time.Time{}); !inserted {
		t.Error("expected insert for p2: different post is not a replay")
	}
	if _, inserted, _ := repo.Insert(ctx, "u2", "p1", ranker.ActionLike, time.Time{}); !inserted {
		t.Error("expected insert for u2: different user is not a replay")
	}
}

func TestMemoryRepository_ListByUserNewestFirstAndLimited(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	posts := []string{"p1", "p2", "p3"}
	for _, p := range posts {
		if _, _, err := repo.Insert(ctx, "u1", p, ranker.ActionLike, time.Time{}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	events, err := repo.ListByUser(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].PostID != "p3" || events[1].PostID != "p2" {
		t.Errorf("expected newest first, got %s then %s", events[0].PostID, events[1].PostID)
	}
}

package memory

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"weekly-trivia/internal/domain"
)

func TestCredentialStoreLifecycle(t *testing.T) {
	store := NewCredentialStore()
	ctx := context.Background()

	if _, err := store.Load(ctx, "default"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	cookies := []*http.Cookie{{Name: "session", Value: "abc"}}
	if err := store.Save(ctx, "default", cookies); err != nil {
		t.Fatalf("save: %v", err)
	}
	cookies[0].Value = "mutated"

	got, err := store.Load(ctx, "default")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].Value != "abc" {
		t.Fatalf("expected stored copy, got %+v", got)
	}
	if _, err := store.Load(ctx, "other"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("profiles must be separate, got %v", err)
	}

	if err := store.Clear(ctx, "default"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := store.Load(ctx, "default"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected cleared, got %v", err)
	}
}

func TestPanelCacheExpires(t *testing.T) {
	cache := NewPanelCache(time.Minute)
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	cache.clock = func() time.Time { return now }
	ctx := context.Background()

	panels := domain.Panels{
		Leaderboard: []domain.LeaderboardEntry{{Username: "alice", TotalPoints: 150}},
		Stats:       &domain.Stats{Answered: 1, TotalAvailable: 7, TotalPoints: 150},
	}
	if err := cache.SavePanels(ctx, "default", panels); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := cache.LoadPanels(ctx, "default")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Stats.TotalPoints != 150 || got.Leaderboard[0].Username != "alice" {
		t.Fatalf("unexpected panels: %+v", got)
	}

	now = now.Add(2 * time.Minute)
	if _, err := cache.LoadPanels(ctx, "default"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestJournalRecentNewestFirst(t *testing.T) {
	journal := NewJournal()
	ctx := context.Background()

	for _, qid := range []string{"q1", "q2", "q3"} {
		if err := journal.Record(ctx, "default", domain.JournalEntry{QID: qid}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	recent, err := journal.Recent(ctx, "default", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].QID != "q3" || recent[1].QID != "q2" {
		t.Fatalf("unexpected order: %+v", recent)
	}

	all, _ := journal.Recent(ctx, "default", 0)
	if len(all) != 3 {
		t.Fatalf("expected all entries, got %d", len(all))
	}
}

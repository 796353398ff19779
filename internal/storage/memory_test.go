package storage

import (
	"context"
	"testing"
	"time"

	"github.com/ckerr6/ghintel/internal/model"
)

func TestPersistEnrichmentPreservesCreatedAtAndAISummary(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	first := model.IntelligenceRecord{
		Username:        "alice",
		SeniorityLevel:  model.SeniorityMid,
		SourceFetchedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := store.PersistEnrichment(ctx, first, nil, nil); err != nil {
		t.Fatalf("first persist: %v", err)
	}

	stored, ok := store.Intelligence("alice")
	if !ok {
		t.Fatal("expected alice to be stored")
	}
	stored.AISummary = "set out of band"
	store.mu.Lock()
	store.intelligence["alice"] = stored
	store.mu.Unlock()

	createdAt := stored.CreatedAt

	second := model.IntelligenceRecord{
		Username:        "alice",
		SeniorityLevel:  model.SeniorityStaff,
		SourceFetchedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := store.PersistEnrichment(ctx, second, nil, nil); err != nil {
		t.Fatalf("second persist: %v", err)
	}

	final, _ := store.Intelligence("alice")
	if final.SeniorityLevel != model.SeniorityStaff {
		t.Errorf("expected seniority_level overwritten to Staff, got %s", final.SeniorityLevel)
	}
	if !final.CreatedAt.Equal(createdAt) {
		t.Errorf("expected created_at preserved, got %v want %v", final.CreatedAt, createdAt)
	}
	if final.AISummary != "set out of band" {
		t.Errorf("expected ai_summary untouched, got %q", final.AISummary)
	}
}

func TestUpsertTimelineMonotonicRefinement(t *testing.T) {
	store := NewMemory()
	week := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	store.upsertTimelineLocked(model.ActivityTimelinePoint{Username: "bob", WeekStart: week, Commits: 5})
	store.upsertTimelineLocked(model.ActivityTimelinePoint{Username: "bob", WeekStart: week, Commits: 2})

	got := store.timeline["bob"][week.Unix()]
	if got.Commits != 5 {
		t.Errorf("expected lower-activity point to be rejected, got commits=%d", got.Commits)
	}

	store.upsertTimelineLocked(model.ActivityTimelinePoint{Username: "bob", WeekStart: week, Commits: 5, PRsOpened: 1})
	got = store.timeline["bob"][week.Unix()]
	if got.PRsOpened != 1 {
		t.Errorf("expected equal-or-greater activity point to be accepted, got prs_opened=%d", got.PRsOpened)
	}
}

func TestUpsertCollaborationCanonicalizationAndUnion(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	fromBob := model.CollaborationEdge{UserA: "alice", UserB: "bob", SharedRepos: []string{"repo-x"}, Strength: 5}
	fromAlice := model.CollaborationEdge{UserA: "alice", UserB: "bob", SharedRepos: []string{"repo-y"}, Strength: 3}

	if err := store.PersistEnrichment(ctx, model.IntelligenceRecord{Username: "bob"}, nil, []model.CollaborationEdge{fromBob}); err != nil {
		t.Fatalf("persist bob: %v", err)
	}
	if err := store.PersistEnrichment(ctx, model.IntelligenceRecord{Username: "alice"}, nil, []model.CollaborationEdge{fromAlice}); err != nil {
		t.Fatalf("persist alice: %v", err)
	}

	edges := store.Collaborations()
	if len(edges) != 1 {
		t.Fatalf("expected exactly one collaboration edge, got %d", len(edges))
	}
	edge := edges[0]
	if edge.UserA != "alice" || edge.UserB != "bob" {
		t.Errorf("expected canonical order alice<bob, got %s/%s", edge.UserA, edge.UserB)
	}
	if edge.Strength != 5 {
		t.Errorf("expected strength to be max(5,3)=5, got %d", edge.Strength)
	}
	if len(edge.SharedRepos) != 2 {
		t.Errorf("expected union of shared repos, got %v", edge.SharedRepos)
	}
}

func TestExistingUsernamesRespectsWindow(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	store.PersistEnrichment(ctx, model.IntelligenceRecord{Username: "fresh", SourceFetchedAt: now.AddDate(0, 0, -5)}, nil, nil)
	store.PersistEnrichment(ctx, model.IntelligenceRecord{Username: "stale", SourceFetchedAt: now.AddDate(0, 0, -45)}, nil, nil)

	existing, err := store.ExistingUsernames(ctx, now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("ExistingUsernames: %v", err)
	}
	if !existing["fresh"] {
		t.Error("expected fresh to be within the 30-day window")
	}
	if existing["stale"] {
		t.Error("expected stale to be outside the 30-day window")
	}
}

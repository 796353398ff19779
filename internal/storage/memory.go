package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ckerr6/ghintel/internal/model"
)

// Memory is an in-process Store used by tests, grounded on the same
// upsert semantics as Postgres without a database dependency.
type Memory struct {
	mu            sync.Mutex
	intelligence  map[string]model.IntelligenceRecord
	timeline      map[string]map[int64]model.ActivityTimelinePoint
	collaboration map[[2]string]model.CollaborationEdge
	now           func() time.Time
}

// NewMemory builds an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		intelligence:  map[string]model.IntelligenceRecord{},
		timeline:      map[string]map[int64]model.ActivityTimelinePoint{},
		collaboration: map[[2]string]model.CollaborationEdge{},
		now:           time.Now,
	}
}

// PersistEnrichment applies the same field-level upsert rules as
// Postgres, atomically under the store's mutex.
func (m *Memory) PersistEnrichment(ctx context.Context, record model.IntelligenceRecord, timeline []model.ActivityTimelinePoint, edges []model.CollaborationEdge) error {
	if err := ctx.Err(); err != nil {
		return retriableErr(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.upsertIntelligenceLocked(record)
	for _, pt := range timeline {
		m.upsertTimelineLocked(pt)
	}
	for _, e := range edges {
		m.upsertCollaborationLocked(e)
	}
	return nil
}

func (m *Memory) upsertIntelligenceLocked(r model.IntelligenceRecord) {
	now := m.now()
	existing, ok := m.intelligence[r.Username]
	r.UpdatedAt = now
	if ok {
		r.CreatedAt = existing.CreatedAt
		r.AISummary = existing.AISummary
	} else {
		r.CreatedAt = now
	}
	m.intelligence[r.Username] = r
}

// upsertTimelineLocked applies the monotonic-refinement rule: the new
// point replaces the existing one only if its activity sum is ≥,
// per spec.md §3.
func (m *Memory) upsertTimelineLocked(pt model.ActivityTimelinePoint) {
	byWeek, ok := m.timeline[pt.Username]
	if !ok {
		byWeek = map[int64]model.ActivityTimelinePoint{}
		m.timeline[pt.Username] = byWeek
	}
	key := pt.WeekStart.Unix()
	existing, ok := byWeek[key]
	if !ok || pt.TotalActivity() >= existing.TotalActivity() {
		byWeek[key] = pt
	}
}

func (m *Memory) upsertCollaborationLocked(e model.CollaborationEdge) {
	key := [2]string{e.UserA, e.UserB}
	existing, ok := m.collaboration[key]
	if !ok {
		e.UpdatedAt = m.now()
		m.collaboration[key] = e
		return
	}

	merged := existing
	merged.SharedRepos = unionSorted(existing.SharedRepos, e.SharedRepos)
	if e.Strength > merged.Strength {
		merged.Strength = e.Strength
	}
	if e.LastInteractionAt.After(merged.LastInteractionAt) {
		merged.LastInteractionAt = e.LastInteractionAt
	}
	merged.UpdatedAt = m.now()
	m.collaboration[key] = merged
}

func unionSorted(a, b []string) []string {
	seen := map[string]bool{}
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		seen[s] = true
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ExistingUsernames returns usernames whose source_fetched_at is on or
// after since.
func (m *Memory) ExistingUsernames(ctx context.Context, since time.Time) (map[string]bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, retriableErr(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := map[string]bool{}
	for username, r := range m.intelligence {
		if !r.SourceFetchedAt.Before(since) {
			out[username] = true
		}
	}
	return out, nil
}

// Intelligence returns a copy of the stored record for username, for
// test assertions.
func (m *Memory) Intelligence(username string) (model.IntelligenceRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.intelligence[username]
	return r, ok
}

// Collaborations returns a copy of all stored collaboration edges, for
// test assertions.
func (m *Memory) Collaborations() []model.CollaborationEdge {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.CollaborationEdge, 0, len(m.collaboration))
	for _, e := range m.collaboration {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserA != out[j].UserA {
			return out[i].UserA < out[j].UserA
		}
		return out[i].UserB < out[j].UserB
	})
	return out
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error { return nil }

package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ckerr6/ghintel/internal/log"
	"github.com/ckerr6/ghintel/internal/model"
	"github.com/ckerr6/ghintel/internal/storage"
)

func TestWorkerCountFormula(t *testing.T) {
	cases := []struct {
		permitsPerHour int
		want           int
	}{
		{0, DefaultWorkerConcurrency},
		{100, 1},
		{1600, 8},
		{5000, 25},
	}
	for _, c := range cases {
		if got := WorkerCount(c.permitsPerHour); got != c.want {
			t.Errorf("WorkerCount(%d) = %d, want %d", c.permitsPerHour, got, c.want)
		}
	}
}

type flakyStore struct {
	failuresLeft int
	kind         storage.FailureKind
	calls        int
}

func (f *flakyStore) PersistEnrichment(ctx context.Context, record model.IntelligenceRecord, timeline []model.ActivityTimelinePoint, edges []model.CollaborationEdge) error {
	f.calls++
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return &storage.Error{Kind: f.kind, Err: errors.New("simulated failure")}
	}
	return nil
}
func (f *flakyStore) ExistingUsernames(ctx context.Context, since time.Time) (map[string]bool, error) {
	return nil, nil
}
func (f *flakyStore) Close() error { return nil }

func TestPersistWithRetryRecoversFromRetriableFailures(t *testing.T) {
	store := &flakyStore{failuresLeft: 2, kind: storage.FailureRetriable}
	o := &Orchestrator{store: store, sleep: func(time.Duration) {}}

	err := o.persistWithRetry(context.Background(), model.IntelligenceRecord{Username: "alice"}, nil, nil)
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if store.calls != 3 {
		t.Errorf("expected 3 persist attempts (1 initial + 2 retries), got %d", store.calls)
	}
}

func TestPersistWithRetryGivesUpOnFatalFailure(t *testing.T) {
	store := &flakyStore{failuresLeft: 99, kind: storage.FailureFatal}
	o := &Orchestrator{store: store, sleep: func(time.Duration) {}}

	err := o.persistWithRetry(context.Background(), model.IntelligenceRecord{Username: "bob"}, nil, nil)
	if err == nil {
		t.Fatal("expected fatal failure to return immediately")
	}
	if store.calls != 1 {
		t.Errorf("expected exactly 1 attempt for a fatal failure, got %d", store.calls)
	}
}

func TestPersistWithRetryExhaustsRetriesAndReturnsLastError(t *testing.T) {
	store := &flakyStore{failuresLeft: 99, kind: storage.FailureRetriable}
	o := &Orchestrator{store: store, sleep: func(time.Duration) {}}

	err := o.persistWithRetry(context.Background(), model.IntelligenceRecord{Username: "carol"}, nil, nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	wantAttempts := len(PersistRetryBackoff) + 1
	if store.calls != wantAttempts {
		t.Errorf("expected %d attempts (1 initial + %d retries), got %d", wantAttempts, len(PersistRetryBackoff), store.calls)
	}
}

func TestNotePersistenceOutcomeExitsAfterConsecutiveFatalFailures(t *testing.T) {
	var exitCode int
	var exitCalls int
	o := &Orchestrator{log: log.Discard(), exit: func(code int) { exitCalls++; exitCode = code }}

	for i := 0; i < fatalPersistenceThreshold-1; i++ {
		o.notePersistenceOutcome(true)
	}
	if exitCalls != 0 {
		t.Fatalf("expected no exit before reaching the threshold, got %d calls", exitCalls)
	}

	o.notePersistenceOutcome(true)
	if exitCalls != 1 || exitCode != 2 {
		t.Fatalf("expected exactly one exit(2) at the threshold, got calls=%d code=%d", exitCalls, exitCode)
	}

	o.notePersistenceOutcome(true)
	if exitCalls != 1 {
		t.Errorf("expected exit to fire at most once, got %d calls", exitCalls)
	}
}

func TestNotePersistenceOutcomeResetsOnSuccess(t *testing.T) {
	var exitCalls int
	o := &Orchestrator{log: log.Discard(), exit: func(code int) { exitCalls++ }}

	for i := 0; i < fatalPersistenceThreshold-1; i++ {
		o.notePersistenceOutcome(true)
	}
	o.notePersistenceOutcome(false)
	o.notePersistenceOutcome(true)
	if exitCalls != 0 {
		t.Errorf("expected a success to reset the consecutive count, got %d exit calls", exitCalls)
	}
}

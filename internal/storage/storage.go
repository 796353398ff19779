// Package storage defines the durable, idempotent persistence interface
// for intelligence records (C6, spec.md §4.6), with a Postgres
// implementation and an in-memory fake for tests.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ckerr6/ghintel/internal/model"
)

// ErrNotFound is returned by lookups that find nothing.
var ErrNotFound = errors.New("storage: not found")

// FailureKind distinguishes retriable failures (connection dropped,
// serialization failure) from fatal ones (constraint violation, type
// mismatch), per spec.md §4.6.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureRetriable
	FailureFatal
)

// Error wraps a storage failure with its retriability classification.
type Error struct {
	Kind FailureKind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Retriable reports whether err is a storage Error classified as
// Retriable.
func Retriable(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == FailureRetriable
	}
	return false
}

func retriableErr(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: FailureRetriable, Err: err}
}

func fatalErr(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: FailureFatal, Err: err}
}

// Store is the durable persistence interface the orchestrator writes
// through. No operation interprets data; it only stores what extractors
// produced.
type Store interface {
	// PersistEnrichment writes one candidate's full enrichment result —
	// the intelligence row, its timeline points, and its collaboration
	// edges — in a single transaction, per spec.md §4.6's transaction
	// discipline.
	PersistEnrichment(ctx context.Context, record model.IntelligenceRecord, timeline []model.ActivityTimelinePoint, edges []model.CollaborationEdge) error

	// ExistingUsernames returns the set of usernames whose
	// source_fetched_at is at or after since, for Discovery's
	// freshness-window deduplication.
	ExistingUsernames(ctx context.Context, since time.Time) (map[string]bool, error)

	// Close releases any resources held by the store.
	Close() error
}

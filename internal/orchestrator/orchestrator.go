// Package orchestrator composes Discovery, the Fetcher, the extractors,
// and the Persister with bounded concurrency, progress reporting, and
// graceful shutdown (C7, spec.md §4.7).
package orchestrator

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/ckerr6/ghintel/internal/dictionary"
	"github.com/ckerr6/ghintel/internal/extract"
	"github.com/ckerr6/ghintel/internal/fetch"
	"github.com/ckerr6/ghintel/internal/log"
	"github.com/ckerr6/ghintel/internal/model"
	"github.com/ckerr6/ghintel/internal/ratelimit"
	"github.com/ckerr6/ghintel/internal/storage"
)

// DefaultWorkerConcurrency is used when the permits-per-hour figure is not
// known (0) and when New is given a concurrency below 1.
const DefaultWorkerConcurrency = 8

// fatalPersistenceThreshold is the number of consecutive FatalPersistence
// failures (spec.md §7's Persister row) that mark the store itself
// unreachable rather than any one Candidate's data being bad.
const fatalPersistenceThreshold = 10

// PersistRetryBackoff is the backoff schedule applied to Retriable
// Persister failures, per spec.md §4.6.
var PersistRetryBackoff = []time.Duration{200 * time.Millisecond, 1 * time.Second, 5 * time.Second}

// Outcome labels carried on ProgressEvent, mirroring the Candidate state
// machine's terminal states (spec.md §4.7).
const (
	OutcomePersisted   = "persisted"
	OutcomeGoneMissing = "gone_missing"
	OutcomeCancelled   = "cancelled"
	OutcomeFailed      = "failed"
)

// ProgressEvent is emitted once per Candidate that reaches a terminal
// state, per spec.md §4.7's checkpointing contract.
type ProgressEvent struct {
	RunID        uuid.UUID
	Username     string
	Outcome      string
	APIRemaining int
	ResetAt      time.Time
	QueueSize    int
}

// WorkerCount computes N = max(1, permitsPerHour/200), falling back to
// DefaultWorkerConcurrency when permitsPerHour is not yet known (0).
func WorkerCount(permitsPerHour int) int {
	if permitsPerHour <= 0 {
		return DefaultWorkerConcurrency
	}
	n := permitsPerHour / 200
	if n < 1 {
		n = 1
	}
	return n
}

// Orchestrator drives the Enqueued -> Fetching -> Extracting ->
// Persisting -> Done state machine for a batch of Candidates.
type Orchestrator struct {
	fetcher            *fetch.Fetcher
	store              storage.Store
	budget             *ratelimit.Budget
	frameworks, tools  []dictionary.Entry
	concurrency        int
	perCandidateBudget time.Duration
	runID              uuid.UUID
	log                *log.Logger
	now                func() time.Time
	sleep              func(time.Duration)

	// consecutiveFatalFailures counts FatalPersistence outcomes in a row
	// across Candidates, reset on any Candidate that reaches persistence
	// successfully. exit is called (once) with code 2 when it reaches
	// fatalPersistenceThreshold, per spec.md §7/§6.
	consecutiveFatalFailures int32
	exitOnce                 sync.Once
	exit                     func(code int)
}

// New builds an Orchestrator. concurrency should come from WorkerCount.
// perCandidateBudget bounds one candidate's entire Fetch->Extract->Persist
// pass (spec.md §6's per_candidate_budget_seconds); zero means unbounded.
func New(fetcher *fetch.Fetcher, store storage.Store, budget *ratelimit.Budget, frameworks, tools []dictionary.Entry, concurrency int, perCandidateBudget time.Duration, logger *log.Logger) *Orchestrator {
	if concurrency < 1 {
		concurrency = DefaultWorkerConcurrency
	}
	return &Orchestrator{
		fetcher:            fetcher,
		store:              store,
		budget:             budget,
		frameworks:         frameworks,
		tools:              tools,
		concurrency:        concurrency,
		perCandidateBudget: perCandidateBudget,
		runID:              uuid.New(),
		log:                logger,
		now:                time.Now,
		sleep:              time.Sleep,
		exit:               os.Exit,
	}
}

// Run processes candidates with o.concurrency bounded worker tasks and
// returns a channel of progress events, closed once every candidate has
// reached a terminal state or ctx is cancelled and in-flight work drains.
//
// Cancelling ctx stops the orchestrator from starting new Candidates and
// signals in-flight workers cooperatively; candidates still queued when
// ctx is cancelled surface as OutcomeCancelled without ever reaching the
// Fetcher, satisfying Invariant 8 (cancellation leaves no partial
// persistence).
func (o *Orchestrator) Run(ctx context.Context, candidates []model.Candidate) <-chan ProgressEvent {
	events := make(chan ProgressEvent, len(candidates))
	sem := semaphore.NewWeighted(int64(o.concurrency))
	remaining := newAtomicCounter(len(candidates))

	go func() {
		var wg sync.WaitGroup
		for _, c := range candidates {
			c := c
			if err := sem.Acquire(ctx, 1); err != nil {
				o.emitCancelled(events, c, remaining.decrementAndGet())
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer sem.Release(1)
				o.processOne(ctx, c, events, remaining)
			}()
		}
		wg.Wait()
		close(events)
	}()
	return events
}

func (o *Orchestrator) processOne(ctx context.Context, c model.Candidate, events chan<- ProgressEvent, remaining *atomicCounter) {
	queueSize := remaining.decrementAndGet()

	if o.perCandidateBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.perCandidateBudget)
		defer cancel()
	}

	if err := ctx.Err(); err != nil {
		o.emitCancelled(events, c, queueSize)
		return
	}

	bundle, outcome := o.fetcher.Fetch(ctx, c.Username)
	switch outcome {
	case fetch.OutcomeGoneMissing:
		o.emit(events, c.Username, OutcomeGoneMissing, queueSize)
		return
	case fetch.OutcomeCancelled:
		o.emit(events, c.Username, OutcomeCancelled, queueSize)
		return
	case fetch.OutcomeFailed:
		o.emit(events, c.Username, OutcomeFailed, queueSize)
		return
	}

	now := o.now()
	record, timeline, edges := o.extractAll(bundle, now)

	if err := o.persistWithRetry(ctx, record, timeline, edges); err != nil {
		if err == context.Canceled || ctx.Err() != nil {
			o.emit(events, c.Username, OutcomeCancelled, queueSize)
			return
		}
		o.log.Error(err, "orchestrator: persistence failed after retries", "username", c.Username)
		o.notePersistenceOutcome(!storage.Retriable(err))
		o.emit(events, c.Username, OutcomeFailed, queueSize)
		return
	}

	o.notePersistenceOutcome(false)
	o.emit(events, c.Username, OutcomePersisted, queueSize)
}

// notePersistenceOutcome tracks consecutive FatalPersistence failures
// across Candidates. A non-fatal outcome (success, or a RetriablePersistence
// failure that exhausted its retries) resets the streak; a FatalPersistence
// failure extends it, and once it reaches fatalPersistenceThreshold the
// store is treated as unrecoverable and the process exits with code 2.
func (o *Orchestrator) notePersistenceOutcome(fatal bool) {
	if !fatal {
		atomic.StoreInt32(&o.consecutiveFatalFailures, 0)
		return
	}
	n := atomic.AddInt32(&o.consecutiveFatalFailures, 1)
	if n < fatalPersistenceThreshold {
		return
	}
	o.exitOnce.Do(func() {
		o.log.Error(errors.New("store unreachable"), "orchestrator: unrecoverable dependency failure, exiting", "consecutive_fatal_persistence_failures", n)
		if o.exit != nil {
			o.exit(2)
		}
	})
}

// extractAll runs the five pure extractors inline in the calling worker,
// per spec.md §4.7's "extractors run inline, no new parallelism needed."
func (o *Orchestrator) extractAll(bundle model.ProfileBundle, now time.Time) (model.IntelligenceRecord, []model.ActivityTimelinePoint, []model.CollaborationEdge) {
	skills := extract.ExtractSkills(bundle, o.frameworks, o.tools)
	seniority := extract.ExtractSeniority(bundle, now)
	network := extract.ExtractNetwork(bundle)
	activity := extract.ExtractActivity(bundle, now)
	reachability := extract.ExtractReachability(bundle, activity.LastActiveAt, now)

	collaborators := make([]model.Collaborator, 0, len(network.TopCollaborators))
	collaborators = append(collaborators, network.TopCollaborators...)

	record := model.IntelligenceRecord{
		Username:                bundle.Username,
		DisplayName:             bundle.User.Name,
		ExtractedEmails:         reachability.ExtractedEmails,
		PrimaryLanguages:        skills.PrimaryLanguages,
		Frameworks:              skills.Frameworks,
		Tools:                   skills.Tools,
		Domains:                 skills.Domains,
		YearsActive:             seniority.YearsActive,
		TotalCommitsEstimate:    seniority.TotalCommitsEstimate,
		ReposMaintained:         seniority.ReposMaintained,
		SeniorityLevel:          seniority.Level,
		SeniorityConfidence:     seniority.Confidence,
		InfluenceScore:          network.InfluenceScore,
		OrganizationMemberships: bundle.Orgs,
		TopCollaborators:        collaborators,
		CommitsPerWeek:          activity.CommitsPerWeek,
		PRsPerMonth:             activity.PRsPerMonth,
		ConsistencyScore:        activity.ConsistencyScore,
		ActivityTrend:           activity.Trend,
		LastActiveAt:            activity.LastActiveAt,
		ReachabilityScore:       reachability.Score,
		ReachabilitySignals:     reachability.Signals,
		BestContactMethod:       reachability.BestContactMethod,
		Partial:                 bundle.Partial,
		SourceFetchedAt:         bundle.FetchedAt,
	}
	return record, activity.Timeline, network.Edges
}

// persistWithRetry retries Retriable storage failures up to 3 times with
// the 200ms/1s/5s backoff of spec.md §4.6; Fatal failures return
// immediately.
func (o *Orchestrator) persistWithRetry(ctx context.Context, record model.IntelligenceRecord, timeline []model.ActivityTimelinePoint, edges []model.CollaborationEdge) error {
	var lastErr error
	for attempt := 0; attempt <= len(PersistRetryBackoff); attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = o.store.PersistEnrichment(ctx, record, timeline, edges)
		if lastErr == nil {
			return nil
		}
		if !storage.Retriable(lastErr) {
			return lastErr
		}
		if attempt == len(PersistRetryBackoff) {
			break
		}
		o.sleep(PersistRetryBackoff[attempt])
	}
	return lastErr
}

func (o *Orchestrator) emit(events chan<- ProgressEvent, username, outcome string, queueSize int) {
	remaining, resetAt := o.budget.Snapshot()
	events <- ProgressEvent{
		RunID:        o.runID,
		Username:     username,
		Outcome:      outcome,
		APIRemaining: remaining,
		ResetAt:      resetAt,
		QueueSize:    queueSize,
	}
}

func (o *Orchestrator) emitCancelled(events chan<- ProgressEvent, c model.Candidate, queueSize int) {
	o.emit(events, c.Username, OutcomeCancelled, queueSize)
}

// atomicCounter is a mutex-guarded countdown used to report queue_size on
// each progress event.
type atomicCounter struct {
	mu    sync.Mutex
	value int
}

func newAtomicCounter(start int) *atomicCounter {
	return &atomicCounter{value: start}
}

func (c *atomicCounter) decrementAndGet() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value--
	if c.value < 0 {
		c.value = 0
	}
	return c.value
}

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ckerr6/ghintel/internal/log"
	"github.com/ckerr6/ghintel/internal/model"
)

// Postgres implements Store against a PostgreSQL database using
// database/sql and lib/pq.
type Postgres struct {
	db  *sql.DB
	log *log.Logger
}

// NewPostgres opens dsn, pings it, runs migrations, and returns a ready
// Store. connPoolSize should be at least the orchestrator's worker
// concurrency, per spec.md §4.7.
func NewPostgres(dsn string, connPoolSize int, logger *log.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if connPoolSize < 1 {
		connPoolSize = 1
	}
	db.SetMaxOpenConns(connPoolSize)
	db.SetMaxIdleConns(connPoolSize)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := &Postgres{db: db, log: logger}
	if err := p.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return p, nil
}

func (p *Postgres) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS intelligence (
			username TEXT PRIMARY KEY,
			display_name TEXT NOT NULL DEFAULT '',
			extracted_emails TEXT[] NOT NULL DEFAULT '{}',
			inferred_city TEXT NOT NULL DEFAULT '',
			inferred_country TEXT NOT NULL DEFAULT '',
			inferred_timezone TEXT NOT NULL DEFAULT '',
			current_employer_hint TEXT NOT NULL DEFAULT '',
			primary_languages JSONB NOT NULL DEFAULT '{}',
			frameworks TEXT[] NOT NULL DEFAULT '{}',
			tools TEXT[] NOT NULL DEFAULT '{}',
			domains TEXT[] NOT NULL DEFAULT '{}',
			years_active DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_commits_estimate INTEGER NOT NULL DEFAULT 0,
			repos_maintained INTEGER NOT NULL DEFAULT 0,
			seniority_level TEXT NOT NULL DEFAULT '',
			seniority_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			influence_score INTEGER NOT NULL DEFAULT 0,
			organization_memberships TEXT[] NOT NULL DEFAULT '{}',
			top_collaborators JSONB NOT NULL DEFAULT '[]',
			commits_per_week DOUBLE PRECISION NOT NULL DEFAULT 0,
			prs_per_month DOUBLE PRECISION NOT NULL DEFAULT 0,
			consistency_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			activity_trend TEXT NOT NULL DEFAULT '',
			last_active_at TIMESTAMPTZ,
			reachability_score INTEGER NOT NULL DEFAULT 0,
			reachability_signals JSONB NOT NULL DEFAULT '[]',
			best_contact_method TEXT NOT NULL DEFAULT '',
			partial BOOLEAN NOT NULL DEFAULT FALSE,
			source_fetched_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			ai_summary TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS collaboration (
			user_a TEXT NOT NULL,
			user_b TEXT NOT NULL,
			shared_repos TEXT[] NOT NULL DEFAULT '{}',
			strength INTEGER NOT NULL DEFAULT 1,
			last_interaction_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_a, user_b),
			CHECK (user_a < user_b)
		)`,
		`CREATE TABLE IF NOT EXISTS activity_timeline (
			username TEXT NOT NULL,
			week_start TIMESTAMPTZ NOT NULL,
			commits INTEGER NOT NULL DEFAULT 0,
			prs_opened INTEGER NOT NULL DEFAULT 0,
			prs_merged INTEGER NOT NULL DEFAULT 0,
			issues_opened INTEGER NOT NULL DEFAULT 0,
			reviews_given INTEGER NOT NULL DEFAULT 0,
			active_days INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (username, week_start)
		)`,
	}
	for _, m := range migrations {
		if _, err := p.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// PersistEnrichment writes the intelligence row, timeline points, and
// collaboration edges for one candidate in a single transaction, per
// spec.md §4.6's transaction discipline and Invariant 8 (cancellation
// leaves no partial persistence).
func (p *Postgres) PersistEnrichment(ctx context.Context, record model.IntelligenceRecord, timeline []model.ActivityTimelinePoint, edges []model.CollaborationEdge) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return retriableErr(err)
	}
	defer tx.Rollback()

	if err := upsertIntelligenceTx(ctx, tx, record); err != nil {
		return classifyPgErr(err)
	}
	for _, pt := range timeline {
		if err := upsertTimelinePointTx(ctx, tx, pt); err != nil {
			return classifyPgErr(err)
		}
	}
	for _, e := range edges {
		if err := upsertCollaborationTx(ctx, tx, e); err != nil {
			return classifyPgErr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return retriableErr(err)
	}
	return nil
}

func upsertIntelligenceTx(ctx context.Context, tx *sql.Tx, r model.IntelligenceRecord) error {
	langs, err := json.Marshal(r.PrimaryLanguages)
	if err != nil {
		return err
	}
	topCollab, err := json.Marshal(r.TopCollaborators)
	if err != nil {
		return err
	}
	signals, err := json.Marshal(r.ReachabilitySignals)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO intelligence (
			username, display_name, extracted_emails, inferred_city, inferred_country,
			inferred_timezone, current_employer_hint, primary_languages, frameworks, tools,
			domains, years_active, total_commits_estimate, repos_maintained, seniority_level,
			seniority_confidence, influence_score, organization_memberships, top_collaborators,
			commits_per_week, prs_per_month, consistency_score, activity_trend, last_active_at,
			reachability_score, reachability_signals, best_contact_method, partial,
			source_fetched_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
			$20, $21, $22, $23, $24, $25, $26, $27, $28, $29, NOW(), NOW()
		)
		ON CONFLICT (username) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			extracted_emails = EXCLUDED.extracted_emails,
			inferred_city = EXCLUDED.inferred_city,
			inferred_country = EXCLUDED.inferred_country,
			inferred_timezone = EXCLUDED.inferred_timezone,
			current_employer_hint = EXCLUDED.current_employer_hint,
			primary_languages = EXCLUDED.primary_languages,
			frameworks = EXCLUDED.frameworks,
			tools = EXCLUDED.tools,
			domains = EXCLUDED.domains,
			years_active = EXCLUDED.years_active,
			total_commits_estimate = EXCLUDED.total_commits_estimate,
			repos_maintained = EXCLUDED.repos_maintained,
			seniority_level = EXCLUDED.seniority_level,
			seniority_confidence = EXCLUDED.seniority_confidence,
			influence_score = EXCLUDED.influence_score,
			organization_memberships = EXCLUDED.organization_memberships,
			top_collaborators = EXCLUDED.top_collaborators,
			commits_per_week = EXCLUDED.commits_per_week,
			prs_per_month = EXCLUDED.prs_per_month,
			consistency_score = EXCLUDED.consistency_score,
			activity_trend = EXCLUDED.activity_trend,
			last_active_at = EXCLUDED.last_active_at,
			reachability_score = EXCLUDED.reachability_score,
			reachability_signals = EXCLUDED.reachability_signals,
			best_contact_method = EXCLUDED.best_contact_method,
			partial = EXCLUDED.partial,
			source_fetched_at = EXCLUDED.source_fetched_at,
			updated_at = NOW()`,
		r.Username, r.DisplayName, pqStringArray(r.ExtractedEmails), r.InferredCity, r.InferredCountry,
		r.InferredTimezone, r.CurrentEmployerHint, langs, pqStringArray(r.Frameworks), pqStringArray(r.Tools),
		pqStringArray(r.Domains), r.YearsActive, r.TotalCommitsEstimate, r.ReposMaintained, string(r.SeniorityLevel),
		r.SeniorityConfidence, r.InfluenceScore, pqStringArray(r.OrganizationMemberships), topCollab,
		r.CommitsPerWeek, r.PRsPerMonth, r.ConsistencyScore, string(r.ActivityTrend), nullTime(r.LastActiveAt),
		r.ReachabilityScore, signals, string(r.BestContactMethod), r.Partial, r.SourceFetchedAt,
	)
	return err
}

// upsertTimelinePointTx applies the monotonic-refinement rule: an
// existing point is overwritten only if the new activity sum is ≥ the
// existing one (spec.md §3).
func upsertTimelinePointTx(ctx context.Context, tx *sql.Tx, pt model.ActivityTimelinePoint) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO activity_timeline (username, week_start, commits, prs_opened, prs_merged, issues_opened, reviews_given, active_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (username, week_start) DO UPDATE SET
			commits = EXCLUDED.commits,
			prs_opened = EXCLUDED.prs_opened,
			prs_merged = EXCLUDED.prs_merged,
			issues_opened = EXCLUDED.issues_opened,
			reviews_given = EXCLUDED.reviews_given,
			active_days = EXCLUDED.active_days
		WHERE (EXCLUDED.commits + EXCLUDED.prs_opened + EXCLUDED.issues_opened + EXCLUDED.reviews_given)
		      >= (activity_timeline.commits + activity_timeline.prs_opened + activity_timeline.issues_opened + activity_timeline.reviews_given)`,
		pt.Username, pt.WeekStart, pt.Commits, pt.PRsOpened, pt.PRsMerged, pt.IssuesOpened, pt.ReviewsGiven, pt.ActiveDays,
	)
	return err
}

// upsertCollaborationTx upserts one canonicalized edge; on conflict,
// strength takes the max, shared_repos is unioned, and
// last_interaction_at takes the max, per spec.md §4.6.
func upsertCollaborationTx(ctx context.Context, tx *sql.Tx, e model.CollaborationEdge) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO collaboration (user_a, user_b, shared_repos, strength, last_interaction_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_a, user_b) DO UPDATE SET
			shared_repos = (
				SELECT ARRAY(SELECT DISTINCT unnest(collaboration.shared_repos || EXCLUDED.shared_repos) ORDER BY 1)
			),
			strength = GREATEST(collaboration.strength, EXCLUDED.strength),
			last_interaction_at = GREATEST(collaboration.last_interaction_at, EXCLUDED.last_interaction_at),
			updated_at = NOW()`,
		e.UserA, e.UserB, pqStringArray(e.SharedRepos), e.Strength, nullTime(e.LastInteractionAt),
	)
	return err
}

// ExistingUsernames returns usernames whose source_fetched_at is at or
// after since, for Discovery's freshness-window dedup.
func (p *Postgres) ExistingUsernames(ctx context.Context, since time.Time) (map[string]bool, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT username FROM intelligence WHERE source_fetched_at >= $1`, since)
	if err != nil {
		return nil, retriableErr(err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, retriableErr(err)
		}
		out[username] = true
	}
	if err := rows.Err(); err != nil {
		return nil, retriableErr(err)
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// classifyPgErr distinguishes connection/serialization failures
// (Retriable) from constraint violations and type mismatches (Fatal),
// per spec.md §4.6.
func classifyPgErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return retriableErr(err)
	}
	msg := err.Error()
	for _, marker := range []string{"violates", "constraint", "invalid input syntax", "out of range", "cannot be null"} {
		if containsFold(msg, marker) {
			return fatalErr(err)
		}
	}
	for _, marker := range []string{"connection", "serialization failure", "deadlock detected", "could not serialize", "i/o timeout"} {
		if containsFold(msg, marker) {
			return retriableErr(err)
		}
	}
	return fatalErr(err)
}

func containsFold(haystack, needle string) bool {
	h, n := []rune(haystack), []rune(needle)
	if len(n) == 0 {
		return true
	}
	lower := func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}
	for i := 0; i+len(n) <= len(h); i++ {
		match := true
		for j := range n {
			if lower(h[i+j]) != lower(n[j]) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func pqStringArray(ss []string) interface{} {
	if ss == nil {
		ss = []string{}
	}
	return pq.Array(ss)
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

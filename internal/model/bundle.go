// Package model defines the named record types that flow through the
// enrichment pipeline: the transient ProfileBundle and Candidate, and the
// durable IntelligenceRecord, CollaborationEdge, and ActivityTimelinePoint.
package model

import "time"

// User is the subset of a GitHub profile the pipeline cares about.
type User struct {
	Login           string
	Name            string
	Bio             string
	Company         string
	Location        string
	Email           string
	Blog            string
	TwitterUsername string
	CreatedAt       time.Time
	Followers       int
	Following       int
	PublicRepos     int
}

// Repo is a single repository descriptor gathered for a user.
type Repo struct {
	Name             string
	IsFork           bool
	PrimaryLanguage  string
	Stargazers       int
	Forks            int
	SizeKB           int
	Topics           []string
	CreatedAt        time.Time
	PushedAt         time.Time
	Description      string
}

// Event is a trimmed GitHub event: enough to drive the extractors without
// carrying the full, loosely-typed payload the API returns.
type Event struct {
	Type      string
	Repo      string
	Actor     string
	CreatedAt time.Time

	// PushCommitCount is populated for PushEvent; it is the number of
	// commits carried by the push, capped at 20 by the GitHub client when
	// it converts the event.
	PushCommitCount int
	// CommitEmails are non-noreply author emails surfaced by PushEvent
	// commit payloads, when present.
	CommitEmails []string
	// OtherActor is the author of the PR (for PR and review events) or of
	// the issue (for issue events) when that author is not the tracked
	// user. Empty otherwise, including for PRs the tracked user authored.
	OtherActor string
	// Merged is set for PullRequestEvent entries describing a merge.
	Merged bool
	// Action is the event's "action" field (opened, closed, submitted...).
	Action string
}

// Known event type strings the extractors switch on.
const (
	EventTypePush                 = "PushEvent"
	EventTypePullRequest          = "PullRequestEvent"
	EventTypePullRequestReview    = "PullRequestReviewEvent"
	EventTypeIssues               = "IssuesEvent"
)

// LanguageStats maps a repo name to its language -> byte-count breakdown.
type LanguageStats map[string]map[string]int64

// ProfileBundle is the in-memory aggregation of every API response gathered
// for one user in one enrichment pass. Its lifetime is a single attempt.
type ProfileBundle struct {
	Username      string
	User          User
	Repos         []Repo
	LanguageStats LanguageStats
	Events        []Event
	Orgs          []string
	FetchedAt     time.Time
	Partial       bool
}

// Candidate is a username awaiting enrichment, produced by Discovery and
// consumed by the Orchestrator. It never outlives the in-process queue.
type Candidate struct {
	Username       string
	Priority       int
	DiscoveredFrom string
	EnqueuedAt     time.Time
}

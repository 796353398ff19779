package extract

import (
	"testing"
	"time"

	"github.com/ckerr6/ghintel/internal/model"
)

func TestExtractSeniorityMinimalNewUser(t *testing.T) {
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	bundle := model.ProfileBundle{
		Username: "alice",
		User: model.User{
			Login:     "alice",
			CreatedAt: now.AddDate(-2, 0, 0),
		},
	}

	got := ExtractSeniority(bundle, now)
	if got.Level != model.SeniorityJunior {
		t.Errorf("expected Junior, got %s", got.Level)
	}
	if round3(got.Confidence) != 0.167 {
		t.Errorf("expected confidence 0.167 (1 of 6 signals), got %v", got.Confidence)
	}
}

func TestExtractNetworkMinimalNewUserZeroInfluence(t *testing.T) {
	bundle := model.ProfileBundle{Username: "alice", User: model.User{Login: "alice"}}
	got := ExtractNetwork(bundle)
	if got.InfluenceScore != 0 {
		t.Errorf("expected influence_score=0, got %d", got.InfluenceScore)
	}
	if len(got.Edges) != 0 {
		t.Errorf("expected no edges, got %d", len(got.Edges))
	}
}

func TestExtractActivityMinimalNewUserIsDormant(t *testing.T) {
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	bundle := model.ProfileBundle{Username: "alice"}
	got := ExtractActivity(bundle, now)
	if got.Trend != model.ActivityDormant {
		t.Errorf("expected Dormant, got %s", got.Trend)
	}
	if got.ConsistencyScore != 0 {
		t.Errorf("expected consistency_score=0.0, got %v", got.ConsistencyScore)
	}
	if got.CommitsPerWeek != 0 {
		t.Errorf("expected commits_per_week=0.0, got %v", got.CommitsPerWeek)
	}
}

func TestExtractReachabilityMinimalNewUserIsUnreachable(t *testing.T) {
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	bundle := model.ProfileBundle{Username: "alice", User: model.User{Login: "alice"}}
	got := ExtractReachability(bundle, time.Time{}, now)
	if got.Score != 0 {
		t.Errorf("expected reachability_score=0, got %d", got.Score)
	}
	if got.BestContactMethod != model.ContactNone {
		t.Errorf("expected best_contact_method=None, got %s", got.BestContactMethod)
	}
	if len(got.Signals) != 0 {
		t.Errorf("expected reachability_signals=[], got %v", got.Signals)
	}
}

func TestExtractSkillsMinimalNewUserIsEmpty(t *testing.T) {
	bundle := model.ProfileBundle{Username: "alice"}
	got := ExtractSkills(bundle, nil, nil)
	if len(got.PrimaryLanguages) != 0 || len(got.Frameworks) != 0 || len(got.Tools) != 0 || len(got.Domains) != 0 {
		t.Errorf("expected all-empty skills for a bundle with no repos, got %+v", got)
	}
}

func TestExtractSeniorityAndReachabilityPrincipalWithEmailAndTwitter(t *testing.T) {
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	repos := make([]model.Repo, 0, 80)
	for i := 0; i < 80; i++ {
		repos = append(repos, model.Repo{
			Name:       "repo",
			Stargazers: 250,
			PushedAt:   now.AddDate(-3, 0, 0),
			IsFork:     false,
		})
	}
	// 30 of those repos are "maintained": pushed within 2y and >=5 stars.
	for i := 0; i < 30; i++ {
		repos[i].PushedAt = now.AddDate(0, -1, 0)
		repos[i].Stargazers = 250
	}

	events := make([]model.Event, 0, 250)
	for i := 0; i < 60; i++ {
		events = append(events, model.Event{
			Type:       model.EventTypePullRequestReview,
			Action:     "submitted",
			CreatedAt:  now.AddDate(0, 0, -7),
			OtherActor: "reviewer",
		})
	}
	for i := 0; i < 50; i++ {
		events = append(events, model.Event{
			Type:            model.EventTypePush,
			Repo:            "dev/repo",
			CreatedAt:       now.AddDate(0, 0, -7),
			PushCommitCount: 5,
		})
	}
	for len(events) < 250 {
		events = append(events, model.Event{
			Type:      model.EventTypeIssues,
			Action:    "opened",
			CreatedAt: now.AddDate(0, 0, -7),
		})
	}

	bundle := model.ProfileBundle{
		Username: "dev",
		User: model.User{
			Login:           "dev",
			CreatedAt:       now.AddDate(-12, 0, 0),
			Followers:       50000,
			Email:           "dev@example.com",
			TwitterUsername: "dev",
			Blog:            "https://dev.example",
		},
		Repos:  repos,
		Events: events,
		Orgs:   []string{"o1", "o2", "o3", "o4", "o5", "o6", "o7", "o8"},
	}

	seniority := ExtractSeniority(bundle, now)
	if seniority.Level != model.SeniorityPrincipal {
		t.Errorf("expected Principal, got %s (check formula inputs)", seniority.Level)
	}
	if seniority.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0 (6 of 6 signals), got %v", seniority.Confidence)
	}

	network := ExtractNetwork(bundle)
	if network.InfluenceScore != 100 {
		t.Errorf("expected influence_score=100 (clamped), got %d", network.InfluenceScore)
	}

	activity := ExtractActivity(bundle, now)
	reachability := ExtractReachability(bundle, activity.LastActiveAt, now)
	if reachability.Score != 85 {
		t.Errorf("expected reachability_score=85 (30+20+15+20), got %d", reachability.Score)
	}
	if reachability.BestContactMethod != model.ContactEmail {
		t.Errorf("expected best_contact_method=Email, got %s", reachability.BestContactMethod)
	}
	if len(reachability.Signals) != 4 {
		t.Errorf("expected 4 reachability signals, got %d: %+v", len(reachability.Signals), reachability.Signals)
	}

	count := 0
	for _, e := range reachability.ExtractedEmails {
		if e == "dev@example.com" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected dev@example.com exactly once in extracted_emails, got %d occurrences in %v", count, reachability.ExtractedEmails)
	}
}

func TestNoreplyEmailsExcludedFromExtractedEmails(t *testing.T) {
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	bundle := model.ProfileBundle{
		Username: "bob",
		User:     model.User{Login: "bob", Email: "12345+bob@users.noreply.github.com"},
		Events: []model.Event{
			{Type: model.EventTypePush, CreatedAt: now, CommitEmails: []string{"bob@users.noreply.github.com", "real@example.com"}},
		},
	}
	got := ExtractReachability(bundle, time.Time{}, now)
	for _, e := range got.ExtractedEmails {
		if e == "12345+bob@users.noreply.github.com" || e == "bob@users.noreply.github.com" {
			t.Errorf("expected noreply address excluded, got %v", got.ExtractedEmails)
		}
	}
	if len(got.ExtractedEmails) != 1 || got.ExtractedEmails[0] != "real@example.com" {
		t.Errorf("expected only real@example.com, got %v", got.ExtractedEmails)
	}
}

func TestCollaborationEdgeCanonicalization(t *testing.T) {
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	bobBundle := model.ProfileBundle{
		Username: "bob",
		Events: []model.Event{
			{Type: model.EventTypePullRequestReview, Action: "submitted", OtherActor: "alice", Repo: "bob/proj", CreatedAt: now},
			{Type: model.EventTypePullRequestReview, Action: "submitted", OtherActor: "alice", Repo: "bob/proj", CreatedAt: now},
		},
	}
	got := ExtractNetwork(bobBundle)
	if len(got.Edges) != 1 {
		t.Fatalf("expected exactly one edge, got %d", len(got.Edges))
	}
	edge := got.Edges[0]
	if edge.UserA != "alice" || edge.UserB != "bob" {
		t.Errorf("expected canonical order alice<bob, got %s/%s", edge.UserA, edge.UserB)
	}
}

func round3(f float64) float64 {
	return float64(int(f*1000+0.5)) / 1000
}

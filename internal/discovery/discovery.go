// Package discovery expands a configured seed list of organizations,
// repositories, and watchlist usernames into a deduplicated, prioritized
// stream of Candidates (C3, spec.md §4.3).
package discovery

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ckerr6/ghintel/internal/githubclient"
	"github.com/ckerr6/ghintel/internal/log"
	"github.com/ckerr6/ghintel/internal/model"
)

const (
	priorityOrgMember  = 50
	priorityWatchlist  = 100
	maxContributorScore = 40
)

// ExistingUsernamesFunc looks up usernames already enriched within a
// freshness window, satisfying the Discovery -> Store dependency without
// importing the storage package directly.
type ExistingUsernamesFunc func(ctx context.Context, since time.Time) (map[string]bool, error)

// Source expands the seed configuration into Candidates.
type Source struct {
	client            *githubclient.Client
	existingUsernames ExistingUsernamesFunc
	orgs              []string
	repos             []string
	watchlist         []string
	freshnessWindow   time.Duration
	log               *log.Logger
	now               func() time.Time
}

// New builds a discovery Source. repos are "owner/name" strings.
func New(client *githubclient.Client, existingUsernames ExistingUsernamesFunc, orgs, repos, watchlist []string, freshnessWindow time.Duration, logger *log.Logger) *Source {
	return &Source{
		client:            client,
		existingUsernames: existingUsernames,
		orgs:              orgs,
		repos:             repos,
		watchlist:         watchlist,
		freshnessWindow:   freshnessWindow,
		log:               logger,
		now:               time.Now,
	}
}

// Discover runs the full procedure of spec.md §4.3 and returns Candidates
// in descending priority order.
func (s *Source) Discover(ctx context.Context) ([]model.Candidate, error) {
	candidates := map[string]model.Candidate{}

	add := func(username string, priority int, from string) {
		username = strings.ToLower(strings.TrimSpace(username))
		if username == "" {
			return
		}
		existing, ok := candidates[username]
		if ok && existing.Priority >= priority {
			return
		}
		candidates[username] = model.Candidate{
			Username:       username,
			Priority:       priority,
			DiscoveredFrom: from,
			EnqueuedAt:     s.now(),
		}
	}

	for _, org := range s.orgs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		members, err := s.client.ListOrgMembers(ctx, org)
		if err != nil {
			s.log.Error(err, "discovery: list org members failed", "org", org)
			continue
		}
		for _, m := range members {
			add(m, priorityOrgMember, "org:"+org)
		}
	}

	for _, repo := range s.repos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		owner, name, ok := splitOwnerRepo(repo)
		if !ok {
			s.log.Error(fmt.Errorf("malformed repo seed"), "discovery: skipping malformed repo seed", "repo", repo)
			continue
		}
		contributors, err := s.client.ListRepoContributors(ctx, owner, name)
		if err != nil {
			s.log.Error(err, "discovery: list repo contributors failed", "repo", repo)
			continue
		}
		for _, c := range contributors {
			priority := contributorPriority(c.Contributions)
			add(c.Login, priority, "repo:"+repo)
		}
	}

	for _, username := range s.watchlist {
		add(username, priorityWatchlist, "watchlist")
	}

	if s.existingUsernames != nil {
		since := s.now().Add(-s.freshnessWindow)
		fresh, err := s.existingUsernames(ctx, since)
		if err != nil {
			return nil, err
		}
		for username := range fresh {
			delete(candidates, username)
		}
	}

	out := make([]model.Candidate, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Username < out[j].Username
	})
	return out, nil
}

// contributorPriority implements clamp(2*log10(1+contributions), 0, 40),
// per spec.md §4.3 step 2.
func contributorPriority(contributions int) int {
	score := 2 * math.Log10(1+float64(contributions))
	if score < 0 {
		score = 0
	}
	if score > maxContributorScore {
		score = maxContributorScore
	}
	return int(math.Round(score))
}

func splitOwnerRepo(repo string) (owner, name string, ok bool) {
	parts := strings.SplitN(repo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

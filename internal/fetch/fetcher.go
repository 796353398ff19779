// Package fetch implements the ProfileBundle Fetcher (C4, spec.md §4.4):
// for one candidate username, it coordinates the calls needed to assemble
// a ProfileBundle, in strict order since later steps depend on earlier
// ones, and owns per-username partial-failure semantics.
package fetch

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/ckerr6/ghintel/internal/githubclient"
	"github.com/ckerr6/ghintel/internal/log"
	"github.com/ckerr6/ghintel/internal/model"
)

// Outcome is the terminal state of one fetch attempt, per spec.md §4.4.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomePartial     Outcome = "partial"
	OutcomeGoneMissing Outcome = "gone_missing"
	OutcomeCancelled   Outcome = "cancelled"
	OutcomeFailed      Outcome = "failed"
)

// Fetcher assembles ProfileBundles for candidate usernames.
type Fetcher struct {
	client       *githubclient.Client
	perUserRepoCap int
	log          *log.Logger
	now          func() time.Time
}

// New builds a Fetcher. perUserRepoCap bounds the number of repos that get
// a ListRepoLanguages call, per spec.md §4.4 step 3.
func New(client *githubclient.Client, perUserRepoCap int, logger *log.Logger) *Fetcher {
	return &Fetcher{client: client, perUserRepoCap: perUserRepoCap, log: logger, now: time.Now}
}

// Fetch assembles one ProfileBundle for username, following the strict
// step order of spec.md §4.4.
func (f *Fetcher) Fetch(ctx context.Context, username string) (model.ProfileBundle, Outcome) {
	username = strings.ToLower(username)
	bundle := model.ProfileBundle{Username: username}

	if err := ctx.Err(); err != nil {
		return bundle, OutcomeCancelled
	}

	user, err := f.client.GetUser(ctx, username)
	if err != nil {
		switch outcomeOf(err) {
		case githubclient.OutcomeNotFound:
			return bundle, OutcomeGoneMissing
		case githubclient.OutcomeCancelled:
			return bundle, OutcomeCancelled
		default:
			return bundle, OutcomeFailed
		}
	}
	bundle.User = user
	bundle.FetchedAt = f.now()

	partial := false

	repos, err := f.client.ListUserRepos(ctx, username)
	switch {
	case err == nil:
		bundle.Repos = repos
	case outcomeOf(err) == githubclient.OutcomeCancelled:
		return bundle, OutcomeCancelled
	default:
		partial = true
	}

	if len(bundle.Repos) > 0 {
		langStats, cancelled := f.fetchLanguages(ctx, username, bundle.Repos)
		if cancelled {
			return bundle, OutcomeCancelled
		}
		bundle.LanguageStats = langStats
	}

	events, err := f.client.ListUserEvents(ctx, username)
	switch {
	case err == nil:
		bundle.Events = filterRecentEvents(events, f.now())
	case outcomeOf(err) == githubclient.OutcomeCancelled:
		return bundle, OutcomeCancelled
	default:
		partial = true
	}

	orgs, err := f.client.ListUserOrgs(ctx, username)
	switch {
	case err == nil:
		bundle.Orgs = orgs
	case outcomeOf(err) == githubclient.OutcomeCancelled:
		return bundle, OutcomeCancelled
	default:
		partial = true
	}

	bundle.Partial = partial
	if partial {
		return bundle, OutcomePartial
	}
	return bundle, OutcomeOK
}

// fetchLanguages fetches language stats for the top N repos by PushedAt
// descending, where N is the configured per-user repo cap, per spec.md
// §4.4 step 3.
func (f *Fetcher) fetchLanguages(ctx context.Context, username string, repos []model.Repo) (model.LanguageStats, bool) {
	ranked := make([]model.Repo, len(repos))
	copy(ranked, repos)
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].PushedAt.After(ranked[j].PushedAt)
	})
	if len(ranked) > f.perUserRepoCap {
		ranked = ranked[:f.perUserRepoCap]
	}

	stats := model.LanguageStats{}
	for _, r := range ranked {
		if err := ctx.Err(); err != nil {
			return stats, true
		}
		langs, err := f.client.ListRepoLanguages(ctx, username, r.Name)
		if err != nil {
			if outcomeOf(err) == githubclient.OutcomeCancelled {
				return stats, true
			}
			continue
		}
		stats[r.Name] = langs
	}
	return stats, false
}

// filterRecentEvents drops events older than 90 days, per the ProfileBundle
// invariant in spec.md §3.
func filterRecentEvents(events []model.Event, now time.Time) []model.Event {
	cutoff := now.AddDate(0, 0, -90)
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if e.CreatedAt.After(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

func outcomeOf(err error) githubclient.Outcome {
	var callErr *githubclient.CallError
	if errors.As(err, &callErr) {
		return callErr.Outcome
	}
	return githubclient.OutcomePermanent
}

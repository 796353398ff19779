package extract

import (
	"math"
	"sort"
	"time"

	"github.com/ckerr6/ghintel/internal/model"
)

// Network is the output of the network extractor (spec.md §4.5.3).
type Network struct {
	TopCollaborators []model.Collaborator
	InfluenceScore   int
	Edges            []model.CollaborationEdge
}

// Event-type weights for the collaborator multiset, per spec.md §4.5.3.
// Push events carry no collaborator signal: the GitHub Events API's
// PushEvent payload only exposes commit author name/email, never a
// GitHub login, so there is no OtherActor to weight (see convert.go's
// eventFromGitHub and DESIGN.md).
const (
	weightReview = 3
	weightPR     = 2
	weightIssue  = 1

	maxTopCollaborators  = 20
	minEdgeWeight        = 2
	maxInfluenceScore    = 100
	collaboratorScoreCap = 20
)

type collaboratorAccumulator struct {
	weight      int
	repos       map[string]bool
	lastSeen    time.Time
}

// ExtractNetwork derives the collaboration graph and influence score from a
// ProfileBundle's events and org memberships.
func ExtractNetwork(b model.ProfileBundle) Network {
	acc := map[string]*collaboratorAccumulator{}

	addWeight := func(actor, repo string, weight int, when time.Time) {
		if actor == "" || actor == b.Username {
			return
		}
		a, ok := acc[actor]
		if !ok {
			a = &collaboratorAccumulator{repos: map[string]bool{}}
			acc[actor] = a
		}
		a.weight += weight
		if repo != "" {
			a.repos[repo] = true
		}
		if when.After(a.lastSeen) {
			a.lastSeen = when
		}
	}

	for _, e := range b.Events {
		switch e.Type {
		case model.EventTypePullRequestReview:
			addWeight(e.OtherActor, e.Repo, weightReview, e.CreatedAt)
		case model.EventTypePullRequest:
			addWeight(e.OtherActor, e.Repo, weightPR, e.CreatedAt)
		case model.EventTypeIssues:
			addWeight(e.OtherActor, e.Repo, weightIssue, e.CreatedAt)
		}
	}

	logins := make([]string, 0, len(acc))
	for login := range acc {
		logins = append(logins, login)
	}
	sort.Slice(logins, func(i, j int) bool {
		if acc[logins[i]].weight != acc[logins[j]].weight {
			return acc[logins[i]].weight > acc[logins[j]].weight
		}
		return logins[i] < logins[j]
	})

	var top []model.Collaborator
	var edges []model.CollaborationEdge
	for _, login := range logins {
		a := acc[login]
		repos := make([]string, 0, len(a.repos))
		for r := range a.repos {
			repos = append(repos, r)
		}
		sort.Strings(repos)

		if len(top) < maxTopCollaborators {
			top = append(top, model.Collaborator{
				Username:    login,
				Strength:    a.weight,
				SharedRepos: repos,
			})
		}

		if a.weight >= minEdgeWeight {
			userA, userB := b.Username, login
			if userB < userA {
				userA, userB = userB, userA
			}
			edges = append(edges, model.CollaborationEdge{
				UserA:             userA,
				UserB:             userB,
				SharedRepos:       repos,
				Strength:          a.weight,
				LastInteractionAt: a.lastSeen,
			})
		}
	}

	var sumStars int
	for _, r := range b.Repos {
		if !r.IsFork {
			sumStars += r.Stargazers
		}
	}

	influence := 5*float64(len(b.Orgs)) +
		10*math.Log10(1+float64(b.User.Followers)) +
		0.1*float64(sumStars) +
		math.Min(collaboratorScoreCap, float64(len(acc)))
	influenceScore := int(math.Round(clamp(influence, 0, maxInfluenceScore)))

	return Network{
		TopCollaborators: top,
		InfluenceScore:   influenceScore,
		Edges:            edges,
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

package extract

import (
	"math"
	"time"

	"github.com/ckerr6/ghintel/internal/model"
)

// Seniority is the output of the seniority extractor (spec.md §4.5.2).
type Seniority struct {
	YearsActive          float64
	TotalCommitsEstimate int
	ReposMaintained      int
	Level                model.SeniorityLevel
	Confidence           float64
}

const (
	maxYearsActive        = 30
	repoMaintainedWindow  = 2 * 365 * 24 * time.Hour
	repoMaintainedMinStar = 5
)

// ExtractSeniority derives seniority signals and classification from a
// ProfileBundle, following the weighted-sum formula and threshold ladder of
// spec.md §4.5.2. now is injectable for deterministic tests.
func ExtractSeniority(b model.ProfileBundle, now time.Time) Seniority {
	yearsActive := yearsActiveSince(b.User.CreatedAt, now)

	totalCommits := totalCommitsEstimate(b)
	reposMaintained := reposMaintainedCount(b.Repos, now)
	reviewSignal := countEvents(b.Events, model.EventTypePullRequestReview)
	starSignal := starSignalOf(b.Repos)
	orgSignal := len(b.Orgs)

	score := math.Min(yearsActive*10, 50) +
		math.Min(float64(totalCommits)/100, 20) +
		float64(reviewSignal)*2 +
		float64(reposMaintained)*3 +
		math.Min(starSignal*5, 15) +
		float64(orgSignal)*5

	nonZero := 0
	for _, v := range []float64{yearsActive, float64(totalCommits), float64(reviewSignal), float64(reposMaintained), starSignal, float64(orgSignal)} {
		if v > 0 {
			nonZero++
		}
	}

	return Seniority{
		YearsActive:          yearsActive,
		TotalCommitsEstimate: totalCommits,
		ReposMaintained:      reposMaintained,
		Level:                classifySeniority(score),
		Confidence:           math.Min(1.0, float64(nonZero)/6),
	}
}

func yearsActiveSince(createdAt, now time.Time) float64 {
	if createdAt.IsZero() {
		return 0
	}
	years := now.Sub(createdAt).Hours() / 24 / 365.25
	if years < 0 {
		years = 0
	}
	if years > maxYearsActive {
		years = maxYearsActive
	}
	return years
}

// totalCommitsEstimate sums PushEvent commit counts touching repos the user
// owns (non-fork repos in their own bundle), per spec.md §4.5.2 and the
// Open Question decision in DESIGN.md to exclude forks.
func totalCommitsEstimate(b model.ProfileBundle) int {
	owned := map[string]bool{}
	for _, r := range b.Repos {
		if !r.IsFork {
			owned[ownedRepoKey(b.Username, r.Name)] = true
		}
	}
	total := 0
	for _, e := range b.Events {
		if e.Type != model.EventTypePush {
			continue
		}
		if !owned[e.Repo] {
			continue
		}
		total += e.PushCommitCount
	}
	return total
}

// ownedRepoKey matches the "owner/name" full-name format the GitHub events
// API uses for Event.Repo.
func ownedRepoKey(username, repoName string) string {
	return username + "/" + repoName
}

func reposMaintainedCount(repos []model.Repo, now time.Time) int {
	count := 0
	for _, r := range repos {
		if r.IsFork {
			continue
		}
		if now.Sub(r.PushedAt) <= repoMaintainedWindow && r.Stargazers >= repoMaintainedMinStar {
			count++
		}
	}
	return count
}

func countEvents(events []model.Event, eventType string) int {
	n := 0
	for _, e := range events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

func starSignalOf(repos []model.Repo) float64 {
	var sum int
	for _, r := range repos {
		if !r.IsFork {
			sum += r.Stargazers
		}
	}
	return math.Log10(1 + float64(sum))
}

// classifySeniority applies spec.md §4.5.2's inclusive-lower/exclusive-upper
// threshold ladder; a score exactly on a boundary maps to the lower bucket.
func classifySeniority(score float64) model.SeniorityLevel {
	switch {
	case score < 30:
		return model.SeniorityJunior
	case score < 60:
		return model.SeniorityMid
	case score < 90:
		return model.SenioritySenior
	case score < 120:
		return model.SeniorityStaff
	default:
		return model.SeniorityPrincipal
	}
}

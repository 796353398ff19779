package githubclient

import (
	"strings"

	"github.com/google/go-github/v42/github"

	"github.com/ckerr6/ghintel/internal/model"
)

// maxCommitsPerPushEvent caps the per-event commit count the seniority
// extractor's total_commits_estimate proxy sums over, per spec.md §4.5.2.
const maxCommitsPerPushEvent = 20

func userFromGitHub(u *github.User) model.User {
	if u == nil {
		return model.User{}
	}
	return model.User{
		Login:           strings.ToLower(u.GetLogin()),
		Name:            u.GetName(),
		Bio:             u.GetBio(),
		Company:         u.GetCompany(),
		Location:        u.GetLocation(),
		Email:           u.GetEmail(),
		Blog:            u.GetBlog(),
		TwitterUsername: u.GetTwitterUsername(),
		CreatedAt:       u.GetCreatedAt().Time,
		Followers:       u.GetFollowers(),
		Following:       u.GetFollowing(),
		PublicRepos:     u.GetPublicRepos(),
	}
}

func repoFromGitHub(r *github.Repository) model.Repo {
	if r == nil {
		return model.Repo{}
	}
	topics := r.Topics
	return model.Repo{
		Name:            r.GetName(),
		IsFork:          r.GetFork(),
		PrimaryLanguage: r.GetLanguage(),
		Stargazers:      r.GetStargazersCount(),
		Forks:           r.GetForksCount(),
		SizeKB:          r.GetSize(),
		Topics:          topics,
		CreatedAt:       r.GetCreatedAt().Time,
		PushedAt:        r.GetPushedAt().Time,
		Description:     r.GetDescription(),
	}
}

func eventFromGitHub(trackedLogin string, e *github.Event) model.Event {
	out := model.Event{
		Type:      e.GetType(),
		Repo:      e.GetRepo().GetName(),
		Actor:     strings.ToLower(e.GetActor().GetLogin()),
		CreatedAt: e.GetCreatedAt(),
	}

	payload, err := e.ParsePayload()
	if err != nil || payload == nil {
		return out
	}

	switch p := payload.(type) {
	case *github.PushEvent:
		commits := p.Commits
		if len(commits) > maxCommitsPerPushEvent {
			commits = commits[:maxCommitsPerPushEvent]
		}
		out.PushCommitCount = len(commits)
		for _, commit := range commits {
			if author := commit.GetAuthor(); author != nil {
				if email := author.GetEmail(); email != "" && !isNoreplyEmail(email) {
					out.CommitEmails = append(out.CommitEmails, email)
				}
			}
		}

	case *github.PullRequestEvent:
		out.Action = p.GetAction()
		pr := p.GetPullRequest()
		out.Merged = pr.GetMerged()
		if author := strings.ToLower(pr.GetUser().GetLogin()); author != trackedLogin {
			out.OtherActor = author
		}

	case *github.PullRequestReviewEvent:
		out.Action = p.GetAction()
		pr := p.GetPullRequest()
		if author := strings.ToLower(pr.GetUser().GetLogin()); author != trackedLogin {
			out.OtherActor = author
		}

	case *github.IssuesEvent:
		out.Action = p.GetAction()
		issue := p.GetIssue()
		if author := strings.ToLower(issue.GetUser().GetLogin()); author != trackedLogin {
			out.OtherActor = author
		}
	}

	return out
}

// isNoreplyEmail reports whether addr matches GitHub's generated noreply
// pattern (*@users.noreply.github.com), per spec.md's extracted_emails
// invariant.
func isNoreplyEmail(addr string) bool {
	return strings.HasSuffix(strings.ToLower(addr), "@users.noreply.github.com")
}

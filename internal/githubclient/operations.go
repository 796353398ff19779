package githubclient

import (
	"context"
	"strings"

	"github.com/google/go-github/v42/github"

	"github.com/ckerr6/ghintel/internal/model"
)

// GetUser fetches a user's public profile. One call.
func (c *Client) GetUser(ctx context.Context, login string) (model.User, error) {
	var out *github.User
	err := c.call(ctx, 1, func(ctx context.Context) (*github.Response, error) {
		u, resp, err := c.gh.Users.Get(ctx, login)
		out = u
		return resp, err
	})
	if err != nil {
		return model.User{}, err
	}
	return userFromGitHub(out), nil
}

// ListUserRepos returns all non-fork repos for a login, following
// pagination up to the configured cap.
func (c *Client) ListUserRepos(ctx context.Context, login string) ([]model.Repo, error) {
	var repos []model.Repo
	opt := &github.RepositoryListOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	for page := 0; page < maxRepoPages; page++ {
		var batch []*github.Repository
		err := c.call(ctx, 1, func(ctx context.Context) (*github.Response, error) {
			b, resp, err := c.gh.Repositories.List(ctx, login, opt)
			batch = b
			return resp, err
		})
		if err != nil {
			return nil, err
		}
		for _, r := range batch {
			if r.GetFork() {
				continue
			}
			repos = append(repos, repoFromGitHub(r))
		}
		if len(batch) < perPage {
			break
		}
		opt.Page++
	}
	return repos, nil
}

// ListRepoLanguages returns language -> bytes for one repo. One call.
func (c *Client) ListRepoLanguages(ctx context.Context, owner, repo string) (map[string]int64, error) {
	var langs map[string]int
	err := c.call(ctx, 1, func(ctx context.Context) (*github.Response, error) {
		l, resp, err := c.gh.Repositories.ListLanguages(ctx, owner, repo)
		langs = l
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(langs))
	for k, v := range langs {
		out[k] = int64(v)
	}
	return out, nil
}

// ListUserEvents returns up to 300 recent public events for a login.
func (c *Client) ListUserEvents(ctx context.Context, login string) ([]model.Event, error) {
	var events []model.Event
	opt := &github.ListOptions{PerPage: perPage}

	for page := 0; page < maxEventPages; page++ {
		var batch []*github.Event
		err := c.call(ctx, 1, func(ctx context.Context) (*github.Response, error) {
			b, resp, err := c.gh.Activity.ListEventsPerformedByUser(ctx, login, true, opt)
			batch = b
			return resp, err
		})
		if err != nil {
			return nil, err
		}
		for _, e := range batch {
			events = append(events, eventFromGitHub(login, e))
		}
		if len(batch) < perPage {
			break
		}
		opt.Page++
	}
	return events, nil
}

// ListUserOrgs returns the public orgs a login is a member of. One call.
func (c *Client) ListUserOrgs(ctx context.Context, login string) ([]string, error) {
	var orgs []*github.Organization
	err := c.call(ctx, 1, func(ctx context.Context) (*github.Response, error) {
		o, resp, err := c.gh.Organizations.List(ctx, login, nil)
		orgs = o
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, o.GetLogin())
	}
	return out, nil
}

// ListOrgMembers returns the public members of an org, paginated up to the
// configured cap.
func (c *Client) ListOrgMembers(ctx context.Context, org string) ([]string, error) {
	var members []string
	opt := &github.ListMembersOptions{
		PublicOnly:  true,
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	for page := 0; page < maxMemberPages; page++ {
		var batch []*github.User
		err := c.call(ctx, 1, func(ctx context.Context) (*github.Response, error) {
			b, resp, err := c.gh.Organizations.ListMembers(ctx, org, opt)
			batch = b
			return resp, err
		})
		if err != nil {
			return nil, err
		}
		for _, u := range batch {
			members = append(members, strings.ToLower(u.GetLogin()))
		}
		if len(batch) < perPage {
			break
		}
		opt.Page++
	}
	return members, nil
}

// ContributorStat is a repo contributor and their contribution count.
type ContributorStat struct {
	Login         string
	Contributions int
}

// ListRepoContributors returns contributors with counts, paginated up to
// the configured cap.
func (c *Client) ListRepoContributors(ctx context.Context, owner, repo string) ([]ContributorStat, error) {
	var out []ContributorStat
	opt := &github.ListContributorsOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	for page := 0; page < maxContributorPages; page++ {
		var batch []*github.Contributor
		err := c.call(ctx, 1, func(ctx context.Context) (*github.Response, error) {
			b, resp, err := c.gh.Repositories.ListContributors(ctx, owner, repo, opt)
			batch = b
			return resp, err
		})
		if err != nil {
			return nil, err
		}
		for _, contrib := range batch {
			out = append(out, ContributorStat{
				Login:         strings.ToLower(contrib.GetLogin()),
				Contributions: contrib.GetContributions(),
			})
		}
		if len(batch) < perPage {
			break
		}
		opt.Page++
	}
	return out, nil
}

// Package githubclient is the typed facade over the subset of the GitHub
// REST API the pipeline needs (spec.md §4.2): paginated GETs for user,
// repos, events, orgs, languages, contributors, and members. Every call
// acquires a permit from a shared ratelimit.Budget before it goes out, and
// every response feeds the budget's authoritative accounting back in.
package githubclient

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v42/github"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-retry"
	"golang.org/x/oauth2"

	"github.com/ckerr6/ghintel/internal/log"
	"github.com/ckerr6/ghintel/internal/ratelimit"
)

// Pagination caps, per spec.md §4.2.
const (
	maxRepoPages        = 5   // 100/page -> 500 repos
	maxEventPages       = 3   // 100/page -> 300 events
	maxMemberPages      = 10  // 100/page -> 1000 members
	maxContributorPages = 5   // 100/page -> 500 contributors
	perPage             = 100
)

// Retry policy, per spec.md §4.2: base 1s, factor 2, cap 30s, max 5 attempts.
const (
	retryBase        = 1 * time.Second
	retryCap         = 30 * time.Second
	retryMaxAttempts = 5
)

// Client wraps *github.Client with rate-budget enforcement and outcome
// tagging.
type Client struct {
	gh     *github.Client
	budget *ratelimit.Budget
	log    *log.Logger
}

// New builds a Client with the given per-request HTTP timeout. An empty
// token produces an anonymous client (60 requests/hour); otherwise an
// oauth2 bearer-token client is used, the same construction the teacher's
// cli.NewClientWithToken uses. A zero timeout leaves http.DefaultClient's
// (no) deadline in place.
func New(ctx context.Context, token string, httpTimeout time.Duration, budget *ratelimit.Budget, logger *log.Logger) *Client {
	httpClient := http.DefaultClient
	if token != "" {
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		))
	}
	if httpTimeout > 0 {
		clientCopy := *httpClient
		clientCopy.Timeout = httpTimeout
		httpClient = &clientCopy
	}
	return &Client{
		gh:     github.NewClient(httpClient),
		budget: budget,
		log:    logger,
	}
}

// call runs one GitHub request, applying the rate budget, outcome
// classification, and TransientError retry policy uniformly. op issues a
// single request (one page); paginated operations call call once per page
// and accumulate the results themselves.
func (c *Client) call(ctx context.Context, permits int, op func(ctx context.Context) (*github.Response, error)) error {
	b, err := retry.NewExponential(retryBase)
	if err != nil {
		return err
	}
	// WithMaxRetries counts retries after the first attempt, so
	// retryMaxAttempts-1 retries yields retryMaxAttempts attempts in total.
	b = retry.WithMaxRetries(retryMaxAttempts-1, b)
	b = retry.WithCappedDuration(retryCap, b)
	b = retry.WithJitter(retryBase/2, b)

	return retry.Do(ctx, b, func(ctx context.Context) error {
		classified := c.attempt(ctx, permits, op)
		if classified == nil {
			return nil
		}

		switch classified.Outcome {
		case OutcomeRateLimited:
			// RateLimited retries exactly once (spec.md §4.2), not through
			// the Transient exponential-backoff loop below: issue one more
			// attempt directly and return its outcome as terminal, so a
			// persistent rate limit does not get retried up to
			// retryMaxAttempts times.
			return c.attempt(ctx, permits, op).asTerminal()
		case OutcomeTransient:
			return retry.RetryableError(classified)
		default:
			return classified
		}
	})
}

// attempt acquires one budget permit, issues the call, feeds the response
// back into the budget, and classifies the outcome. Returns nil on success.
func (c *Client) attempt(ctx context.Context, permits int, op func(ctx context.Context) (*github.Response, error)) *CallError {
	if err := ctx.Err(); err != nil {
		return newCallError(OutcomeCancelled, err)
	}

	if err := c.budget.Acquire(ctx, permits); err != nil {
		return newCallError(OutcomeCancelled, err)
	}

	resp, callErr := op(ctx)
	if resp != nil && resp.Response != nil {
		c.observe(resp)
	}

	return classify(callErr, resp)
}

func (c *Client) observe(resp *github.Response) {
	if resp == nil {
		return
	}
	remaining := resp.Rate.Remaining
	reset := resp.Rate.Reset.Time
	if reset.IsZero() {
		reset = time.Now().Add(time.Hour)
	}
	c.budget.Observe(remaining, reset)
}

// classify maps a go-github error/response pair onto an Outcome.
func classify(err error, resp *github.Response) *CallError {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newCallError(OutcomeCancelled, err)
	}

	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		return newCallError(OutcomeRateLimited, err)
	}
	var arle *github.AbuseRateLimitError
	if errors.As(err, &arle) {
		// spec.md §9 Open Questions: secondary/abuse limits are treated as
		// TransientError, subject to the client's own backoff.
		return newCallError(OutcomeTransient, err)
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusNotFound:
			return newCallError(OutcomeNotFound, err)
		case http.StatusForbidden:
			if resp != nil && resp.Rate.Remaining == 0 {
				return newCallError(OutcomeRateLimited, err)
			}
			return newCallError(OutcomePermanent, err)
		case http.StatusUnauthorized, http.StatusUnprocessableEntity:
			return newCallError(OutcomePermanent, err)
		default:
			if ghErr.Response.StatusCode >= 500 {
				return newCallError(OutcomeTransient, err)
			}
			return newCallError(OutcomePermanent, err)
		}
	}

	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return newCallError(OutcomeNotFound, err)
	}

	// Network errors (timeouts, connection reset) without a structured
	// GitHub response are transient.
	if isNetworkError(err) {
		return newCallError(OutcomeTransient, err)
	}

	return newCallError(OutcomePermanent, err)
}

func isNetworkError(err error) bool {
	msg := err.Error()
	for _, s := range []string{"timeout", "connection reset", "EOF", "broken pipe", "no such host"} {
		if strings.Contains(strings.ToLower(msg), s) {
			return true
		}
	}
	return false
}

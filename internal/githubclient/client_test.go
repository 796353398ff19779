package githubclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-github/v42/github"

	"github.com/ckerr6/ghintel/internal/log"
	"github.com/ckerr6/ghintel/internal/ratelimit"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	budget := ratelimit.New(ratelimit.AuthenticatedCapPerHour, 0)
	c := New(context.Background(), "", 0, budget, log.Discard())

	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatalf("parse test server URL: %v", err)
	}
	c.gh.BaseURL = base
	return c
}

func TestGetUserHappyPath(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"login":"octocat","followers":42}`)
	}))

	user, err := c.GetUser(context.Background(), "octocat")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user.Login != "octocat" || user.Followers != 42 {
		t.Errorf("unexpected user: %+v", user)
	}
}

func TestGetUserNotFoundClassifiesAsOutcomeNotFound(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	}))

	_, err := c.GetUser(context.Background(), "ghost")
	if err == nil {
		t.Fatal("expected an error for a 404 response")
	}
	ce, ok := err.(*CallError)
	if !ok {
		t.Fatalf("expected *CallError, got %T", err)
	}
	if ce.Outcome != OutcomeNotFound {
		t.Errorf("expected OutcomeNotFound, got %v", ce.Outcome)
	}
}

func TestGetUserServerErrorRetriesThenFails(t *testing.T) {
	var calls int
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	// Keep the test fast: this exercises that a persistent 5xx eventually
	// surfaces as an error rather than hanging, without waiting out the
	// full 1s/2s/.../30s production backoff schedule.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := c.GetUser(ctx, "flaky")
	if err == nil {
		t.Fatal("expected an eventual error for a persistently failing server")
	}
	if calls < 1 {
		t.Error("expected at least one call to reach the server")
	}
}

func TestClassifyRateLimitedWhenForbiddenWithZeroRemaining(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(time.Hour).Unix()))
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"API rate limit exceeded"}`)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	// A 403-with-zero-remaining is classified RateLimited and retried once;
	// that retry blocks in the budget's Acquire (which has observed zero
	// remaining) until the test's short deadline cuts it off, so the call
	// surfaces an error without waiting out a real rate-limit reset window.
	_, err := c.GetUser(ctx, "anyone")
	if err == nil {
		t.Fatal("expected an error")
	}
}

func ghErrorResponse(status int) *github.ErrorResponse {
	return &github.ErrorResponse{Response: &http.Response{StatusCode: status}}
}

func TestClassifyDirectly(t *testing.T) {
	notFound := classify(ghErrorResponse(http.StatusNotFound), nil)
	if notFound.Outcome != OutcomeNotFound {
		t.Errorf("expected OutcomeNotFound for 404, got %v", notFound.Outcome)
	}

	serverErr := classify(ghErrorResponse(http.StatusInternalServerError), nil)
	if serverErr.Outcome != OutcomeTransient {
		t.Errorf("expected OutcomeTransient for 500, got %v", serverErr.Outcome)
	}

	auth := classify(ghErrorResponse(http.StatusUnauthorized), nil)
	if auth.Outcome != OutcomePermanent {
		t.Errorf("expected OutcomePermanent for 401, got %v", auth.Outcome)
	}

	cancelled := classify(context.Canceled, nil)
	if cancelled.Outcome != OutcomeCancelled {
		t.Errorf("expected OutcomeCancelled, got %v", cancelled.Outcome)
	}

	network := classify(fmt.Errorf("dial tcp: i/o timeout"), nil)
	if network.Outcome != OutcomeTransient {
		t.Errorf("expected OutcomeTransient for a network timeout string, got %v", network.Outcome)
	}
}

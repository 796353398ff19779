package githubclient

import "errors"

// Outcome tags the result of a GitHubClient call so callers can
// pattern-match on the tag instead of mingling retry logic with call-site
// try/catch, per the REDESIGN FLAGS note in spec.md §9.
type Outcome int

const (
	// OutcomeOK indicates the call succeeded.
	OutcomeOK Outcome = iota
	// OutcomeNotFound indicates a 404 — the resource does not exist.
	OutcomeNotFound
	// OutcomeRateLimited indicates a 403 carrying rate-limit headers,
	// distinguished from an auth failure.
	OutcomeRateLimited
	// OutcomeTransient indicates a 5xx, network timeout, or connection
	// reset — retryable.
	OutcomeTransient
	// OutcomePermanent indicates a 401, malformed response, or 422 — not
	// retryable.
	OutcomePermanent
	// OutcomeCancelled indicates the caller's context was cancelled.
	OutcomeCancelled
)

// Sentinel errors, one per Outcome, so callers can errors.Is against them.
var (
	ErrNotFound   = errors.New("githubclient: not found")
	ErrRateLimited = errors.New("githubclient: rate limited")
	ErrTransient  = errors.New("githubclient: transient error")
	ErrPermanent  = errors.New("githubclient: permanent error")
	ErrCancelled  = errors.New("githubclient: cancelled")
)

// CallError wraps an underlying error with its Outcome classification.
type CallError struct {
	Outcome Outcome
	Err     error
}

func (e *CallError) Error() string {
	return e.Err.Error()
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel error for e's Outcome, so
// errors.Is(err, ErrNotFound) and friends hold for a classified CallError.
func (e *CallError) Is(target error) bool {
	return target != nil && target == sentinelFor(e.Outcome)
}

// asTerminal converts a possibly-nil *CallError into an error suitable for
// returning directly from a retry.Do op, bypassing retry.RetryableError so
// the retrier treats it as final regardless of Outcome.
func (e *CallError) asTerminal() error {
	if e == nil {
		return nil
	}
	return e
}

func sentinelFor(o Outcome) error {
	switch o {
	case OutcomeNotFound:
		return ErrNotFound
	case OutcomeRateLimited:
		return ErrRateLimited
	case OutcomeTransient:
		return ErrTransient
	case OutcomePermanent:
		return ErrPermanent
	case OutcomeCancelled:
		return ErrCancelled
	default:
		return nil
	}
}

func newCallError(o Outcome, cause error) *CallError {
	sentinel := sentinelFor(o)
	if cause == nil {
		cause = sentinel
	}
	return &CallError{Outcome: o, Err: cause}
}

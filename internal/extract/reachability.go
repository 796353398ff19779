package extract

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ckerr6/ghintel/internal/model"
)

const recentActivityCutoff = 90 * 24 * time.Hour

// Reachability signal weights, per spec.md §4.5.5.
const (
	weightProfileEmail   = 30
	weightCommitEmail    = 20
	weightTwitter        = 20
	weightWebsite        = 15
	weightRecentActivity = 20
	weightHireMeBio      = 15

	maxReachabilityScore = 100
)

var hireMeBioPattern = regexp.MustCompile(`(?i)(open to|available for|looking for|hire me|freelance)`)

// Reachability is the output of the reachability extractor (spec.md
// §4.5.5).
type Reachability struct {
	Score             int
	Signals           []model.ReachabilitySignal
	BestContactMethod model.ContactMethod
	ExtractedEmails   []string
}

// ExtractReachability derives the reachability score, contributing
// signals, best contact method, and the deduplicated, noreply-filtered
// email set from a ProfileBundle. now and lastActiveAt anchor the
// recent-activity signal; lastActiveAt is expected to come from the
// activity extractor's output for the same bundle.
func ExtractReachability(b model.ProfileBundle, lastActiveAt, now time.Time) Reachability {
	var signals []model.ReachabilitySignal

	emails := collectEmails(b)

	if b.User.Email != "" && !isNoreplyEmail(b.User.Email) {
		signals = append(signals, model.ReachabilitySignal{Signal: "public_profile_email", Weight: weightProfileEmail})
	}
	if hasCommitEmail(b) {
		signals = append(signals, model.ReachabilitySignal{Signal: "commit_email", Weight: weightCommitEmail})
	}
	if b.User.TwitterUsername != "" {
		signals = append(signals, model.ReachabilitySignal{Signal: "twitter_handle", Weight: weightTwitter})
	}
	if isParseableURL(b.User.Blog) {
		signals = append(signals, model.ReachabilitySignal{Signal: "personal_website", Weight: weightWebsite})
	}
	if !lastActiveAt.IsZero() && now.Sub(lastActiveAt) <= recentActivityCutoff {
		signals = append(signals, model.ReachabilitySignal{Signal: "recent_activity", Weight: weightRecentActivity})
	}
	if hireMeBioPattern.MatchString(b.User.Bio) {
		signals = append(signals, model.ReachabilitySignal{Signal: "hire_me_bio", Weight: weightHireMeBio})
	}

	var total int
	for _, s := range signals {
		total += s.Weight
	}
	if total > maxReachabilityScore {
		total = maxReachabilityScore
	}

	return Reachability{
		Score:             total,
		Signals:           signals,
		BestContactMethod: bestContactMethod(signals),
		ExtractedEmails:   emails,
	}
}

// bestContactMethod picks the highest-weight signal present, breaking ties
// in the order Email > Twitter > Website > GitHub > None, per spec.md
// §4.5.5.
func bestContactMethod(signals []model.ReachabilitySignal) model.ContactMethod {
	if len(signals) == 0 {
		return model.ContactNone
	}
	bestWeight := 0
	for _, s := range signals {
		if s.Weight > bestWeight {
			bestWeight = s.Weight
		}
	}
	present := map[model.ContactMethod]bool{}
	signalToMethod := map[string]model.ContactMethod{
		"public_profile_email": model.ContactEmail,
		"commit_email":         model.ContactEmail,
		"twitter_handle":       model.ContactTwitter,
		"personal_website":     model.ContactWebsite,
		"recent_activity":      model.ContactGitHub,
	}
	for _, s := range signals {
		if s.Weight == bestWeight {
			if m, ok := signalToMethod[s.Signal]; ok {
				present[m] = true
			}
		}
	}
	priority := []model.ContactMethod{model.ContactEmail, model.ContactTwitter, model.ContactWebsite, model.ContactGitHub}
	for _, m := range priority {
		if present[m] {
			return m
		}
	}
	return model.ContactNone
}

func isParseableURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

func hasCommitEmail(b model.ProfileBundle) bool {
	for _, e := range b.Events {
		if e.Type != model.EventTypePush {
			continue
		}
		for _, email := range e.CommitEmails {
			if !isNoreplyEmail(email) {
				return true
			}
		}
	}
	return false
}

// collectEmails unions the profile email and commit-author emails,
// filtering the noreply pattern and deduplicating case-insensitively, per
// spec.md §4.5.5's extracted_emails definition.
func collectEmails(b model.ProfileBundle) []string {
	seen := map[string]string{}
	add := func(addr string) {
		if addr == "" || isNoreplyEmail(addr) {
			return
		}
		key := strings.ToLower(addr)
		if _, ok := seen[key]; !ok {
			seen[key] = addr
		}
	}

	add(b.User.Email)
	for _, e := range b.Events {
		if e.Type != model.EventTypePush {
			continue
		}
		for _, email := range e.CommitEmails {
			add(email)
		}
	}

	out := make([]string, 0, len(seen))
	for _, v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// isNoreplyEmail is re-declared here (rather than imported from
// githubclient, which is an I/O package) to keep extract free of any
// dependency beyond model and dictionary.
func isNoreplyEmail(addr string) bool {
	return strings.HasSuffix(strings.ToLower(addr), "@users.noreply.github.com")
}

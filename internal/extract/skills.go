// Package extract implements the pure ProfileBundle -> attribute-vector
// functions of spec.md §4.5. Every function here is free of I/O: same
// bundle (and, for skills, the same dictionary) in, same attributes out.
// The only shared state is a concurrency-safe cache of compiled regexes,
// which does not affect results.
package extract

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/ckerr6/ghintel/internal/dictionary"
	"github.com/ckerr6/ghintel/internal/model"
)

// maxPrimaryLanguages caps primary_languages at 10 entries, per spec.md
// §4.5.1.
const maxPrimaryLanguages = 10

// primaryLanguageCoverage is the cumulative byte-share threshold primary
// languages must cover, per spec.md §4.5.1.
const primaryLanguageCoverage = 0.95

// Skills is the output of the skills extractor (spec.md §4.5.1).
type Skills struct {
	PrimaryLanguages map[string]model.LanguageShare
	Frameworks       []string
	Tools            []string
	Domains          []string
}

// ExtractSkills derives technical skills from a ProfileBundle's repos,
// language stats, topics, and descriptions, matched against the supplied
// dictionary.
func ExtractSkills(b model.ProfileBundle, frameworks, tools []dictionary.Entry) Skills {
	return Skills{
		PrimaryLanguages: primaryLanguages(b.LanguageStats),
		Frameworks:       matchEntries(b.Repos, frameworks),
		Tools:            matchEntries(b.Repos, tools),
		Domains:          matchDomains(b.Repos, frameworks, tools),
	}
}

func primaryLanguages(stats model.LanguageStats) map[string]model.LanguageShare {
	totals := map[string]int64{}
	var grandTotal int64
	for _, langs := range stats {
		for lang, bytes := range langs {
			totals[lang] += bytes
			grandTotal += bytes
		}
	}
	if grandTotal == 0 {
		return map[string]model.LanguageShare{}
	}

	type kv struct {
		lang  string
		bytes int64
	}
	sorted := make([]kv, 0, len(totals))
	for lang, bytes := range totals {
		sorted = append(sorted, kv{lang, bytes})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].bytes != sorted[j].bytes {
			return sorted[i].bytes > sorted[j].bytes
		}
		return sorted[i].lang < sorted[j].lang
	})

	out := map[string]model.LanguageShare{}
	var cumulative int64
	for _, entry := range sorted {
		if len(out) >= maxPrimaryLanguages {
			break
		}
		out[entry.lang] = model.LanguageShare{
			Bytes:      entry.bytes,
			Percentage: float64(entry.bytes) / float64(grandTotal),
		}
		cumulative += entry.bytes
		if float64(cumulative)/float64(grandTotal) >= primaryLanguageCoverage {
			break
		}
	}
	return out
}

func matchEntries(repos []model.Repo, entries []dictionary.Entry) []string {
	matched := map[string]bool{}
	for _, repo := range repos {
		for _, e := range entries {
			if entryMatchesRepo(repo, e) {
				matched[e.Name] = true
			}
		}
	}
	names := make([]string, 0, len(matched))
	for name := range matched {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func matchDomains(repos []model.Repo, dictionaries ...[]dictionary.Entry) []string {
	matched := map[string]bool{}
	for _, repo := range repos {
		for _, entries := range dictionaries {
			for _, e := range entries {
				if e.Domain != "" && entryMatchesRepo(repo, e) {
					matched[e.Domain] = true
				}
			}
		}
	}
	domains := make([]string, 0, len(matched))
	for d := range matched {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}

func entryMatchesRepo(repo model.Repo, e dictionary.Entry) bool {
	for _, topic := range repo.Topics {
		for _, slug := range e.Slugs {
			if strings.EqualFold(topic, slug) {
				return true
			}
		}
	}
	for _, slug := range e.Slugs {
		if strings.EqualFold(repo.Name, slug) {
			return true
		}
	}
	if repo.Description != "" && wholeWordMatch(repo.Description, e.Name) {
		return true
	}
	return false
}

// wordBoundaryCache memoizes the compiled whole-word regex per dictionary
// entry name. Entry names come from the fixed, versioned dictionary, so the
// cache's key space is bounded; sync.Map keeps lookups safe across the
// concurrent workers that run extraction inline (spec.md §4.7).
var wordBoundaryCache sync.Map

func wholeWordMatch(text, word string) bool {
	if cached, ok := wordBoundaryCache.Load(word); ok {
		return cached.(*regexp.Regexp).MatchString(text)
	}
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
	wordBoundaryCache.Store(word, re)
	return re.MatchString(text)
}

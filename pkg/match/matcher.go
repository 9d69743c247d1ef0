// Package match implements the glossary search core: canonical string
// normalization and a tiered term matcher (exact, then substring, then
// optional fuzzy edit-distance fallback), plus a lightweight autocomplete
// ranking. All operations are pure reads over the caller's collection.
package match

import (
	"sort"
	"strings"
)

// Searchable is implemented by any record that exposes the term it should be
// matched on. Normalization is applied internally; implementations return the
// display form.
type Searchable interface {
	SearchTerm() string
}

// MaxSuggestions caps the autocomplete result list.
const MaxSuggestions = 8

// tier is one stage of the fallback search. It receives the normalized query
// and returns the entries it matched; an empty result hands off to the next
// tier.
type tier[E Searchable] func(query string, entries []E) []E

// Search runs the tiered fallback over entries, which the caller supplies
// sorted however results should be ordered (the store lists terms by
// canonical form). Each tier returns immediately when it matches anything:
// exact equality first, then substring containment, then — only when
// fuzzyEnabled — entries within fuzzyTolerance edits, stably sorted by
// ascending distance. A query that trims to empty returns entries unchanged.
func Search[E Searchable](query string, entries []E, fuzzyEnabled bool, fuzzyTolerance int) []E {
	query = strings.TrimSpace(query)
	if query == "" {
		return entries
	}
	q := Normalize(query)

	tiers := []tier[E]{exactTier[E], substringTier[E]}
	if fuzzyEnabled {
		tiers = append(tiers, fuzzyTier[E](fuzzyTolerance))
	}
	for _, t := range tiers {
		if res := t(q, entries); len(res) > 0 {
			return res
		}
	}
	return nil
}

func exactTier[E Searchable](q string, entries []E) []E {
	var out []E
	for _, e := range entries {
		if Normalize(e.SearchTerm()) == q {
			out = append(out, e)
		}
	}
	return out
}

func substringTier[E Searchable](q string, entries []E) []E {
	var out []E
	for _, e := range entries {
		if strings.Contains(Normalize(e.SearchTerm()), q) {
			out = append(out, e)
		}
	}
	return out
}

func fuzzyTier[E Searchable](tolerance int) tier[E] {
	return func(q string, entries []E) []E {
		type scored struct {
			entry E
			dist  int
		}
		var hits []scored
		for _, e := range entries {
			// Both sides normalized before the distance computation; doing it
			// asymmetrically changes distances for accented input.
			d := Levenshtein(q, Normalize(e.SearchTerm()))
			if d <= tolerance {
				hits = append(hits, scored{entry: e, dist: d})
			}
		}
		sort.SliceStable(hits, func(i, j int) bool {
			return hits[i].dist < hits[j].dist
		})
		out := make([]E, len(hits))
		for i, h := range hits {
			out[i] = h.entry
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
}

// Suggest returns autocomplete candidates for query: entries whose normalized
// term starts with the normalized query first, followed by entries that
// merely contain it, both in input order, capped at MaxSuggestions. An empty
// query yields no suggestions.
func Suggest[E Searchable](query string, entries []E) []E {
	q := Normalize(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var prefixed, contained []E
	for _, e := range entries {
		t := Normalize(e.SearchTerm())
		switch {
		case strings.HasPrefix(t, q):
			prefixed = append(prefixed, e)
		case strings.Contains(t, q):
			contained = append(contained, e)
		}
	}
	out := append(prefixed, contained...)
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}

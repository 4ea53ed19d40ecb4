// Package expansion turns one raw query into a set of lexically related
// query variants for the search fan-out.
package expansion

import "strings"

// DefaultMaxExpansions caps the fan-out for highly polysemous queries.
// Every variant costs one embedding call plus a full corpus scan, so the
// set size multiplies request cost linearly.
const DefaultMaxExpansions = 25

// Expander produces query variants via lexical synonym lookup.
type Expander struct {
	lexicon Lexicon
	max     int
}

// New creates an Expander. max <= 0 selects DefaultMaxExpansions.
func New(lexicon Lexicon, max int) *Expander {
	if max <= 0 {
		max = DefaultMaxExpansions
	}
	return &Expander{lexicon: lexicon, max: max}
}

// Expand splits the query into whitespace tokens and collects every synonym
// of every token. The original query is always the first element; duplicates
// are dropped; the result never exceeds the configured cap. Output order is
// deterministic for a fixed lexicon (insertion order), but callers must not
// treat it as a ranking.
func (e *Expander) Expand(query string) []string {
	expanded := []string{query}
	seen := map[string]struct{}{query: {}}

	for _, token := range strings.Fields(query) {
		for _, syn := range e.lexicon.Synonyms(token) {
			if len(expanded) >= e.max {
				return expanded
			}
			if _, ok := seen[syn]; ok {
				continue
			}
			seen[syn] = struct{}{}
			expanded = append(expanded, syn)
		}
	}
	return expanded
}

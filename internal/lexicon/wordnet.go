// Package lexicon adapts a WordNet dictionary to the synonym lookup used by
// query expansion.
package lexicon

import (
	"fmt"
	"strings"

	"github.com/fluhus/gostuff/nlp/wordnet"
)

// WordNet wraps a parsed WordNet dictionary. Parsing happens once at
// startup; lookups afterwards are read-only and safe for concurrent use.
type WordNet struct {
	wn *wordnet.WordNet
}

// Load parses the WordNet database files from dir (the standard "dict"
// directory of a WordNet distribution).
func Load(dir string) (*WordNet, error) {
	wn, err := wordnet.Parse(dir)
	if err != nil {
		return nil, fmt.Errorf("parse wordnet at %s: %w", dir, err)
	}
	return &WordNet{wn: wn}, nil
}

// Synonyms returns every lemma of every synset the word participates in,
// across all parts of speech. Multi-word lemmas are rendered with spaces
// instead of WordNet's underscore joiner. The word itself may or may not be
// in the result; callers are expected to retain their original tokens.
func (l *WordNet) Synonyms(word string) []string {
	var out []string
	for _, synsets := range l.wn.Search(strings.ToLower(word)) {
		for _, ss := range synsets {
			for _, lemma := range ss.Word {
				out = append(out, strings.ReplaceAll(lemma, "_", " "))
			}
		}
	}
	return out
}

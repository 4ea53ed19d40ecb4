package expansion

// Lexicon looks up lexical synonyms for a single word.
type Lexicon interface {
	Synonyms(word string) []string
}

package search

import "strings"

// stopWords are query terms too common to carry relevance signal.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "is": {}, "are": {}, "was": {},
	"were": {}, "be": {}, "it": {}, "this": {}, "that": {}, "with": {},
	"about": {}, "what": {}, "which": {}, "who": {}, "how": {}, "why": {},
	"when": {}, "where": {}, "do": {}, "does": {}, "did": {}, "can": {},
	"you": {}, "i": {}, "we": {}, "they": {}, "he": {}, "she": {},
}

// Tokenize splits free text into lowercase terms, dropping stop-words and
// duplicates. Order of first appearance is preserved.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})

	seen := make(map[string]struct{}, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

func isWordRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r >= 'A' && r <= 'Z' || r > 127
}

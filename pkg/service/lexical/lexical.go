// Package lexical provides the shared word normalization and token-set similarity used by
// hybrid reranking and baseline matching.
package lexical

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {}, "it": {}, "of": {},
	"on": {}, "or": {}, "that": {}, "the": {}, "to": {}, "with": {},
}

// TokenSet is a set of normalized tokens
type TokenSet map[string]struct{}

// Has reports whether token is in the set
func (s TokenSet) Has(token string) bool {
	_, ok := s[token]
	return ok
}

// Normalize lowercases text and keeps only ASCII alphanumeric runs, joined by single spaces
func Normalize(text string) string {
	return strings.Join(tokenPattern.FindAllString(strings.ToLower(text), -1), " ")
}

// Tokenize returns the normalized tokens of text that are longer than two characters
// and are not stop words
func Tokenize(text string) TokenSet {
	set := make(TokenSet)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if len(tok) <= 2 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when either set is empty
func Jaccard(a, b TokenSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for tok := range small {
		if large.Has(tok) {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

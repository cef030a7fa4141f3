package search

import "strings"

// ignoredTerms never count toward a verbatim match. Question words are
// included because ask queries are usually phrased as questions.
var ignoredTerms = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "be": {}, "is": {}, "are": {}, "was": {},
	"to": {}, "of": {}, "and": {}, "in": {}, "that": {}, "have": {}, "it": {},
	"for": {}, "not": {}, "on": {}, "with": {}, "as": {}, "you": {}, "do": {},
	"does": {}, "at": {}, "this": {}, "but": {}, "by": {}, "from": {},
	"what": {}, "which": {}, "who": {}, "how": {}, "why": {}, "when": {}, "where": {},
}

const termPunctuation = ".,!?;:'\"-()[]{}"

// terms returns the lowercased words of text with punctuation and ignored
// terms removed.
func terms(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range strings.Fields(text) {
		w := strings.ToLower(strings.Trim(word, termPunctuation))
		if w == "" {
			continue
		}
		if _, skip := ignoredTerms[w]; skip {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

// containsAllQueryWords reports whether every significant query word occurs
// in the chunk text. A query with no significant words never matches.
func containsAllQueryWords(text, query string) bool {
	want := terms(query)
	if len(want) == 0 {
		return false
	}
	have := terms(text)
	for w := range want {
		if _, ok := have[w]; !ok {
			return false
		}
	}
	return true
}

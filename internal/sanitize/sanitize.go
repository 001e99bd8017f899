// Package sanitize normalizes raw question text into the lexical query,
// term list, and embedding input the rest of the core operates on
// (spec.md §4.1). It never raises errors; empty input yields empty output.
package sanitize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// minTermLen is the shortest term kept in the token list (spec.md §4.1).
const minTermLen = 2

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "he": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"that": true, "the": true, "to": true, "was": true, "were": true,
	"will": true, "with": true, "or": true, "this": true, "these": true,
	"those": true, "i": true, "you": true, "we": true, "do": true, "does": true,
	"did": true, "what": true, "which": true, "who": true, "how": true,
}

// Result holds the three artifacts derived from one raw question.
type Result struct {
	// Original is passed unmodified to the embedding provider.
	Original string
	// LexicalQuery is lowercased, punctuation-stripped, diacritic-folded,
	// whitespace-collapsed — used for lexical/BM25-style search.
	LexicalQuery string
	// Terms is the stop-word-filtered token list used for term-coverage
	// scoring (confidence feature f7).
	Terms []string
}

var diacriticFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Sanitize derives the lexical query, term list, and embedding-ready
// original string from raw question text.
func Sanitize(question string) Result {
	res := Result{Original: question}
	if strings.TrimSpace(question) == "" {
		return res
	}

	folded, _, err := transform.String(diacriticFold, question)
	if err != nil {
		folded = question
	}

	var b strings.Builder
	b.Grow(len(folded))
	lastWasSpace := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastWasSpace = false
		default:
			if !lastWasSpace {
				b.WriteRune(' ')
				lastWasSpace = true
			}
		}
	}
	res.LexicalQuery = strings.TrimSpace(b.String())

	if res.LexicalQuery == "" {
		return res
	}

	fields := strings.Fields(res.LexicalQuery)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < minTermLen || stopWords[f] {
			continue
		}
		terms = append(terms, f)
	}
	res.Terms = terms
	return res
}

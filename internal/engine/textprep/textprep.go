// Package textprep normalises free text before it is embedded or screened.
package textprep

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var urlPattern = regexp.MustCompile(`https?://\S+|www\.\S+`)

// asciiPunctuation is every printable ASCII symbol that is not a letter,
// digit or space.
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

var stripPunct = strings.NewReplacer(punctuationPairs()...)

func punctuationPairs() []string {
	pairs := make([]string, 0, 2*len(asciiPunctuation))
	for _, r := range asciiPunctuation {
		pairs = append(pairs, string(r), "")
	}
	return pairs
}

// Normalize lower-cases text, removes URLs and ASCII punctuation, splits on
// whitespace, drops English and French stop-words and rejoins the remaining
// tokens with single spaces. The result is empty when nothing meaningful
// remains.
func Normalize(text string) string {
	lower := cases.Lower(language.Und).String(text)
	lower = urlPattern.ReplaceAllString(lower, "")
	lower = stripPunct.Replace(lower)

	tokens := strings.Fields(lower)
	kept := tokens[:0]
	for _, tok := range tokens {
		if !IsStopWord(tok) {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}

// IsStopWord reports whether a lower-case token is an English or French stop-word.
func IsStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}

package grounding

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxSearchTerms bounds the terms passed to the product lookup.
const MaxSearchTerms = 5

const minTermLength = 4

var stopwords = map[string]struct{}{
	"para": {}, "como": {}, "cuanto": {}, "cuánto": {}, "cual": {}, "cuál": {}, "este": {}, "esta": {}, "esto": {},
	"quiero": {}, "quisiera": {}, "saber": {}, "tiene": {}, "tienen": {}, "hola": {},
	"desde": {}, "hasta": {}, "sobre": {}, "paquete": {}, "viaje": {}, "favor": {},
	"with": {}, "what": {}, "does": {}, "would": {}, "like": {}, "know": {}, "about": {},
	"from": {}, "trip": {}, "package": {}, "please": {}, "there": {}, "that": {}, "this": {},
}

// SearchTerms extracts up to MaxSearchTerms lookup terms from a message: lower-cased words of
// at least four letters that are neither stopwords nor pricing vocabulary, in message order.
func (v *Validator) SearchTerms(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	seen := make(map[string]struct{}, len(words))
	var terms []string
	for _, w := range words {
		if utf8.RuneCountInString(w) < minTermLength {
			continue
		}
		if _, skip := stopwords[w]; skip {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		if v.HasFinancialIntent(w) {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, w)
		if len(terms) == MaxSearchTerms {
			break
		}
	}
	return terms
}

package threat

import (
	"regexp"
	"strings"
	"unicode"
)

// Booster rule ids reported after the catalog rule ids.
const (
	BoosterEncodingObfuscation   = "encoding_obfuscation"
	BoosterExcessiveSpecialChars = "excessive_special_chars"
)

// SpecialCharDensityThreshold is the fraction of runes above which a message is considered
// noisy enough to raise its level to LOW.
const SpecialCharDensityThreshold = 0.30

// base64Candidate finds runs that could be base64 payloads. Runs are then filtered by
// isBase64Shaped so ordinary long words do not count.
var base64Candidate = regexp.MustCompile(`[A-Za-z0-9+/]{20,}={0,2}`)

// Signals are the rule-independent observations made about a message.
// Signals 是与规则无关的启发式信号。
type Signals struct {
	// Obfuscation is set by control characters or base64-shaped tokens.
	Obfuscation bool
	// ExcessiveSpecialChars is set when special characters exceed the density threshold.
	ExcessiveSpecialChars bool
}

// DetectSignals evaluates both boosters on text.
func DetectSignals(text string) Signals {
	return Signals{
		Obfuscation:           hasControlChars(text) || hasBase64Token(text),
		ExcessiveSpecialChars: SpecialCharDensity(text) > SpecialCharDensityThreshold,
	}
}

// hasControlChars reports control or zero-width characters. Tab, newline and carriage
// return are ordinary formatting.
func hasControlChars(text string) bool {
	for _, r := range text {
		switch r {
		case '\t', '\n', '\r':
			continue
		case '\u200b', '\u200c', '\u200d', '\u200e', '\u200f', '\u2060', '\ufeff':
			return true
		}
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}

func hasBase64Token(text string) bool {
	for _, tok := range base64Candidate.FindAllString(text, -1) {
		if isBase64Shaped(tok) {
			return true
		}
	}
	return false
}

// isBase64Shaped requires upper case, lower case and digits in the same run.
func isBase64Shaped(tok string) bool {
	var upper, lower, digit bool
	for _, r := range strings.TrimRight(tok, "=") {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return upper && lower && digit
}

// SpecialCharDensity returns the fraction of runes that are neither letters, digits,
// whitespace nor common sentence punctuation.
func SpecialCharDensity(text string) float64 {
	var total, special int
	for _, r := range text {
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			continue
		}
		switch r {
		case '.', ',', '?', '!', '¿', '¡':
			continue
		}
		special++
	}
	if total == 0 {
		return 0
	}
	return float64(special) / float64(total)
}

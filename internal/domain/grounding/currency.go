package grounding

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// AmountTolerance is the largest difference at which two amounts are considered equal.
const AmountTolerance = 0.01

var amountDigits = regexp.MustCompile(`\d+(?:[.,]\d+)*`)

// ParseAmount extracts the numeric value of a currency token such as "US$ 1.500",
// "USD 99.50" or "1.234,56 pesos". When both separators appear the last one is the decimal
// mark. A lone separator followed by one or two digits is a decimal mark, otherwise it
// groups thousands.
func ParseAmount(token string) (float64, bool) {
	raw := amountDigits.FindString(token)
	if raw == "" {
		return 0, false
	}

	lastDot := strings.LastIndexByte(raw, '.')
	lastComma := strings.LastIndexByte(raw, ',')
	decimal := -1
	switch {
	case lastDot >= 0 && lastComma >= 0:
		decimal = max(lastDot, lastComma)
	case lastDot >= 0 || lastComma >= 0:
		sep := byte('.')
		pos := lastDot
		if lastComma >= 0 {
			sep, pos = ',', lastComma
		}
		if strings.Count(raw, string(sep)) == 1 && len(raw)-pos-1 <= 2 {
			decimal = pos
		}
	}

	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case i == decimal:
			b.WriteByte('.')
		case c == '.' || c == ',':
		default:
			b.WriteByte(c)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// amountGrounded reports whether v equals one of the verified amounts.
func amountGrounded(v float64, verified []float64) bool {
	for _, a := range verified {
		if math.Abs(a-v) <= AmountTolerance {
			return true
		}
	}
	return false
}

// Symbol prefixes that name a currency. A bare "$" names none.
var currencySymbols = []struct {
	prefix string
	code   string
}{
	{"U$S", "USD"},
	{"US$", "USD"},
	{"AR$", "ARS"},
	{"R$", "BRL"},
}

var isoCodes = map[string]bool{"ARS": true, "USD": true, "EUR": true, "BRL": true, "CLP": true, "UYU": true}

// Currency words and the ISO codes they can stand for.
var currencyWords = []struct {
	stem  string
	codes []string
}{
	{"peso", []string{"ARS", "CLP", "UYU"}},
	{"dólar", []string{"USD"}},
	{"dolar", []string{"USD"}},
	{"dollar", []string{"USD"}},
	{"euro", []string{"EUR"}},
	{"real", []string{"BRL"}},
}

// TokenCurrencies returns the ISO codes a currency token names, or nil when it names none
// (a bare "$").
func TokenCurrencies(token string) []string {
	upper := strings.ToUpper(strings.TrimSpace(token))
	for _, sym := range currencySymbols {
		if strings.HasPrefix(upper, sym.prefix) {
			return []string{sym.code}
		}
	}
	if len(upper) >= 3 && isoCodes[upper[:3]] {
		return []string{upper[:3]}
	}
	lower := strings.ToLower(token)
	for _, w := range currencyWords {
		if strings.Contains(lower, w.stem) {
			return w.codes
		}
	}
	return nil
}

// currencyGrounded reports whether token is in the record currency. Tokens that name no
// currency are accepted on amount alone.
func currencyGrounded(token, recordCurrency string) bool {
	codes := TokenCurrencies(token)
	if codes == nil {
		return true
	}
	for _, c := range codes {
		if strings.EqualFold(c, recordCurrency) {
			return true
		}
	}
	return false
}

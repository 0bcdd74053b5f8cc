// Package pii redacts personal data from free text using the typed PII rules of a pattern
// catalog. Categories are applied in a fixed order, each on the output of the previous one,
// and text inside existing placeholders is never touched, which makes Redact idempotent.
package pii

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/turtacn/shieldgate/internal/domain/models"
	"github.com/turtacn/shieldgate/internal/domain/pattern"
)

// PhonePlaceholder replaces phone numbers entirely.
const PhonePlaceholder = "[PHONE REDACTED]"

// placeholderRe recognizes every token this package emits. Spans it matches are protected
// from further redaction.
var placeholderRe = regexp.MustCompile(
	`\*{4}-\*{4}-\*{4}-\d{4}` +
		`|\[[A-Z_]+ REDACTED\]` +
		`|(?i:[a-z0-9._%+-]\*{3}@[a-z0-9.-]+\.[a-z]{2,})`,
)

var nonDigit = regexp.MustCompile(`\D`)

// Result is the outcome of one redaction.
type Result struct {
	Text       string
	Categories []models.PIICategory
	RawMatches map[models.PIICategory][]string
}

// Findings returns the matches grouped per category, in category order.
func (r Result) Findings() []models.PIIFinding {
	out := make([]models.PIIFinding, 0, len(r.Categories))
	for _, c := range r.Categories {
		out = append(out, models.PIIFinding{Category: c, RawMatches: r.RawMatches[c]})
	}
	return out
}

// Found reports whether any PII was redacted.
func (r Result) Found() bool { return len(r.Categories) > 0 }

type step struct {
	category models.PIICategory
	rule     *pattern.Rule
}

// Redactor applies the PII rules of a catalog. It is immutable and safe for concurrent use.
type Redactor struct {
	steps []step
}

// NewRedactor builds a redactor over the PII rule set of catalog.
func NewRedactor(catalog *pattern.Catalog) (*Redactor, error) {
	rs := catalog.PII()
	steps := make([]step, 0, len(models.PIICategories))
	for _, cat := range models.PIICategories {
		rule, ok := rs.ByCategory(cat.String())
		if !ok {
			return nil, fmt.Errorf("pii: catalog %s has no rule for %s", catalog.Version(), cat)
		}
		steps = append(steps, step{category: cat, rule: rule})
	}
	return &Redactor{steps: steps}, nil
}

// Redact replaces every PII occurrence in text.
func (r *Redactor) Redact(text string) Result {
	return r.redact(text, nil)
}

// RedactKeeping behaves like Redact but leaves every occurrence of the keep strings intact.
// The output validator uses it so verified price figures are not mistaken for identifiers.
func (r *Redactor) RedactKeeping(text string, keep []string) Result {
	if len(keep) == 0 {
		return r.redact(text, nil)
	}
	quoted := make([]string, 0, len(keep))
	for _, k := range keep {
		if k != "" {
			quoted = append(quoted, regexp.QuoteMeta(k))
		}
	}
	if len(quoted) == 0 {
		return r.redact(text, nil)
	}
	return r.redact(text, regexp.MustCompile(strings.Join(quoted, "|")))
}

func (r *Redactor) redact(text string, keep *regexp.Regexp) Result {
	res := Result{Text: text, RawMatches: make(map[models.PIICategory][]string)}
	if text == "" {
		return res
	}
	for _, s := range r.steps {
		var found []string
		transform := func(m string) string {
			found = append(found, m)
			return mask(s.category, m)
		}
		res.Text = replaceOutside(res.Text, protectedSpans(res.Text, keep), s.rule.Regexp(), transform)
		if len(found) > 0 {
			res.Categories = append(res.Categories, s.category)
			res.RawMatches[s.category] = found
		}
	}
	return res
}

// mask returns the replacement for one match of category c.
func mask(c models.PIICategory, m string) string {
	switch c {
	case models.PIIPaymentCard:
		digits := nonDigit.ReplaceAllString(m, "")
		return "****-****-****-" + digits[len(digits)-4:]
	case models.PIIEmail:
		at := strings.LastIndexByte(m, '@')
		if at <= 0 {
			return "[EMAIL REDACTED]"
		}
		return m[:1] + "***" + m[at:]
	case models.PIIPhone:
		return PhonePlaceholder
	case models.PIIBankAccount, models.PIITaxID, models.PIINationalID, models.PIIPassport:
		return "[" + strings.ToUpper(c.String()) + " REDACTED]"
	}
	return "[REDACTED]"
}

// protectedSpans returns the sorted, merged spans of placeholders and kept strings.
func protectedSpans(text string, keep *regexp.Regexp) []pattern.Span {
	var spans []pattern.Span
	for _, loc := range placeholderRe.FindAllStringIndex(text, -1) {
		spans = append(spans, pattern.Span{Start: loc[0], End: loc[1]})
	}
	if keep != nil {
		for _, loc := range keep.FindAllStringIndex(text, -1) {
			spans = append(spans, pattern.Span{Start: loc[0], End: loc[1]})
		}
	}
	return pattern.MergeSpans(spans)
}

// replaceOutside applies re to the text between protected spans only.
func replaceOutside(text string, protected []pattern.Span, re *regexp.Regexp, fn func(string) string) string {
	if len(protected) == 0 {
		return re.ReplaceAllStringFunc(text, fn)
	}
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, p := range protected {
		b.WriteString(re.ReplaceAllStringFunc(text[last:p.Start], fn))
		b.WriteString(text[p.Start:p.End])
		last = p.End
	}
	b.WriteString(re.ReplaceAllStringFunc(text[last:], fn))
	return b.String()
}

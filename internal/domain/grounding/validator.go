// Package grounding keeps monetary facts in assistant output tied to verified records and
// rejects output that describes the assistant's own instructions.
package grounding

import (
	"strings"

	"github.com/turtacn/shieldgate/internal/domain/models"
	"github.com/turtacn/shieldgate/internal/domain/pattern"
	"github.com/turtacn/shieldgate/internal/domain/pii"
	"github.com/turtacn/shieldgate/pkg/constants"
)

// Validator runs the output-side checks and the pricing intent detection.
type Validator struct {
	leak     *pattern.RuleSet
	currency *pattern.RuleSet
	intent   *pattern.RuleSet
	redactor *pii.Redactor
}

// NewValidator creates a validator over the catalog's leak, currency and intent rules.
func NewValidator(catalog *pattern.Catalog, redactor *pii.Redactor) *Validator {
	return &Validator{
		leak:     catalog.SystemLeak(),
		currency: catalog.Currency(),
		intent:   catalog.FinancialIntent(),
		redactor: redactor,
	}
}

// HasFinancialIntent reports whether text asks about prices.
func (v *Validator) HasFinancialIntent(text string) bool {
	return len(pattern.MatchesAny(text, v.intent)) > 0
}

// ValidateOutput checks generated text before release.
//
// A system-prompt leak discards the whole response. Currency amounts that are not backed by
// rec are replaced with the price placeholder and flagged. Remaining PII is redacted, with
// grounded amounts protected so they are not mistaken for identifiers.
func (v *Validator) ValidateOutput(text string, rec *models.FinancialRecord) models.OutputVerdict {
	if len(pattern.MatchesAny(text, v.leak)) > 0 {
		return models.OutputVerdict{
			Accepted:  false,
			FinalText: "",
			Warnings:  []string{constants.WarningSystemPromptLeak},
		}
	}

	warnings := make([]string, 0, 2)
	final, keep, replaced := v.groundPrices(text, rec)
	if replaced {
		if rec == nil {
			warnings = append(warnings, constants.WarningHallucinatedPrices)
		} else {
			warnings = append(warnings, constants.WarningUngroundedPrice)
		}
	}

	red := v.redactor.RedactKeeping(final, keep)
	if red.Found() {
		warnings = append(warnings, constants.WarningPIIInOutput)
	}

	return models.OutputVerdict{Accepted: true, FinalText: red.Text, Warnings: warnings}
}

// groundPrices replaces every currency token not backed by rec, in amount and, when the token
// names one, in currency. It returns the rewritten text, the grounded tokens kept verbatim,
// and whether anything was replaced.
func (v *Validator) groundPrices(text string, rec *models.FinancialRecord) (string, []string, bool) {
	spans := pattern.FindSpans(text, v.currency)
	if len(spans) == 0 {
		return text, nil, false
	}

	var verified []float64
	if rec != nil {
		verified = rec.Amounts()
	}

	var (
		b        strings.Builder
		keep     []string
		replaced bool
		last     int
	)
	for _, s := range spans {
		token := text[s.Start:s.End]
		b.WriteString(text[last:s.Start])
		last = s.End
		if amount, ok := ParseAmount(token); ok && rec != nil &&
			amountGrounded(amount, verified) && currencyGrounded(token, rec.Currency) {
			b.WriteString(token)
			keep = append(keep, token)
			continue
		}
		b.WriteString(constants.PricePlaceholder)
		replaced = true
	}
	b.WriteString(text[last:])
	return b.String(), keep, replaced
}

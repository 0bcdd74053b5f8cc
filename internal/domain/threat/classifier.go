// Package threat turns prompt-injection rule matches and heuristic signals into a threat
// level. Classification is deterministic: same text and catalog, same assessment.
package threat

import (
	"github.com/turtacn/shieldgate/internal/domain/models"
	"github.com/turtacn/shieldgate/internal/domain/pattern"
	"github.com/turtacn/shieldgate/pkg/constants"
)

// Classifier grades messages against the prompt-injection rules of a catalog.
type Classifier struct {
	rules *pattern.RuleSet
}

// NewClassifier creates a classifier over the catalog's prompt-injection rules.
func NewClassifier(catalog *pattern.Catalog) *Classifier {
	return &Classifier{rules: catalog.PromptInjection()}
}

// Classify evaluates every rule and both boosters. MatchedRuleIDs lists the catalog rule ids
// in catalog order followed by any booster ids.
func (c *Classifier) Classify(text string) models.ThreatAssessment {
	ids := pattern.MatchesAny(text, c.rules)
	signals := DetectSignals(text)
	level := Level(len(ids), signals)

	matched := make([]string, 0, len(ids)+2)
	matched = append(matched, ids...)
	if signals.Obfuscation {
		matched = append(matched, BoosterEncodingObfuscation)
	}
	if signals.ExcessiveSpecialChars {
		matched = append(matched, BoosterExcessiveSpecialChars)
	}

	return models.ThreatAssessment{
		IsMalicious:    level.IsMalicious(),
		Level:          level,
		MatchedRuleIDs: matched,
	}
}

// Categories returns the threat categories behind the catalog rule ids of an assessment.
// Booster ids map to the obfuscation category.
func (c *Classifier) Categories(a models.ThreatAssessment) []string {
	cats := pattern.Categories(c.rules, a.MatchedRuleIDs)
	for _, id := range a.MatchedRuleIDs {
		if id == BoosterEncodingObfuscation || id == BoosterExcessiveSpecialChars {
			if !contains(cats, constants.ThreatCategoryObfuscation) {
				cats = append(cats, constants.ThreatCategoryObfuscation)
			}
			break
		}
	}
	return cats
}

// Level applies the escalation policy: no match is SAFE, one MEDIUM, two HIGH, three or
// more CRITICAL. Boosters set a floor and never lower the result.
func Level(ruleMatches int, s Signals) models.ThreatLevel {
	var level models.ThreatLevel
	switch {
	case ruleMatches >= 3:
		level = models.ThreatCritical
	case ruleMatches == 2:
		level = models.ThreatHigh
	case ruleMatches == 1:
		level = models.ThreatMedium
	default:
		level = models.ThreatSafe
	}
	if s.Obfuscation {
		level = models.MaxThreatLevel(level, models.ThreatHigh)
	}
	if s.ExcessiveSpecialChars {
		level = models.MaxThreatLevel(level, models.ThreatLow)
	}
	return level
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

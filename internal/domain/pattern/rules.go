// Package pattern holds the compiled rule catalogs of the defense pipeline and evaluates
// text against them. Everything here is a pure function of its inputs: no I/O, no
// randomness, no global mutable state.
package pattern

import (
	"fmt"
	"regexp"
)

// Rule set names.
const (
	RuleSetSQLInjection    = "sql_injection"
	RuleSetPromptInjection = "prompt_injection"
	RuleSetPII             = "pii"
	RuleSetSystemLeak      = "system_leak"
	RuleSetCurrency        = "currency"
	RuleSetFinancialIntent = "financial_intent"
)

// RuleDef is the uncompiled form of a rule, as written in catalog files.
type RuleDef struct {
	ID       string `yaml:"id"`
	Category string `yaml:"category"`
	Pattern  string `yaml:"pattern"`
}

// Rule is a compiled, immutable matching rule.
type Rule struct {
	id       string
	category string
	re       *regexp.Regexp
}

// ID returns the stable rule identifier.
func (r *Rule) ID() string { return r.id }

// Category returns the rule's category (PII category name, threat family, ...).
func (r *Rule) Category() string { return r.category }

// Regexp returns the compiled expression. *regexp.Regexp is safe for concurrent use.
func (r *Rule) Regexp() *regexp.Regexp { return r.re }

// Matches reports whether the rule matches anywhere in text.
func (r *Rule) Matches(text string) bool { return r.re.MatchString(text) }

// compileRule compiles def case-insensitively in multi-line mode.
func compileRule(def RuleDef) (*Rule, error) {
	if def.ID == "" {
		return nil, fmt.Errorf("rule without id (pattern %q)", def.Pattern)
	}
	re, err := regexp.Compile("(?im)" + def.Pattern)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", def.ID, err)
	}
	return &Rule{id: def.ID, category: def.Category, re: re}, nil
}

// RuleSet is an ordered group of rules sharing a purpose.
type RuleSet struct {
	name  string
	rules []*Rule
}

// NewRuleSet compiles defs in order. Duplicate ids are rejected.
func NewRuleSet(name string, defs []RuleDef) (*RuleSet, error) {
	seen := make(map[string]struct{}, len(defs))
	rules := make([]*Rule, 0, len(defs))
	for _, d := range defs {
		if _, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("rule set %s: duplicate rule id %s", name, d.ID)
		}
		seen[d.ID] = struct{}{}
		r, err := compileRule(d)
		if err != nil {
			return nil, fmt.Errorf("rule set %s: %w", name, err)
		}
		rules = append(rules, r)
	}
	return &RuleSet{name: name, rules: rules}, nil
}

// Name returns the rule set name.
func (s *RuleSet) Name() string { return s.name }

// Len returns the number of rules.
func (s *RuleSet) Len() int { return len(s.rules) }

// Rules returns the rules in evaluation order. The returned slice is a copy; the rules
// themselves are immutable.
func (s *RuleSet) Rules() []*Rule {
	out := make([]*Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Rule looks a rule up by id.
func (s *RuleSet) Rule(id string) (*Rule, bool) {
	for _, r := range s.rules {
		if r.id == id {
			return r, true
		}
	}
	return nil, false
}

// ByCategory returns the first rule of the given category.
func (s *RuleSet) ByCategory(category string) (*Rule, bool) {
	for _, r := range s.rules {
		if r.category == category {
			return r, true
		}
	}
	return nil, false
}

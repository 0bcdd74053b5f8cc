package pattern

import (
	"fmt"

	"github.com/turtacn/shieldgate/internal/domain/models"
)

// DefaultCatalogVersion identifies the built-in rules. Bump it whenever a rule changes so
// audit records can be tied back to the rules that produced them.
const DefaultCatalogVersion = "2024.1"

// CatalogDef is the uncompiled form of a catalog.
type CatalogDef struct {
	Version         string    `yaml:"version"`
	SQLInjection    []RuleDef `yaml:"sql_injection"`
	PromptInjection []RuleDef `yaml:"prompt_injection"`
	PII             []RuleDef `yaml:"pii"`
	SystemLeak      []RuleDef `yaml:"system_leak"`
	Currency        []RuleDef `yaml:"currency"`
	FinancialIntent []RuleDef `yaml:"financial_intent"`
}

// Catalog is an immutable, versioned collection of rule sets. Build it once at startup and
// pass it to the components that need it.
type Catalog struct {
	version string
	sets    map[string]*RuleSet
}

// Version returns the catalog version.
func (c *Catalog) Version() string { return c.version }

// RuleSet returns the named rule set.
func (c *Catalog) RuleSet(name string) (*RuleSet, bool) {
	rs, ok := c.sets[name]
	return rs, ok
}

func (c *Catalog) mustSet(name string) *RuleSet {
	rs, ok := c.sets[name]
	if !ok {
		return &RuleSet{name: name}
	}
	return rs
}

// SQLInjection returns the SQL-injection rules.
func (c *Catalog) SQLInjection() *RuleSet { return c.mustSet(RuleSetSQLInjection) }

// PromptInjection returns the prompt-injection rules.
func (c *Catalog) PromptInjection() *RuleSet { return c.mustSet(RuleSetPromptInjection) }

// PII returns the typed PII rules in redaction order.
func (c *Catalog) PII() *RuleSet { return c.mustSet(RuleSetPII) }

// SystemLeak returns the rules detecting an assistant describing its own instructions.
func (c *Catalog) SystemLeak() *RuleSet { return c.mustSet(RuleSetSystemLeak) }

// Currency returns the currency-amount rules.
func (c *Catalog) Currency() *RuleSet { return c.mustSet(RuleSetCurrency) }

// FinancialIntent returns the pricing-intent vocabulary.
func (c *Catalog) FinancialIntent() *RuleSet { return c.mustSet(RuleSetFinancialIntent) }

// Compile builds a Catalog from def. Groups left empty in def fall back to the built-in
// rules, so override files only need to list what they change.
func Compile(def CatalogDef) (*Catalog, error) {
	base := DefaultCatalogDef()
	if def.Version == "" {
		return nil, fmt.Errorf("catalog version is required")
	}
	groups := []struct {
		name     string
		override []RuleDef
		fallback []RuleDef
	}{
		{RuleSetSQLInjection, def.SQLInjection, base.SQLInjection},
		{RuleSetPromptInjection, def.PromptInjection, base.PromptInjection},
		{RuleSetPII, def.PII, base.PII},
		{RuleSetSystemLeak, def.SystemLeak, base.SystemLeak},
		{RuleSetCurrency, def.Currency, base.Currency},
		{RuleSetFinancialIntent, def.FinancialIntent, base.FinancialIntent},
	}

	c := &Catalog{version: def.Version, sets: make(map[string]*RuleSet, len(groups))}
	for _, g := range groups {
		defs := g.override
		if len(defs) == 0 {
			defs = g.fallback
		}
		rs, err := NewRuleSet(g.name, defs)
		if err != nil {
			return nil, err
		}
		c.sets[g.name] = rs
	}
	if err := validatePII(c.sets[RuleSetPII]); err != nil {
		return nil, err
	}
	return c, nil
}

// validatePII requires exactly one rule per PII category so the redactor can apply them in
// category order.
func validatePII(rs *RuleSet) error {
	seen := make(map[models.PIICategory]bool, len(models.PIICategories))
	for _, r := range rs.rules {
		cat, err := models.ParsePIICategory(r.category)
		if err != nil {
			return fmt.Errorf("pii rule %s: %w", r.id, err)
		}
		if seen[cat] {
			return fmt.Errorf("pii rule %s: category %s defined twice", r.id, cat)
		}
		seen[cat] = true
	}
	for _, cat := range models.PIICategories {
		if !seen[cat] {
			return fmt.Errorf("pii rules: no rule for category %s", cat)
		}
	}
	return nil
}

// DefaultCatalog returns the built-in catalog. It panics only if a built-in rule fails to
// compile, which the package tests rule out.
func DefaultCatalog() *Catalog {
	c, err := Compile(DefaultCatalogDef())
	if err != nil {
		panic(fmt.Sprintf("pattern: built-in catalog invalid: %v", err))
	}
	return c
}

// DefaultCatalogDef returns the built-in rule definitions. All patterns are compiled
// case-insensitive and multi-line.
func DefaultCatalogDef() CatalogDef {
	return CatalogDef{
		Version: DefaultCatalogVersion,
		SQLInjection: []RuleDef{
			{ID: "sql_keyword", Category: "keyword", Pattern: `\b(select|insert|update|delete|drop|create|alter|exec|execute)\b`},
			{ID: "sql_comment", Category: "comment", Pattern: `(--|#|/\*|\*/)`},
			{ID: "sql_tautology", Category: "tautology", Pattern: `\bor\b.*=`},
			{ID: "sql_union_select", Category: "union", Pattern: `\bunion\b.*\bselect\b`},
			{ID: "sql_stacked_destructive", Category: "stacked", Pattern: `;.*\b(drop|delete|truncate)\b`},
			{ID: "sql_xp_cmdshell", Category: "procedure", Pattern: `\bxp_cmdshell\b`},
			{ID: "sql_quote_comment", Category: "comment", Pattern: `'.*--`},
		},
		PromptInjection: []RuleDef{
			{ID: "pi_ignore_instructions", Category: "instruction_override", Pattern: `\bignore\s+(all\s+)?(the\s+)?(previous|all|prior|above)\s+(instructions?|prompts?|rules?)\b`},
			{ID: "pi_disregard_instructions", Category: "instruction_override", Pattern: `\bdisregard\s+(all\s+)?(the\s+)?(previous|all|prior|above)\s+(instructions?|prompts?|rules?)\b`},
			{ID: "pi_forget_context", Category: "instruction_override", Pattern: `\bforget\s+(everything|all|what)\s+(you|i)\s+(told|said|know)\b`},
			{ID: "pi_role_override", Category: "role_override", Pattern: `\b(you\s+are\s+now|act\s+as|pretend\s+to\s+be|simulate)\s+(an?\s+)?(admin|administrator|developer|system|root|god\s+mode)\b`},
			{ID: "pi_system_marker", Category: "role_override", Pattern: `\bsystem\s*:\s*(you\s+are|new\s+role|override)`},
			{ID: "pi_new_instructions", Category: "instruction_override", Pattern: `\b(new|updated|different)\s+instructions?\s*:`},
			{ID: "pi_newline_escalation", Category: "role_override", Pattern: `(\\n|\n){3,}.*\b(admin|system|developer)\b`},
			{ID: "pi_reveal_prompt", Category: "prompt_extraction", Pattern: `\b(show|reveal|display|print|repeat)\s+(me\s+)?(your|the)\s+(system\s+)?(prompt|instructions?|rules?)\b`},
			{ID: "pi_query_prompt", Category: "prompt_extraction", Pattern: `\bwhat\s+(is|are)\s+your\s+(original\s+)?(instructions?|prompt|rules?)\b`},
			{ID: "pi_encoding_vocabulary", Category: "obfuscation", Pattern: `\b(base64|rot13|hex|decode|unescape)\b`},
			{ID: "pi_jailbreak_vocabulary", Category: "jailbreak", Pattern: `(\b(?-i:DAN)\b|\bdeveloper\s+mode\b|\bjailbreak\b|\bunrestricted\s+mode\b)`},
			{ID: "pi_safety_bypass", Category: "jailbreak", Pattern: `\b(ignore|bypass|disable)\s+(your\s+)?(safety|ethical|content)\s+(guidelines|policies|filters|rules)\b`},
			{ID: "pi_embedded_sql_query", Category: "embedded_sql", Pattern: `\b(select|insert|update|delete|drop)\s+.*\s+from\b`},
			{ID: "pi_embedded_sql_ddl", Category: "embedded_sql", Pattern: `\b(drop|truncate|alter)\s+(table|database|schema)\b`},
			{ID: "pi_command_execution", Category: "command_execution", Pattern: `\b(curl|wget|nc|netcat|bash|sh|cmd\.exe|powershell)\b`},
		},
		PII: []RuleDef{
			{ID: "pii_payment_card", Category: "payment_card", Pattern: `\b(?:\d[ -]?){12,18}\d\b`},
			{ID: "pii_bank_account", Category: "bank_account", Pattern: `\b\d{22}\b`},
			{ID: "pii_tax_id", Category: "tax_id", Pattern: `\b\d{2}[ -]?\d{8}[ -]?\d\b`},
			{ID: "pii_national_id", Category: "national_id", Pattern: `\b\d{7,8}\b`},
			{ID: "pii_passport", Category: "passport", Pattern: `\b[a-z]{2,3}\d{6,9}\b`},
			{ID: "pii_email", Category: "email", Pattern: `\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`},
			{ID: "pii_phone", Category: "phone", Pattern: `(?:\+\d{1,3}[ -]?|\b)(?:\(?\d{2,4}\)?[ -]?)?\d{4}[ -]?\d{4}\b`},
		},
		SystemLeak: []RuleDef{
			{ID: "leak_my_prompt", Category: "self_description", Pattern: `\bmy\s+(system\s+)?prompt\b`},
			{ID: "leak_instructions_are", Category: "self_description", Pattern: `\binstructions?\s+(are|were)\b`},
			{ID: "leak_programmed_to", Category: "self_description", Pattern: `\bi\s+(am|was)\s+(programmed|designed|instructed)\s+to\b`},
			{ID: "leak_mis_instrucciones", Category: "self_description", Pattern: `\bmis\s+instrucciones\b`},
			{ID: "leak_fui_programado", Category: "self_description", Pattern: `\bfui\s+(programad[oa]|diseñad[oa]|instruid[oa])\s+para\b`},
		},
		Currency: []RuleDef{
			{ID: "cur_symbol", Category: "symbol", Pattern: `(?:\bU\$S|\bUS\$|\bAR\$|\bR\$|\$)\s*\d+(?:[.,]\d+)*`},
			{ID: "cur_iso_code", Category: "iso_code", Pattern: `\b(?:ARS|USD|EUR|BRL|CLP|UYU)\s*\$?\s*\d+(?:[.,]\d+)*`},
			{ID: "cur_word", Category: "currency_word", Pattern: `\b\d+(?:[.,]\d+)*\s*(?:pesos|d[oó]lares|dollars|euros|reales)\b`},
		},
		FinancialIntent: []RuleDef{
			{ID: "fi_pricing_terms_es", Category: "pricing", Pattern: `\b(precios?|costos?|cuestan?|valen?|tarifas?|cotizaci[oó]n|cotizar|presupuesto|monto|total)\b`},
			{ID: "fi_how_much_es", Category: "pricing", Pattern: `\bcu[aá]nto\s+(sale|salen|cuesta|cuestan|vale|valen)\b`},
			{ID: "fi_pricing_terms_en", Category: "pricing", Pattern: `\b(prices?|costs?|quotes?|budget|total|how\s+much)\b`},
		},
	}
}

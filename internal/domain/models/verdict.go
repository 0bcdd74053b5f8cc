package models

// VerdictMetadata carries diagnostics about an input validation run. It never contains the
// raw text or the matched fragments.
type VerdictMetadata struct {
	OriginalLength  int      `json:"original_length"`
	SanitizedLength int      `json:"sanitized_length"`
	MatchedRuleIDs  []string `json:"matched_rule_ids"`
	SQLRuleIDs      []string `json:"sql_rule_ids,omitempty"`
	CatalogVersion  string   `json:"catalog_version"`
}

// GuardrailVerdict is the consolidated result of validating one inbound message.
type GuardrailVerdict struct {
	IsSafe        bool            `json:"is_safe"`
	ThreatLevel   ThreatLevel     `json:"threat_level"`
	Threats       []string        `json:"threats"`
	SanitizedText string          `json:"sanitized_text"`
	PIIDetected   []PIICategory   `json:"pii_detected"`
	Metadata      VerdictMetadata `json:"metadata"`
}

// OutputVerdict is the result of validating generated text before release.
type OutputVerdict struct {
	Accepted  bool     `json:"accepted"`
	FinalText string   `json:"final_text"`
	Warnings  []string `json:"warnings"`
}

// HasWarning reports whether w was raised.
func (v OutputVerdict) HasWarning(w string) bool {
	for _, x := range v.Warnings {
		if x == w {
			return true
		}
	}
	return false
}

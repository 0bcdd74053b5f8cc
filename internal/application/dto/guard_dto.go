package dto

import "github.com/turtacn/shieldgate/internal/domain/models"

// ValidateInputRequest is the body of POST /api/v1/guard/input.
type ValidateInputRequest struct {
	Text string `json:"text" binding:"required" validate:"required"`
}

// ValidateOutputRequest is the body of POST /api/v1/guard/output. Query is the customer
// message the text answers; when it asks about prices the verified record is looked up for
// the calling tenant. Figures are never accepted from the caller.
type ValidateOutputRequest struct {
	Text  string `json:"text" binding:"required" validate:"required"`
	Query string `json:"query,omitempty"`
}

// InputVerdictResponse reports an input validation result without rule text.
type InputVerdictResponse struct {
	IsSafe        bool     `json:"is_safe"`
	ThreatLevel   string   `json:"threat_level"`
	Threats       []string `json:"threats"`
	SanitizedText string   `json:"sanitized_text"`
	PIIDetected   []string `json:"pii_detected"`
}

// NewInputVerdictResponse converts a verdict for callers.
func NewInputVerdictResponse(v models.GuardrailVerdict) *InputVerdictResponse {
	pii := make([]string, 0, len(v.PIIDetected))
	for _, c := range v.PIIDetected {
		pii = append(pii, c.String())
	}
	threats := v.Threats
	if threats == nil {
		threats = []string{}
	}
	return &InputVerdictResponse{
		IsSafe:        v.IsSafe,
		ThreatLevel:   v.ThreatLevel.String(),
		Threats:       threats,
		SanitizedText: v.SanitizedText,
		PIIDetected:   pii,
	}
}

// OutputVerdictResponse reports an output validation result.
type OutputVerdictResponse struct {
	Accepted  bool     `json:"accepted"`
	FinalText string   `json:"final_text"`
	Warnings  []string `json:"warnings"`
	Grounded  bool     `json:"grounded"`
}

package dto

// ChatRequest is one customer message sent to the assistant.
type ChatRequest struct {
	Message string `json:"message" binding:"required" validate:"required"`
}

// ChatResponse is the assistant reply after every guardrail has run.
type ChatResponse struct {
	Response    string   `json:"response"`
	Blocked     bool     `json:"blocked"`
	ThreatLevel string   `json:"threat_level"`
	Warnings    []string `json:"warnings"`
	Grounded    bool     `json:"grounded"`
	Degraded    bool     `json:"degraded,omitempty"`
}

package models

import "fmt"

// ThreatLevel is the closed, ordered set of threat levels. The zero value is SAFE.
type ThreatLevel int

const (
	ThreatSafe ThreatLevel = iota
	ThreatLow
	ThreatMedium
	ThreatHigh
	ThreatCritical
)

// ThreatLevels lists every level in ascending order.
var ThreatLevels = []ThreatLevel{ThreatSafe, ThreatLow, ThreatMedium, ThreatHigh, ThreatCritical}

// String returns the wire name of the level.
func (l ThreatLevel) String() string {
	switch l {
	case ThreatSafe:
		return "SAFE"
	case ThreatLow:
		return "LOW"
	case ThreatMedium:
		return "MEDIUM"
	case ThreatHigh:
		return "HIGH"
	case ThreatCritical:
		return "CRITICAL"
	}
	return fmt.Sprintf("ThreatLevel(%d)", int(l))
}

// ParseThreatLevel is the inverse of String.
func ParseThreatLevel(s string) (ThreatLevel, error) {
	for _, l := range ThreatLevels {
		if l.String() == s {
			return l, nil
		}
	}
	return ThreatSafe, fmt.Errorf("unknown threat level %q", s)
}

// MarshalText implements encoding.TextMarshaler so levels serialize by name.
func (l ThreatLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *ThreatLevel) UnmarshalText(b []byte) error {
	v, err := ParseThreatLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// IsMalicious reports whether the level is MEDIUM or above.
func (l ThreatLevel) IsMalicious() bool {
	return l >= ThreatMedium
}

// Blocks reports whether a message at this level must not reach the generation service.
func (l ThreatLevel) Blocks() bool {
	return l >= ThreatHigh
}

// AuditSeverity maps a level to the severity recorded on security events.
func (l ThreatLevel) AuditSeverity() string {
	switch l {
	case ThreatSafe, ThreatLow:
		return "info"
	case ThreatMedium:
		return "warning"
	case ThreatHigh, ThreatCritical:
		return "critical"
	}
	return "critical"
}

// MaxThreatLevel returns the higher of two levels.
func MaxThreatLevel(a, b ThreatLevel) ThreatLevel {
	if a > b {
		return a
	}
	return b
}

// ThreatAssessment is the classifier's verdict for one message.
type ThreatAssessment struct {
	IsMalicious    bool        `json:"is_malicious"`
	Level          ThreatLevel `json:"level"`
	MatchedRuleIDs []string    `json:"matched_rule_ids"`
}

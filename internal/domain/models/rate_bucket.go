package models

import "time"

// RateBucket is the persisted token-bucket state of one identifier.
type RateBucket struct {
	Tokens     float64
	LastRefill time.Time
}

// RateDecision is the outcome of one admission check.
type RateDecision struct {
	Allowed    bool
	Remaining  int
	Limit      int
	RetryAfter time.Duration
}

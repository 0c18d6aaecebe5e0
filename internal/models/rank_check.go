package models

import "time"

// Rank check outcome constants, used as metric labels.
const (
	CheckOutcomeFound       = "found"
	CheckOutcomePromoted    = "promoted"
	CheckOutcomeNotFound    = "not_found"
	CheckOutcomeUnavailable = "results_unavailable"
	CheckOutcomeError       = "error"
)

// RankCheckOutcome is a running count of rank checks by outcome.
type RankCheckOutcome struct {
	Outcome    string
	Count      int64
	LastSeenAt time.Time
}

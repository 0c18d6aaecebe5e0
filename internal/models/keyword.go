package models

import (
	"time"

	"github.com/google/uuid"
)

// RankingHistoryEntry is one recorded rank check. Position is free-form:
// a numeric rank, "Ad: N", "Not found in top 100" or "No results found".
type RankingHistoryEntry struct {
	Position  string    `json:"position"`
	CheckedAt time.Time `json:"checkedAt"`
}

// KeywordRankState is the rank-tracking part of a keyword record.
// History is ordered oldest first.
type KeywordRankState struct {
	CurrentRank string                `json:"rank"`
	LastChecked *time.Time            `json:"lastChecked"`
	History     []RankingHistoryEntry `json:"history"`
}

// Keyword is a search term tracked for a domain. Its own JSON keys are
// snake_case; the rank state is nested under "ranking" in the camelCase
// shape of the check and history responses.
type Keyword struct {
	ID        uuid.UUID `json:"id"`
	DomainID  uuid.UUID `json:"domain_id"`
	Keyword   string    `json:"keyword"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	KeywordRankState `json:"ranking"`

	// Populated by joins
	DomainURL string    `json:"domain_url,omitempty"`
	OwnerID   uuid.UUID `json:"-"`
}

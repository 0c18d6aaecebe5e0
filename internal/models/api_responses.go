package models

import (
	"time"

	"github.com/google/uuid"
)

// RankCheckResult is returned after a keyword has been checked.
type RankCheckResult struct {
	KeywordID   uuid.UUID             `json:"keywordId"`
	Keyword     string                `json:"keyword"`
	Rank        string                `json:"rank"`
	LastChecked time.Time             `json:"lastChecked"`
	History     []RankingHistoryEntry `json:"history"`
	Trend       string                `json:"trend"`
}

// BatchItemResult is one keyword's result within a batch check.
// Exactly one of Result and Error is set.
type BatchItemResult struct {
	KeywordID uuid.UUID        `json:"keywordId"`
	Keyword   string           `json:"keyword"`
	Result    *RankCheckResult `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// BatchCheckResult aggregates a batch check; HasErrors is true when any item failed.
type BatchCheckResult struct {
	DomainID  uuid.UUID         `json:"domainId"`
	Results   []BatchItemResult `json:"results"`
	HasErrors bool              `json:"hasErrors"`
}

// KeywordHistoryResponse is the stored history of a keyword plus its trend.
type KeywordHistoryResponse struct {
	KeywordID   uuid.UUID             `json:"keywordId"`
	Keyword     string                `json:"keyword"`
	Rank        string                `json:"rank"`
	LastChecked *time.Time            `json:"lastChecked"`
	History     []RankingHistoryEntry `json:"history"`
	Trend       string                `json:"trend"`
}

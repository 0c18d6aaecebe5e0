package rank

import (
	"strconv"
	"strings"
	"time"

	"rankwatch/internal/models"
)

// HistoryCapacity is the number of checks kept per keyword.
const HistoryCapacity = 30

// Trend compares a keyword's two most recent positions.
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendSame    Trend = "same"
	TrendUnknown Trend = "unknown"
)

// Append records outcome as the newest history entry and returns the new
// state. Oldest entries are evicted so at most HistoryCapacity remain.
// The input state is not modified.
func Append(state models.KeywordRankState, outcome Outcome, checkedAt time.Time) models.KeywordRankState {
	entry := models.RankingHistoryEntry{
		Position:  outcome.String(),
		CheckedAt: checkedAt,
	}

	history := make([]models.RankingHistoryEntry, 0, len(state.History)+1)
	history = append(history, state.History...)
	history = append(history, entry)
	if len(history) > HistoryCapacity {
		history = history[len(history)-HistoryCapacity:]
	}

	return models.KeywordRankState{
		CurrentRank: entry.Position,
		LastChecked: &entry.CheckedAt,
		History:     history,
	}
}

// TrendOf compares the last two entries of history. A found position beats
// "Not found in top 100"; otherwise a lower number is a better rank.
func TrendOf(history []models.RankingHistoryEntry) Trend {
	if len(history) < 2 {
		return TrendUnknown
	}
	prev := strings.TrimSpace(history[len(history)-2].Position)
	curr := strings.TrimSpace(history[len(history)-1].Position)

	prevNum, prevErr := strconv.Atoi(prev)
	currNum, currErr := strconv.Atoi(curr)

	switch {
	case prev == NotFoundRank && curr == NotFoundRank:
		return TrendUnknown
	case prev == NotFoundRank:
		if currErr == nil {
			return TrendUp
		}
		return TrendUnknown
	case curr == NotFoundRank:
		if prevErr == nil {
			return TrendDown
		}
		return TrendUnknown
	case prevErr != nil || currErr != nil:
		return TrendUnknown
	case currNum < prevNum:
		return TrendUp
	case currNum > prevNum:
		return TrendDown
	default:
		return TrendSame
	}
}

package rank

import (
	"errors"
	"fmt"
	"strconv"
)

// Canonical rank strings stored in keyword history.
const (
	NotFoundRank    = "Not found in top 100"
	NoResultsRank   = "No results found"
	PromotedPrefix  = "Ad: "
	errorRankPrefix = "Error: "
)

// OutcomeKind classifies the result of one resolution.
type OutcomeKind string

const (
	OutcomeFound       OutcomeKind = "found"
	OutcomeNotFound    OutcomeKind = "not_found"
	OutcomeUnavailable OutcomeKind = "results_unavailable"
	OutcomeError       OutcomeKind = "error"
)

// Source tells which listing type a Found outcome came from.
type Source string

const (
	SourceOrganic  Source = "organic"
	SourcePromoted Source = "promoted"
)

// Outcome is the canonical result of one rank resolution.
// Position and Source are set only for OutcomeFound, Message only for OutcomeError.
type Outcome struct {
	Kind     OutcomeKind `json:"kind"`
	Position int         `json:"position,omitempty"`
	Source   Source      `json:"source,omitempty"`
	Message  string      `json:"message,omitempty"`
}

// Found returns a Found outcome at the given 1-based position.
func Found(position int, source Source) Outcome {
	return Outcome{Kind: OutcomeFound, Position: position, Source: source}
}

// NotFound returns the outcome for a domain absent from the fetched results.
func NotFound() Outcome { return Outcome{Kind: OutcomeNotFound} }

// Unavailable returns the outcome for a backend that returned nothing usable.
func Unavailable() Outcome { return Outcome{Kind: OutcomeUnavailable} }

// Failed returns an error outcome carrying msg.
func Failed(msg string) Outcome { return Outcome{Kind: OutcomeError, Message: msg} }

// IsError reports whether the outcome represents a failed resolution.
func (o Outcome) IsError() bool { return o.Kind == OutcomeError }

// String renders the outcome in its canonical history form:
// "5", "Ad: 1", "Not found in top 100" or "No results found".
func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeFound:
		if o.Source == SourcePromoted {
			return PromotedPrefix + strconv.Itoa(o.Position)
		}
		return strconv.Itoa(o.Position)
	case OutcomeNotFound:
		return NotFoundRank
	case OutcomeUnavailable:
		return NoResultsRank
	default:
		return errorRankPrefix + o.Message
	}
}

var (
	// ErrConfigMissing is returned when the search API key or engine id is not
	// configured. It is fatal for the call and must not be retried.
	ErrConfigMissing = errors.New("configuration missing")

	// ErrInvalidInput is returned for an empty target domain or keyword.
	ErrInvalidInput = errors.New("invalid input")
)

// BackendError is a transport or backend failure on one page fetch.
// It aborts the pagination of the keyword being checked.
type BackendError struct {
	StatusCode int // 0 for transport failures
	Offset     int
	Message    string
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("search backend (start=%d, status %d): %s", e.Offset, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("search backend (start=%d): %s", e.Offset, e.Message)
}

func (e *BackendError) Unwrap() error { return e.Err }

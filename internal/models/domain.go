package models

import (
	"time"

	"github.com/google/uuid"
)

// Domain is a website whose search rankings are tracked.
// URL is stored normalized (no scheme, no leading "www.", lower-cased).
type Domain struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	KeywordCount int `json:"keyword_count"`
}

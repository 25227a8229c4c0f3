package model

import (
	"time"

	"github.com/google/uuid"
)

// APIKey is a long-lived credential owned by exactly one account. Only the
// SHA-256 hash of the secret is stored; the plaintext is returned once at
// creation and never again.
type APIKey struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"-"`
	Name      string    `json:"name"`
	KeyHash   string    `json:"-"`
	KeyPrefix string    `json:"key_prefix"`
	CreatedAt time.Time `json:"created_at"`
}

package models

import (
	"time"
)

// User is the account row in Postgres. Nutrition data lives in the
// profile document keyed by the same id.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	IsActive  bool      `json:"is_active"`

	// Internal only - never returned in JSON
	PasswordHash string `json:"-"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account. The password hash never leaves the
// server; the json tag keeps it out of every response body.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Content      string    `json:"content"`
	Cover        string    `json:"cover"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

package models

import "github.com/google/uuid"

// LoginRequest represents a user login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is what the front end stores after a successful login.
// The session token itself travels in the cookie, not in the body.
type LoginResponse struct {
	Username string    `json:"username"`
	ID       uuid.UUID `json:"id"`
	Cover    string    `json:"cover"`
	Content  string    `json:"content"`
}

package models

import "time"

// Token is a live bearer token. A row exists only while the token may still
// be accepted; it is never updated in place.
type Token struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	Type      string    `json:"type"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

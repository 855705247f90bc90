// Package model defines domain entities for the application.
package model

import "time"

// User represents a ledger account for a single authenticated user.
// The identity provider owns everything else about the user; this service
// only tracks the credit balance attached to the provider-assigned ID.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Credits   int64     `json:"credits"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthContext carries the verified caller identity through a request.
type AuthContext struct {
	UserID string
	Email  string
}

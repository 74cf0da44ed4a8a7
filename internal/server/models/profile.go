// Package models defines server-side data models persisted in the database.
package models

import "time"

// Profile is a registered account.
type Profile struct {
	ID           string
	Email        string
	DisplayName  *string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
}

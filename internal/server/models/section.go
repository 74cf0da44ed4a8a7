package models

import "time"

// Section is a user-owned piece of text that can be rendered to speech.
type Section struct {
	ID        string
	UserID    string
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

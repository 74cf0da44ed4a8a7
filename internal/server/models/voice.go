package models

// Voice is an entry of the static synthesis voice catalog.
type Voice struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Gender  string `json:"gender"`
	Premium bool   `json:"premium"`
}

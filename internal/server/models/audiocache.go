package models

import "time"

// AudioCacheEntry records a synthesized rendering of a section.
//
// ContentHash is the fingerprint of the exact text that was spoken, not of the
// section's current content, so entries stay addressable after edits.
// AudioURL holds an opaque audio reference: a data URI or an object store ref.
type AudioCacheEntry struct {
	ID          string
	SectionID   string
	VoiceID     string
	ContentHash string
	AudioURL    string
	CreatedAt   time.Time
}

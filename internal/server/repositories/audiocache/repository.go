// Package audiocache persists synthesized audio references keyed by
// (section, voice, content fingerprint).
package audiocache

import (
	"context"

	"github.com/readback/readback/internal/server/models"
)

type Repository interface {
	// Find returns the newest entry matching all three keys exactly, or
	// common.ErrorNotFound.
	Find(ctx context.Context, sectionID, voiceID, contentHash string) (*models.AudioCacheEntry, error)
	// Insert appends an entry. Duplicates of the same key are allowed.
	Insert(ctx context.Context, e *models.AudioCacheEntry) (*models.AudioCacheEntry, error)
	Count(ctx context.Context) (int, error)
}

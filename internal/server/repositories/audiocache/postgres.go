package audiocache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/readback/readback/internal/common"
	"github.com/readback/readback/internal/dbx"
	"github.com/readback/readback/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Find(ctx context.Context, sectionID, voiceID, contentHash string) (*models.AudioCacheEntry, error) {
	query :=
		`SELECT id, section_id, voice_id, content_hash, audio_url, created_at
		 FROM audio_cache
		 WHERE section_id = $1 AND voice_id = $2 AND content_hash = $3
		 ORDER BY created_at DESC
		 LIMIT 1`

	e := &models.AudioCacheEntry{}
	err := r.db.QueryRowContext(ctx, query, sectionID, voiceID, contentHash).
		Scan(&e.ID, &e.SectionID, &e.VoiceID, &e.ContentHash, &e.AudioURL, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, e *models.AudioCacheEntry) (*models.AudioCacheEntry, error) {
	query :=
		`INSERT INTO audio_cache (section_id, voice_id, content_hash, audio_url)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, e.SectionID, e.VoiceID, e.ContentHash, e.AudioURL).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audio_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

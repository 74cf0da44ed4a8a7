package sections

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

const selectSection = `SELECT id, user_id, title, content, created_at, updated_at FROM sections`

type scanner interface {
	Scan(dest ...any) error
}

func scanSection(s scanner) (*models.Section, error) {
	sec := &models.Section{}
	err := s.Scan(&sec.ID, &sec.UserID, &sec.Title, &sec.Content, &sec.CreatedAt, &sec.UpdatedAt)
	return sec, err
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.Section) (*models.Section, error) {
	query :=
		`INSERT INTO sections (user_id, title, content)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, s.UserID, s.Title, s.Content).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) Update(ctx context.Context, s *models.Section) (*models.Section, error) {
	query :=
		`UPDATE sections SET title = $1, content = $2, updated_at = now()
		 WHERE id = $3 AND user_id = $4
		 RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, s.Title, s.Content, s.ID, s.UserID).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sections WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, userID, id string) (*models.Section, error) {
	sec, err := scanSection(r.db.QueryRowContext(ctx, selectSection+` WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return sec, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Section, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Section
	for rows.Next() {
		sec, err := scanSection(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Section, error) {
	return r.list(ctx, selectSection+` WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
}

func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]*models.Section, error) {
	return r.list(ctx, selectSection+` ORDER BY created_at DESC LIMIT $1`, limit)
}

func (r *PostgresRepository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM sections WHERE user_id = $1`, userID)
}

func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM sections`)
}

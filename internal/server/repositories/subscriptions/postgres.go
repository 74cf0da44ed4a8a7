package subscriptions

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

const columns = `id, user_id, status, plan_type, started_at, expires_at, apple_transaction_id, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSubscription(s scanner) (*models.Subscription, error) {
	sub := &models.Subscription{}
	var (
		expires sql.NullTime
		txID    sql.NullString
	)
	err := s.Scan(&sub.ID, &sub.UserID, &sub.Status, &sub.PlanType, &sub.StartedAt,
		&expires, &txID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if expires.Valid {
		sub.ExpiresAt = &expires.Time
	}
	if txID.Valid {
		sub.AppleTransactionID = &txID.String
	}
	return sub, nil
}

func (r *PostgresRepository) one(ctx context.Context, query string, args ...any) (*models.Subscription, error) {
	sub, err := scanSubscription(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return sub, nil
}

func (r *PostgresRepository) CreateFree(ctx context.Context, userID string) (*models.Subscription, error) {
	query :=
		`INSERT INTO subscriptions (user_id, status, plan_type)
		 VALUES ($1, 'active', 'free')
		 RETURNING ` + columns
	return r.one(ctx, query, userID)
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	return r.one(ctx, `SELECT `+columns+` FROM subscriptions WHERE user_id = $1`, userID)
}

func (r *PostgresRepository) UpgradeToPremium(ctx context.Context, userID string, transactionID *string) (*models.Subscription, error) {
	query :=
		`INSERT INTO subscriptions (user_id, status, plan_type, apple_transaction_id)
		 VALUES ($1, 'active', 'premium', $2)
		 ON CONFLICT (user_id) DO UPDATE
		 SET status = 'active', plan_type = 'premium', started_at = now(), expires_at = NULL,
		     apple_transaction_id = EXCLUDED.apple_transaction_id, updated_at = now()
		 RETURNING ` + columns
	return r.one(ctx, query, userID, transactionID)
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM subscriptions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) CountPremiumActive(ctx context.Context) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM subscriptions WHERE plan_type = 'premium' AND status = 'active'`
	if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

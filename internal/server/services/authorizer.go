package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/readback/readback/internal/common"
	"github.com/readback/readback/internal/server/models"
	"github.com/readback/readback/internal/server/repositories/repomanager"
)

// AuthorizationProvider answers the capability questions the policy needs:
// is the caller an admin, and which plan are they on.
type AuthorizationProvider interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
	// GetSubscription returns nil, nil when the user has no subscription row.
	GetSubscription(ctx context.Context, userID string) (*models.Subscription, error)
}

// StoreAuthorizer answers from the database.
type StoreAuthorizer struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewStoreAuthorizer(db *sql.DB, m repomanager.RepositoryManager) *StoreAuthorizer {
	return &StoreAuthorizer{db: db, repomanager: m}
}

func (a *StoreAuthorizer) IsAdmin(ctx context.Context, userID string) (bool, error) {
	return a.repomanager.Profiles(a.db).IsAdmin(ctx, userID)
}

func (a *StoreAuthorizer) GetSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	sub, err := a.repomanager.Subscriptions(a.db).GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

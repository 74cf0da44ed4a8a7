// Package subscriptions persists the plan each profile is on.
package subscriptions

import (
	"context"

	"github.com/readback/readback/internal/server/models"
)

type Repository interface {
	// CreateFree starts an active free plan for userID.
	CreateFree(ctx context.Context, userID string) (*models.Subscription, error)
	// GetByUserID returns common.ErrorNotFound when the user has no row.
	GetByUserID(ctx context.Context, userID string) (*models.Subscription, error)
	// UpgradeToPremium switches userID to an active premium plan, creating the
	// row if needed.
	UpgradeToPremium(ctx context.Context, userID string, transactionID *string) (*models.Subscription, error)
	List(ctx context.Context) ([]*models.Subscription, error)
	// CountPremiumActive counts premium plans whose status is active.
	CountPremiumActive(ctx context.Context) (int, error)
}

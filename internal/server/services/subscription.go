package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/readback/readback/internal/common"
	"github.com/readback/readback/internal/logging"
	"github.com/readback/readback/internal/server/models"
	"github.com/readback/readback/internal/server/policy"
	"github.com/readback/readback/internal/server/repositories/repomanager"
)

// ReceiptVerifier confirms a purchase with the store before the plan changes.
// It returns the store's transaction id when one is known.
type ReceiptVerifier interface {
	Verify(ctx context.Context, userID, receipt string) (transactionID *string, err error)
}

// ApproveAllVerifier accepts every receipt. Real deployments must replace it
// with a verifier backed by the store's receipt validation service.
type ApproveAllVerifier struct{}

func (ApproveAllVerifier) Verify(context.Context, string, string) (*string, error) {
	return nil, nil
}

// SubscriptionService reads and upgrades plans.
type SubscriptionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	authz       AuthorizationProvider
	verifier    ReceiptVerifier
	log         logging.Logger
}

func NewSubscriptionService(db *sql.DB, m repomanager.RepositoryManager, authz AuthorizationProvider,
	verifier ReceiptVerifier, log logging.Logger) *SubscriptionService {
	return &SubscriptionService{db: db, repomanager: m, authz: authz, verifier: verifier, log: log.With("module", "subscriptions")}
}

// Get returns the caller's subscription. A user without a row is on an
// active free plan.
func (s *SubscriptionService) Get(ctx context.Context, userID string) (*models.Subscription, error) {
	sub, err := s.authz.GetSubscription(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error reading subscription: %w", err)
	}
	if sub == nil {
		sub = &models.Subscription{UserID: userID, Status: models.StatusActive, PlanType: models.PlanFree}
	}
	return sub, nil
}

// Upgrade verifies receipt and moves the caller to an active premium plan.
func (s *SubscriptionService) Upgrade(ctx context.Context, userID, receipt string) (*models.Subscription, error) {
	txID, err := s.verifier.Verify(ctx, userID, receipt)
	if err != nil {
		return nil, fmt.Errorf("%w: receipt rejected: %v", common.ErrForbidden, err)
	}

	sub, err := s.repomanager.Subscriptions(s.db).UpgradeToPremium(ctx, userID, txID)
	if err != nil {
		return nil, fmt.Errorf("error upgrading subscription: %w", err)
	}
	s.log.Info(ctx, "subscription upgraded", "user_id", userID)
	return sub, nil
}

// Voices returns the voices the caller may use and whether they are premium.
func (s *SubscriptionService) Voices(ctx context.Context, userID string) ([]models.Voice, bool, error) {
	sub, err := s.authz.GetSubscription(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("error reading subscription: %w", err)
	}
	return policy.AvailableVoices(sub), policy.IsPremium(sub), nil
}

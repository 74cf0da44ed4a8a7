package models

import "time"

type PlanType string

const (
	PlanFree    PlanType = "free"
	PlanPremium PlanType = "premium"
)

type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusExpired   SubscriptionStatus = "expired"
)

// Subscription is the plan a profile is on. Its lifecycle belongs to billing;
// the server mostly reads it.
type Subscription struct {
	ID                 string
	UserID             string
	Status             SubscriptionStatus
	PlanType           PlanType
	StartedAt          time.Time
	ExpiresAt          *time.Time
	AppleTransactionID *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Package subscription tracks each merchant's billing state and resolves
// it to a plan ID for the limits layer. State is mutated only by billing
// webhooks and manual overrides; everything else reads.
package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a subscription.
type Status string

const (
	StatusActive    Status = "active"
	StatusTrialing  Status = "trialing"
	StatusPastDue   Status = "past_due"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Subscription is a merchant's link to a plan. One row per merchant;
// MerchantID is the primary key.
type Subscription struct {
	MerchantID         uuid.UUID
	PlanID             string
	Status             Status
	ProviderSubID      string // provider's subscription ID (empty for free plans)
	ProviderCustomerID string // provider's customer ID (cus_xxx)
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CancelledAt        *time.Time
}

// IsEntitled reports whether the subscription currently grants its plan.
// Past-due, cancelled, and expired subscriptions fall back to free-tier
// limits until billing recovers.
func (s *Subscription) IsEntitled() bool {
	return s.Status == StatusActive || s.Status == StatusTrialing
}

// IsCancelled reports whether the subscription was cancelled, including
// cancellations scheduled for the end of the current billing period.
func (s *Subscription) IsCancelled() bool {
	return s.Status == StatusCancelled || s.CancelledAt != nil
}

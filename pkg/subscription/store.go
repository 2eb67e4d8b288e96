package subscription

import (
	"context"

	"github.com/google/uuid"
)

// Store defines subscription persistence. Save upserts by MerchantID.
type Store interface {
	// Get retrieves a subscription by merchant ID.
	// Returns ErrSubscriptionNotFound if no subscription exists.
	Get(ctx context.Context, merchantID uuid.UUID) (*Subscription, error)

	// GetByProviderCustomerID retrieves a subscription by the billing
	// provider's customer ID, used when webhooks carry no merchant ID.
	GetByProviderCustomerID(ctx context.Context, customerID string) (*Subscription, error)

	// Save creates or updates a subscription.
	Save(ctx context.Context, sub *Subscription) error
}

package subscription

import "context"

// BillingProvider is the minimal surface the platform needs from a
// payment provider. The provider handles all payment complexity through
// hosted checkouts and customer portals.
type BillingProvider interface {
	// CreateCheckoutSession creates a hosted checkout for the given plan.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)

	// GetCustomerPortalURL returns a temporary link to the provider's
	// customer portal where merchants manage payment methods and plans.
	GetCustomerPortalURL(ctx context.Context, sub *Subscription) (string, error)

	// ParseWebhook validates the signature and normalizes the event.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error)
}

// CheckoutRequest contains data needed to create a checkout session.
type CheckoutRequest struct {
	PlanID     string // platform plan ID, mapped to the provider price
	MerchantID string
	Email      string // optional billing email prefill
	SuccessURL string
	CancelURL  string
}

// CheckoutSession represents a hosted checkout session.
type CheckoutSession struct {
	URL       string
	SessionID string
}

// EventType is the normalized billing event type.
type EventType string

const (
	EventSubscriptionCreated   EventType = "subscription_created"
	EventSubscriptionUpdated   EventType = "subscription_updated"
	EventSubscriptionCancelled EventType = "subscription_cancelled"

	EventPaymentSucceeded EventType = "payment_succeeded"
	EventPaymentFailed    EventType = "payment_failed"

	// EventIgnored marks provider events the platform does not act on.
	EventIgnored EventType = "ignored"
)

// WebhookEvent is a normalized webhook event from the billing provider.
type WebhookEvent struct {
	Type          EventType
	ProviderEvent string // original provider event name
	SubID         string // provider's subscription ID
	CustomerID    string // provider's customer ID
	MerchantID    string // platform merchant ID from metadata, may be empty
	PlanID        string // platform plan ID resolved from the price
	Status        Status
}

package subscription

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Service orchestrates checkout, portal access, and webhook-driven
// subscription state transitions.
type Service struct {
	store    Store
	provider BillingProvider
	log      *slog.Logger
}

// NewService creates a subscription service. Panics on nil dependencies
// to fail fast during initialization.
func NewService(store Store, provider BillingProvider, log *slog.Logger) *Service {
	if store == nil {
		panic("subscription: Store is required")
	}
	if provider == nil {
		panic("subscription: BillingProvider is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, provider: provider, log: log}
}

// CreateCheckoutSession starts a hosted checkout for the merchant.
func (s *Service) CreateCheckoutSession(ctx context.Context, merchantID uuid.UUID, planID, email, successURL, cancelURL string) (*CheckoutSession, error) {
	return s.provider.CreateCheckoutSession(ctx, CheckoutRequest{
		PlanID:     planID,
		MerchantID: merchantID.String(),
		Email:      email,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	})
}

// GetCustomerPortalURL returns the provider's customer portal link for
// the merchant's existing subscription.
func (s *Service) GetCustomerPortalURL(ctx context.Context, merchantID uuid.UUID) (string, error) {
	sub, err := s.store.Get(ctx, merchantID)
	if err != nil {
		return "", err
	}
	return s.provider.GetCustomerPortalURL(ctx, sub)
}

// HandleWebhook verifies and applies a billing provider event.
// Events the platform does not act on are acknowledged without changes.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.provider.ParseWebhook(ctx, payload, signature)
	if err != nil {
		return err
	}

	switch ev.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		return s.applySubscriptionState(ctx, ev)
	case EventSubscriptionCancelled:
		return s.cancelSubscription(ctx, ev)
	case EventPaymentFailed:
		return s.setStatusByCustomer(ctx, ev.CustomerID, StatusPastDue)
	case EventPaymentSucceeded:
		// Recover past-due subscriptions once the invoice settles.
		return s.recoverByCustomer(ctx, ev.CustomerID)
	case EventIgnored:
		s.log.DebugContext(ctx, "ignoring billing event", "provider_event", ev.ProviderEvent)
		return nil
	default:
		return nil
	}
}

func (s *Service) applySubscriptionState(ctx context.Context, ev *WebhookEvent) error {
	sub, err := s.resolveSubscription(ctx, ev)
	if err != nil {
		return err
	}

	if ev.PlanID != "" {
		sub.PlanID = ev.PlanID
	}
	sub.Status = ev.Status
	sub.ProviderSubID = ev.SubID
	if ev.CustomerID != "" {
		sub.ProviderCustomerID = ev.CustomerID
	}
	if ev.Status != StatusCancelled {
		sub.CancelledAt = nil
	}

	s.log.InfoContext(ctx, "subscription state updated",
		"merchant_id", sub.MerchantID, "plan_id", sub.PlanID, "status", sub.Status)
	return s.store.Save(ctx, sub)
}

func (s *Service) cancelSubscription(ctx context.Context, ev *WebhookEvent) error {
	sub, err := s.resolveSubscription(ctx, ev)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			// Nothing to cancel; the provider may replay old events.
			return nil
		}
		return err
	}

	now := time.Now().UTC()
	sub.Status = StatusCancelled
	sub.CancelledAt = &now

	s.log.InfoContext(ctx, "subscription cancelled", "merchant_id", sub.MerchantID)
	return s.store.Save(ctx, sub)
}

func (s *Service) setStatusByCustomer(ctx context.Context, customerID string, status Status) error {
	if customerID == "" {
		return nil
	}
	sub, err := s.store.GetByProviderCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return nil
		}
		return err
	}
	sub.Status = status
	return s.store.Save(ctx, sub)
}

func (s *Service) recoverByCustomer(ctx context.Context, customerID string) error {
	if customerID == "" {
		return nil
	}
	sub, err := s.store.GetByProviderCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return nil
		}
		return err
	}
	if sub.Status != StatusPastDue {
		return nil
	}
	sub.Status = StatusActive
	return s.store.Save(ctx, sub)
}

// resolveSubscription finds the existing subscription for the event by
// merchant metadata first, then provider customer ID. For create events
// without an existing row a fresh subscription is started.
func (s *Service) resolveSubscription(ctx context.Context, ev *WebhookEvent) (*Subscription, error) {
	if ev.MerchantID != "" {
		merchantID, err := uuid.Parse(ev.MerchantID)
		if err != nil {
			return nil, errors.Join(ErrInvalidSubscriptionState, err)
		}
		sub, err := s.store.Get(ctx, merchantID)
		if err == nil {
			return sub, nil
		}
		if errors.Is(err, ErrSubscriptionNotFound) {
			return &Subscription{MerchantID: merchantID}, nil
		}
		return nil, err
	}

	if ev.CustomerID != "" {
		return s.store.GetByProviderCustomerID(ctx, ev.CustomerID)
	}

	return nil, ErrSubscriptionNotFound
}

package subscription

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

// StripeConfig holds Stripe billing settings, populated from environment.
// Paid plans map to Stripe price IDs; the free tier has no price.
type StripeConfig struct {
	APIKey          string `env:"STRIPE_API_KEY,required"`
	WebhookSecret   string `env:"STRIPE_WEBHOOK_SECRET,required"`
	StandardPriceID string `env:"STRIPE_PRICE_STANDARD,required"`
	PremiumPriceID  string `env:"STRIPE_PRICE_PREMIUM,required"`
}

// StripeProvider implements BillingProvider for Stripe.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
	priceByPlan   map[string]string
	planByPrice   map[string]string
}

// NewStripeProvider creates a Stripe billing provider.
func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	api := &client.API{}
	api.Init(cfg.APIKey, nil)

	priceByPlan := map[string]string{
		"standard": cfg.StandardPriceID,
		"premium":  cfg.PremiumPriceID,
	}
	planByPrice := make(map[string]string, len(priceByPlan))
	for plan, price := range priceByPlan {
		planByPrice[price] = plan
	}

	return &StripeProvider{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		priceByPlan:   priceByPlan,
		planByPrice:   planByPrice,
	}, nil
}

// CreateCheckoutSession creates a hosted subscription checkout.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.MerchantID == "" {
		return nil, ErrMissingMerchantID
	}
	priceID, ok := p.priceByPlan[req.PlanID]
	if !ok || priceID == "" {
		return nil, errors.Join(ErrUnknownPlan, ErrMissingPriceID)
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(priceID),
			Quantity: stripe.Int64(1),
		}},
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.MerchantID),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			// Metadata survives onto the subscription object so webhook
			// events can be traced back to the merchant.
			Metadata: map[string]string{"merchant_id": req.MerchantID},
		},
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.Context = ctx
	params.SetIdempotencyKey(uuid.New().String())

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, errors.Join(ErrProviderError, err)
	}
	if sess.URL == "" {
		return nil, ErrNoCheckoutURL
	}

	return &CheckoutSession{URL: sess.URL, SessionID: sess.ID}, nil
}

// GetCustomerPortalURL returns a pre-authenticated customer portal link.
func (p *StripeProvider) GetCustomerPortalURL(ctx context.Context, sub *Subscription) (string, error) {
	if sub == nil || sub.ProviderCustomerID == "" {
		return "", ErrInvalidSubscriptionState
	}

	params := &stripe.BillingPortalSessionParams{
		Customer: stripe.String(sub.ProviderCustomerID),
	}
	params.Context = ctx

	sess, err := p.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", errors.Join(ErrProviderError, err)
	}
	if sess.URL == "" {
		return "", ErrNoPortalURL
	}
	return sess.URL, nil
}

// ParseWebhook validates the Stripe-Signature header and normalizes the
// event. Unrecognized event types come back as EventIgnored.
func (p *StripeProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return nil, errors.Join(ErrWebhookVerificationFailed, err)
	}

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated":
		return p.subscriptionEvent(event, EventSubscriptionUpdated, string(event.Type) == "customer.subscription.created")
	case "customer.subscription.deleted":
		ev, err := p.subscriptionEvent(event, EventSubscriptionCancelled, false)
		if err != nil {
			return nil, err
		}
		ev.Status = StatusCancelled
		return ev, nil
	case "invoice.payment_succeeded", "invoice.payment_failed":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return nil, errors.Join(ErrProviderError, err)
		}
		ev := &WebhookEvent{
			ProviderEvent: string(event.Type),
			Type:          EventPaymentSucceeded,
		}
		if event.Type == "invoice.payment_failed" {
			ev.Type = EventPaymentFailed
		}
		if invoice.Customer != nil {
			ev.CustomerID = invoice.Customer.ID
		}
		return ev, nil
	default:
		return &WebhookEvent{Type: EventIgnored, ProviderEvent: string(event.Type)}, nil
	}
}

func (p *StripeProvider) subscriptionEvent(event stripe.Event, typ EventType, created bool) (*WebhookEvent, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return nil, errors.Join(ErrProviderError, err)
	}

	if created {
		typ = EventSubscriptionCreated
	}

	ev := &WebhookEvent{
		Type:          typ,
		ProviderEvent: string(event.Type),
		SubID:         sub.ID,
		MerchantID:    sub.Metadata["merchant_id"],
		Status:        mapStripeStatus(sub.Status),
	}
	if sub.Customer != nil {
		ev.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		ev.PlanID = p.planByPrice[sub.Items.Data[0].Price.ID]
	}
	return ev, nil
}

func mapStripeStatus(status stripe.SubscriptionStatus) Status {
	switch status {
	case stripe.SubscriptionStatusActive:
		return StatusActive
	case stripe.SubscriptionStatusTrialing:
		return StatusTrialing
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return StatusPastDue
	case stripe.SubscriptionStatusCanceled:
		return StatusCancelled
	default:
		return StatusExpired
	}
}

package subscription

import "errors"

var (
	ErrSubscriptionNotFound     = errors.New("subscription: not found")
	ErrInvalidSubscriptionState = errors.New("subscription: invalid state")
	ErrProviderError            = errors.New("subscription: billing provider error")

	ErrMissingAPIKey             = errors.New("subscription: billing provider API key is required")
	ErrMissingWebhookSecret      = errors.New("subscription: billing provider webhook secret is required")
	ErrWebhookVerificationFailed = errors.New("subscription: webhook signature verification failed")
	ErrNoCheckoutURL             = errors.New("subscription: no checkout URL returned from provider")
	ErrNoPortalURL               = errors.New("subscription: no portal URL returned from provider")
	ErrMissingMerchantID         = errors.New("subscription: merchant ID is required")
	ErrMissingPriceID            = errors.New("subscription: price ID is required")
	ErrUnknownPlan               = errors.New("subscription: unknown plan")
)

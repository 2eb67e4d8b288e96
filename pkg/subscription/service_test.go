package subscription_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wholesalehub/platform/pkg/subscription"
)

// fakeProvider returns canned webhook events and checkout sessions.
type fakeProvider struct {
	event    *subscription.WebhookEvent
	eventErr error
	checkout *subscription.CheckoutSession
	portal   string
}

func (p *fakeProvider) CreateCheckoutSession(_ context.Context, _ subscription.CheckoutRequest) (*subscription.CheckoutSession, error) {
	return p.checkout, nil
}

func (p *fakeProvider) GetCustomerPortalURL(_ context.Context, _ *subscription.Subscription) (string, error) {
	return p.portal, nil
}

func (p *fakeProvider) ParseWebhook(_ context.Context, _ []byte, _ string) (*subscription.WebhookEvent, error) {
	return p.event, p.eventErr
}

func newTestService(store subscription.Store, provider subscription.BillingProvider) *subscription.Service {
	return subscription.NewService(store, provider, slog.New(slog.DiscardHandler))
}

func TestServiceHandleWebhook(t *testing.T) {
	t.Parallel()

	merchantID := uuid.New()

	t.Run("subscription created stores new state", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		svc := newTestService(store, &fakeProvider{event: &subscription.WebhookEvent{
			Type:       subscription.EventSubscriptionCreated,
			MerchantID: merchantID.String(),
			SubID:      "sub_123",
			CustomerID: "cus_123",
			PlanID:     "standard",
			Status:     subscription.StatusActive,
		}})

		require.NoError(t, svc.HandleWebhook(context.Background(), nil, "sig"))

		sub, err := store.Get(context.Background(), merchantID)
		require.NoError(t, err)
		assert.Equal(t, "standard", sub.PlanID)
		assert.Equal(t, subscription.StatusActive, sub.Status)
		assert.Equal(t, "sub_123", sub.ProviderSubID)
		assert.Equal(t, "cus_123", sub.ProviderCustomerID)
	})

	t.Run("subscription updated changes plan on existing row", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		require.NoError(t, store.Save(context.Background(), &subscription.Subscription{
			MerchantID:         merchantID,
			PlanID:             "standard",
			Status:             subscription.StatusActive,
			ProviderCustomerID: "cus_123",
		}))

		svc := newTestService(store, &fakeProvider{event: &subscription.WebhookEvent{
			Type:       subscription.EventSubscriptionUpdated,
			MerchantID: merchantID.String(),
			SubID:      "sub_123",
			PlanID:     "premium",
			Status:     subscription.StatusActive,
		}})

		require.NoError(t, svc.HandleWebhook(context.Background(), nil, "sig"))

		sub, err := store.Get(context.Background(), merchantID)
		require.NoError(t, err)
		assert.Equal(t, "premium", sub.PlanID)
		assert.Equal(t, "cus_123", sub.ProviderCustomerID, "customer ID preserved when absent from event")
	})

	t.Run("update without merchant metadata resolves by customer ID", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		require.NoError(t, store.Save(context.Background(), &subscription.Subscription{
			MerchantID:         merchantID,
			PlanID:             "standard",
			Status:             subscription.StatusActive,
			ProviderCustomerID: "cus_456",
		}))

		svc := newTestService(store, &fakeProvider{event: &subscription.WebhookEvent{
			Type:       subscription.EventSubscriptionUpdated,
			CustomerID: "cus_456",
			PlanID:     "premium",
			Status:     subscription.StatusActive,
		}})

		require.NoError(t, svc.HandleWebhook(context.Background(), nil, "sig"))

		sub, err := store.Get(context.Background(), merchantID)
		require.NoError(t, err)
		assert.Equal(t, "premium", sub.PlanID)
	})

	t.Run("subscription deleted marks cancelled", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		require.NoError(t, store.Save(context.Background(), &subscription.Subscription{
			MerchantID: merchantID,
			PlanID:     "premium",
			Status:     subscription.StatusActive,
		}))

		svc := newTestService(store, &fakeProvider{event: &subscription.WebhookEvent{
			Type:       subscription.EventSubscriptionCancelled,
			MerchantID: merchantID.String(),
		}})

		require.NoError(t, svc.HandleWebhook(context.Background(), nil, "sig"))

		sub, err := store.Get(context.Background(), merchantID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusCancelled, sub.Status)
		require.NotNil(t, sub.CancelledAt)
	})

	t.Run("cancellation for unknown merchant is a no-op", func(t *testing.T) {
		t.Parallel()

		svc := newTestService(newMemStore(), &fakeProvider{event: &subscription.WebhookEvent{
			Type:       subscription.EventSubscriptionCancelled,
			MerchantID: uuid.New().String(),
		}})
		assert.NoError(t, svc.HandleWebhook(context.Background(), nil, "sig"))
	})

	t.Run("payment failed moves subscription to past due", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		require.NoError(t, store.Save(context.Background(), &subscription.Subscription{
			MerchantID:         merchantID,
			PlanID:             "premium",
			Status:             subscription.StatusActive,
			ProviderCustomerID: "cus_789",
		}))

		svc := newTestService(store, &fakeProvider{event: &subscription.WebhookEvent{
			Type:       subscription.EventPaymentFailed,
			CustomerID: "cus_789",
		}})

		require.NoError(t, svc.HandleWebhook(context.Background(), nil, "sig"))

		sub, err := store.Get(context.Background(), merchantID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusPastDue, sub.Status)
	})

	t.Run("payment succeeded recovers past due subscription", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		require.NoError(t, store.Save(context.Background(), &subscription.Subscription{
			MerchantID:         merchantID,
			PlanID:             "premium",
			Status:             subscription.StatusPastDue,
			ProviderCustomerID: "cus_789",
		}))

		svc := newTestService(store, &fakeProvider{event: &subscription.WebhookEvent{
			Type:       subscription.EventPaymentSucceeded,
			CustomerID: "cus_789",
		}})

		require.NoError(t, svc.HandleWebhook(context.Background(), nil, "sig"))

		sub, err := store.Get(context.Background(), merchantID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, sub.Status)
	})

	t.Run("ignored events are acknowledged", func(t *testing.T) {
		t.Parallel()

		svc := newTestService(newMemStore(), &fakeProvider{event: &subscription.WebhookEvent{
			Type:          subscription.EventIgnored,
			ProviderEvent: "charge.refunded",
		}})
		assert.NoError(t, svc.HandleWebhook(context.Background(), nil, "sig"))
	})

	t.Run("verification failure propagates", func(t *testing.T) {
		t.Parallel()

		svc := newTestService(newMemStore(), &fakeProvider{eventErr: subscription.ErrWebhookVerificationFailed})
		err := svc.HandleWebhook(context.Background(), nil, "bad")
		assert.ErrorIs(t, err, subscription.ErrWebhookVerificationFailed)
	})
}

func TestServiceGetCustomerPortalURL(t *testing.T) {
	t.Parallel()

	merchantID := uuid.New()
	store := newMemStore()
	require.NoError(t, store.Save(context.Background(), &subscription.Subscription{
		MerchantID:         merchantID,
		Status:             subscription.StatusActive,
		ProviderCustomerID: "cus_123",
	}))

	svc := newTestService(store, &fakeProvider{portal: "https://billing.example.com/portal"})

	url, err := svc.GetCustomerPortalURL(context.Background(), merchantID)
	require.NoError(t, err)
	assert.Equal(t, "https://billing.example.com/portal", url)

	_, err = svc.GetCustomerPortalURL(context.Background(), uuid.New())
	assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
}

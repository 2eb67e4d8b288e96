package subscription_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/wholesalehub/platform/pkg/subscription"
)

// memStore is an in-memory Store used across package tests.
type memStore struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*subscription.Subscription
	err  error
}

func newMemStore() *memStore {
	return &memStore{subs: make(map[uuid.UUID]*subscription.Subscription)}
}

func (s *memStore) Get(_ context.Context, merchantID uuid.UUID) (*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	sub, ok := s.subs[merchantID]
	if !ok {
		return nil, subscription.ErrSubscriptionNotFound
	}
	cp := *sub
	return &cp, nil
}

func (s *memStore) GetByProviderCustomerID(_ context.Context, customerID string) (*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, sub := range s.subs {
		if sub.ProviderCustomerID == customerID {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, subscription.ErrSubscriptionNotFound
}

func (s *memStore) Save(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	cp := *sub
	s.subs[sub.MerchantID] = &cp
	return nil
}

func TestSubscriptionIsEntitled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status   subscription.Status
		entitled bool
	}{
		{subscription.StatusActive, true},
		{subscription.StatusTrialing, true},
		{subscription.StatusPastDue, false},
		{subscription.StatusCancelled, false},
		{subscription.StatusExpired, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			t.Parallel()
			sub := &subscription.Subscription{Status: tt.status}
			assert.Equal(t, tt.entitled, sub.IsEntitled())
		})
	}
}

func TestSubscriptionIsCancelled(t *testing.T) {
	t.Parallel()

	now := time.Now()
	assert.True(t, (&subscription.Subscription{Status: subscription.StatusCancelled}).IsCancelled())
	assert.True(t, (&subscription.Subscription{Status: subscription.StatusActive, CancelledAt: &now}).IsCancelled())
	assert.False(t, (&subscription.Subscription{Status: subscription.StatusActive}).IsCancelled())
}

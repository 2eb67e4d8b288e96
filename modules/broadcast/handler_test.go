package broadcast_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wholesalehub/platform/modules/broadcast"
	"github.com/wholesalehub/platform/pkg/auth"
	"github.com/wholesalehub/platform/pkg/limits"
)

type memRepo struct {
	mu         sync.Mutex
	broadcasts map[uuid.UUID]*broadcast.Broadcast
}

func newMemRepo() *memRepo {
	return &memRepo{broadcasts: make(map[uuid.UUID]*broadcast.Broadcast)}
}

func (r *memRepo) Create(_ context.Context, b *broadcast.Broadcast) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.CreatedAt = time.Now()
	cp := *b
	r.broadcasts[b.ID] = &cp
	return nil
}

func (r *memRepo) ListByMerchant(_ context.Context, merchantID uuid.UUID) ([]broadcast.Broadcast, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]broadcast.Broadcast, 0)
	for _, b := range r.broadcasts {
		if b.MerchantID == merchantID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memRepo) CountSince(_ context.Context, merchantID uuid.UUID, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, b := range r.broadcasts {
		if b.MerchantID == merchantID && !b.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *memRepo) SetStatus(_ context.Context, id uuid.UUID, status broadcast.Status, recipientCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.broadcasts[id]
	if !ok {
		return broadcast.ErrBroadcastNotFound
	}
	b.Status = status
	b.RecipientCount = recipientCount
	return nil
}

// recordingSender captures sent messages; optionally fails some numbers.
type recordingSender struct {
	mu      sync.Mutex
	sent    []string
	failFor map[string]bool
}

func (s *recordingSender) Send(_ context.Context, _ broadcast.Channel, to, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[to] {
		return errors.New("twilio: unreachable")
	}
	s.sent = append(s.sent, to)
	return nil
}

type staticRecipients struct {
	phones []string
}

func (s staticRecipients) ListPhones(context.Context, uuid.UUID, *uuid.UUID) ([]string, error) {
	return s.phones, nil
}

func newRouter(t *testing.T, repo *memRepo, sender broadcast.Sender, phones []string, planID string) http.Handler {
	t.Helper()

	counters := limits.CounterRegistry{}
	counters.Register(limits.ResourceBroadcasts, broadcast.MonthlyCounter(repo))

	svc, err := limits.NewService(
		context.Background(),
		limits.NewInMemSource(limits.DefaultPlans()),
		counters,
		func(context.Context, uuid.UUID) (string, error) { return planID, nil },
		slog.New(slog.DiscardHandler),
	)
	require.NoError(t, err)

	h := broadcast.NewHandler(repo, sender, staticRecipients{phones: phones}, svc, slog.New(slog.DiscardHandler))
	return h.Router()
}

func sendBroadcast(router http.Handler, merchantID uuid.UUID, payload string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(payload)))
	req = req.WithContext(auth.WithMerchantID(req.Context(), merchantID))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSendBroadcast(t *testing.T) {
	t.Parallel()

	const payload = `{"channel":"whatsapp","message":"Monthly specials are live"}`

	t.Run("delivers to every recipient", func(t *testing.T) {
		t.Parallel()

		sender := &recordingSender{}
		router := newRouter(t, newMemRepo(), sender, []string{"+15550001", "+15550002"}, "standard")

		rec := sendBroadcast(router, uuid.New(), payload)
		require.Equal(t, http.StatusCreated, rec.Code)

		var b broadcast.Broadcast
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
		assert.Equal(t, broadcast.StatusSent, b.Status)
		assert.Equal(t, 2, b.RecipientCount)
		assert.ElementsMatch(t, []string{"+15550001", "+15550002"}, sender.sent)
	})

	t.Run("partial delivery still counts as sent", func(t *testing.T) {
		t.Parallel()

		sender := &recordingSender{failFor: map[string]bool{"+15550002": true}}
		router := newRouter(t, newMemRepo(), sender, []string{"+15550001", "+15550002"}, "standard")

		rec := sendBroadcast(router, uuid.New(), payload)
		require.Equal(t, http.StatusCreated, rec.Code)

		var b broadcast.Broadcast
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
		assert.Equal(t, broadcast.StatusSent, b.Status)
		assert.Equal(t, 1, b.RecipientCount)
	})

	t.Run("total delivery failure marks the broadcast failed", func(t *testing.T) {
		t.Parallel()

		sender := &recordingSender{failFor: map[string]bool{"+15550001": true}}
		repo := newMemRepo()
		router := newRouter(t, repo, sender, []string{"+15550001"}, "standard")
		merchantID := uuid.New()

		rec := sendBroadcast(router, merchantID, payload)
		require.Equal(t, http.StatusBadGateway, rec.Code)

		// The failed attempt still consumed quota.
		count, err := repo.CountSince(context.Background(), merchantID, time.Now().Add(-time.Minute))
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})

	t.Run("free plan denies the sixth broadcast this month", func(t *testing.T) {
		t.Parallel()

		sender := &recordingSender{}
		router := newRouter(t, newMemRepo(), sender, []string{"+15550001"}, "free")
		merchantID := uuid.New()

		for i := 0; i < 5; i++ {
			rec := sendBroadcast(router, merchantID, payload)
			require.Equal(t, http.StatusCreated, rec.Code, "broadcast %d should be allowed", i+1)
		}

		rec := sendBroadcast(router, merchantID, payload)
		require.Equal(t, http.StatusForbidden, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "BROADCAST_LIMIT_EXCEEDED", body["code"])
		assert.EqualValues(t, 5, body["limit"])
	})

	t.Run("old broadcasts do not count against this month", func(t *testing.T) {
		t.Parallel()

		repo := newMemRepo()
		merchantID := uuid.New()
		for i := 0; i < 5; i++ {
			b := &broadcast.Broadcast{ID: uuid.New(), MerchantID: merchantID, Channel: broadcast.ChannelSMS, Status: broadcast.StatusSent}
			require.NoError(t, repo.Create(context.Background(), b))
			repo.broadcasts[b.ID].CreatedAt = time.Now().AddDate(0, -1, 0)
		}

		router := newRouter(t, repo, &recordingSender{}, []string{"+15550001"}, "free")
		rec := sendBroadcast(router, merchantID, payload)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("no recipients is a validation error and consumes no quota", func(t *testing.T) {
		t.Parallel()

		repo := newMemRepo()
		router := newRouter(t, repo, &recordingSender{}, nil, "free")
		merchantID := uuid.New()

		rec := sendBroadcast(router, merchantID, payload)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		count, err := repo.CountSince(context.Background(), merchantID, time.Now().Add(-time.Minute))
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)
	})

	t.Run("unknown channel is rejected", func(t *testing.T) {
		t.Parallel()

		router := newRouter(t, newMemRepo(), &recordingSender{}, []string{"+15550001"}, "free")
		rec := sendBroadcast(router, uuid.New(), `{"channel":"pigeon","message":"hi"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("anonymous send is rejected", func(t *testing.T) {
		t.Parallel()

		router := newRouter(t, newMemRepo(), &recordingSender{}, []string{"+15550001"}, "free")
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(payload)))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestListBroadcasts(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	merchantID := uuid.New()
	require.NoError(t, repo.Create(context.Background(), &broadcast.Broadcast{
		ID: uuid.New(), MerchantID: merchantID, Channel: broadcast.ChannelSMS,
		Message: "hello", Status: broadcast.StatusSent,
	}))
	require.NoError(t, repo.Create(context.Background(), &broadcast.Broadcast{
		ID: uuid.New(), MerchantID: uuid.New(), Channel: broadcast.ChannelSMS,
		Message: "other merchant", Status: broadcast.StatusSent,
	}))

	router := newRouter(t, repo, &recordingSender{}, nil, "free")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithMerchantID(req.Context(), merchantID))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Broadcasts []broadcast.Broadcast `json:"broadcasts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Broadcasts, 1)
}

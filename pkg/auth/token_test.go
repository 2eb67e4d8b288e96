package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wholesalehub/platform/pkg/auth"
)

func newTokenService(t *testing.T, ttl time.Duration) *auth.TokenService {
	t.Helper()
	svc, err := auth.NewTokenService(auth.Config{
		SigningKey: "test-signing-key",
		TokenTTL:   ttl,
		Issuer:     "test",
	})
	require.NoError(t, err)
	return svc
}

func TestTokenService(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		svc := newTokenService(t, time.Hour)
		merchantID := uuid.New()

		token, err := svc.Generate(merchantID)
		require.NoError(t, err)

		parsed, err := svc.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, merchantID, parsed)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		t.Parallel()

		svc := newTokenService(t, -time.Minute)
		token, err := svc.Generate(uuid.New())
		require.NoError(t, err)

		_, err = svc.Parse(token)
		assert.ErrorIs(t, err, auth.ErrExpiredToken)
	})

	t.Run("tampered signature rejected", func(t *testing.T) {
		t.Parallel()

		svc := newTokenService(t, time.Hour)
		token, err := svc.Generate(uuid.New())
		require.NoError(t, err)

		_, err = svc.Parse(token + "x")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("token signed with different key rejected", func(t *testing.T) {
		t.Parallel()

		other, err := auth.NewTokenService(auth.Config{SigningKey: "other-key", TokenTTL: time.Hour})
		require.NoError(t, err)
		token, err := other.Generate(uuid.New())
		require.NoError(t, err)

		svc := newTokenService(t, time.Hour)
		_, err = svc.Parse(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("missing signing key", func(t *testing.T) {
		t.Parallel()

		_, err := auth.NewTokenService(auth.Config{})
		assert.ErrorIs(t, err, auth.ErrMissingSigningKey)
	})
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	svc := newTokenService(t, time.Hour)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := auth.MerchantIDFromContext(r.Context()); ok {
			_, _ = w.Write([]byte(id.String()))
			return
		}
		_, _ = w.Write([]byte("anonymous"))
	})
	handler := auth.Middleware(svc)(next)

	t.Run("valid token populates context", func(t *testing.T) {
		t.Parallel()

		merchantID := uuid.New()
		token, err := svc.Generate(merchantID)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, merchantID.String(), rec.Body.String())
	})

	t.Run("no token passes through anonymous", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "anonymous", rec.Body.String())
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nonsense")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

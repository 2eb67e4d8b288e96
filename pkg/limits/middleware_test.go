package limits_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wholesalehub/platform/pkg/auth"
	"github.com/wholesalehub/platform/pkg/limits"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusCreated)
	})
}

func authedRequest(merchantID uuid.UUID) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/products", nil)
	return req.WithContext(auth.WithMerchantID(req.Context(), merchantID))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRequire(t *testing.T) {
	t.Parallel()

	merchantID := uuid.New()

	t.Run("allows under limit", func(t *testing.T) {
		t.Parallel()

		counters := limits.NewRegistry()
		counters.Register(limits.ResourceProducts, staticCounter(3))
		svc := newService(t, "free", counters)

		var called bool
		rec := httptest.NewRecorder()
		limits.Require(svc, limits.ResourceProducts)(okHandler(&called)).ServeHTTP(rec, authedRequest(merchantID))

		assert.True(t, called)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("denies at limit with structured body", func(t *testing.T) {
		t.Parallel()

		counters := limits.NewRegistry()
		counters.Register(limits.ResourceProducts, staticCounter(10))
		svc := newService(t, "free", counters)

		var called bool
		rec := httptest.NewRecorder()
		limits.Require(svc, limits.ResourceProducts)(okHandler(&called)).ServeHTTP(rec, authedRequest(merchantID))

		assert.False(t, called)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, "PRODUCT_LIMIT_EXCEEDED", body["code"])
		assert.Equal(t, "free", body["currentPlan"])
		assert.Equal(t, float64(10), body["currentCount"])
		assert.Equal(t, float64(10), body["limit"])
		assert.Equal(t, "/subscription/pricing", body["upgradeUrl"])
		assert.NotEmpty(t, body["message"])
	})

	t.Run("unlimited plan passes through", func(t *testing.T) {
		t.Parallel()

		counters := limits.NewRegistry()
		counters.Register(limits.ResourceProducts, staticCounter(500))
		svc := newService(t, "premium", counters)

		var called bool
		rec := httptest.NewRecorder()
		limits.Require(svc, limits.ResourceProducts)(okHandler(&called)).ServeHTTP(rec, authedRequest(merchantID))

		assert.True(t, called)
	})

	t.Run("unauthenticated gets 401 without counting", func(t *testing.T) {
		t.Parallel()

		counterCalled := false
		counters := limits.NewRegistry()
		counters.Register(limits.ResourceProducts, func(ctx context.Context, merchantID uuid.UUID) (int64, error) {
			counterCalled = true
			return 0, nil
		})
		svc := newService(t, "free", counters)

		var called bool
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/products", nil)
		limits.Require(svc, limits.ResourceProducts)(okHandler(&called)).ServeHTTP(rec, req)

		assert.False(t, called)
		assert.False(t, counterCalled)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, "AUTH_REQUIRED", body["code"])
		assert.Equal(t, "Authentication required", body["error"])
		assert.Equal(t, "products", body["feature"])
	})

	t.Run("counter failure answers 500", func(t *testing.T) {
		t.Parallel()

		counters := limits.NewRegistry()
		counters.Register(limits.ResourceBroadcasts, func(ctx context.Context, merchantID uuid.UUID) (int64, error) {
			return 0, errors.New("db down")
		})
		svc := newService(t, "free", counters)

		var called bool
		rec := httptest.NewRecorder()
		limits.Require(svc, limits.ResourceBroadcasts)(okHandler(&called)).ServeHTTP(rec, authedRequest(merchantID))

		assert.False(t, called)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, "FEATURE_CHECK_FAILED", body["code"])
	})

	t.Run("per-resource denial codes", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			resource limits.Resource
			code     string
		}{
			{limits.ResourceProducts, "PRODUCT_LIMIT_EXCEEDED"},
			{limits.ResourceBroadcasts, "BROADCAST_LIMIT_EXCEEDED"},
			{limits.ResourceTeamMembers, "TEAM_LIMIT_EXCEEDED"},
			{limits.ResourceCustomGroups, "GROUP_LIMIT_EXCEEDED"},
		}

		for _, tt := range tests {
			t.Run(string(tt.resource), func(t *testing.T) {
				t.Parallel()

				counters := limits.NewRegistry()
				counters.Register(tt.resource, staticCounter(1_000))
				svc := newService(t, "free", counters)

				var called bool
				rec := httptest.NewRecorder()
				limits.Require(svc, tt.resource)(okHandler(&called)).ServeHTTP(rec, authedRequest(merchantID))

				assert.Equal(t, http.StatusForbidden, rec.Code)
				assert.Equal(t, tt.code, decodeBody(t, rec)["code"])
			})
		}
	})
}

func TestRequireValue(t *testing.T) {
	t.Parallel()

	merchantID := uuid.New()

	t.Run("denies with requested value in body", func(t *testing.T) {
		t.Parallel()

		svc := newService(t, "free", limits.NewRegistry())

		var called bool
		rec := httptest.NewRecorder()
		limits.RequireValue(svc, limits.ResourceCustomGroups, 5)(okHandler(&called)).ServeHTTP(rec, authedRequest(merchantID))

		assert.False(t, called)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, "SUBSCRIPTION_UPGRADE_REQUIRED", body["code"])
		assert.Equal(t, "custom_groups", body["feature"])
		assert.Equal(t, float64(5), body["requestedValue"])
		assert.Equal(t, float64(2), body["currentLimit"])
		assert.Equal(t, "/subscription/pricing", body["upgradeUrl"])
	})

	t.Run("allows value within limit", func(t *testing.T) {
		t.Parallel()

		svc := newService(t, "standard", limits.NewRegistry())

		var called bool
		rec := httptest.NewRecorder()
		limits.RequireValue(svc, limits.ResourceCustomGroups, 10)(okHandler(&called)).ServeHTTP(rec, authedRequest(merchantID))

		assert.True(t, called)
	})

	t.Run("unauthenticated gets 401", func(t *testing.T) {
		t.Parallel()

		svc := newService(t, "free", limits.NewRegistry())

		var called bool
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/groups", nil)
		limits.RequireValue(svc, limits.ResourceCustomGroups, 5)(okHandler(&called)).ServeHTTP(rec, req)

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

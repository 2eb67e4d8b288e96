package limits_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wholesalehub/platform/pkg/limits"
)

func testPlans() map[string]limits.Plan {
	return map[string]limits.Plan{
		"free": {
			ID:     "free",
			Name:   "Free",
			Limits: limits.DefaultLimits(),
		},
		"standard": {
			ID:   "standard",
			Name: "Standard",
			Limits: map[limits.Resource]int64{
				limits.ResourceProducts:     100,
				limits.ResourceBroadcasts:   50,
				limits.ResourceTeamMembers:  5,
				limits.ResourceCustomGroups: 10,
			},
		},
		"premium": {
			ID:   "premium",
			Name: "Premium",
			Limits: map[limits.Resource]int64{
				limits.ResourceProducts:     limits.Unlimited,
				limits.ResourceBroadcasts:   limits.Unlimited,
				limits.ResourceTeamMembers:  limits.Unlimited,
				limits.ResourceCustomGroups: limits.Unlimited,
			},
		},
	}
}

func staticResolver(planID string) limits.PlanResolver {
	return func(ctx context.Context, merchantID uuid.UUID) (string, error) {
		return planID, nil
	}
}

func staticCounter(n int64) limits.CounterFunc {
	return func(ctx context.Context, merchantID uuid.UUID) (int64, error) {
		return n, nil
	}
}

func noopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newService(t *testing.T, planID string, counters limits.CounterRegistry) limits.Service {
	t.Helper()
	svc, err := limits.NewService(context.Background(),
		limits.NewInMemSource(testPlans()), counters, staticResolver(planID), noopLogger())
	require.NoError(t, err)
	return svc
}

func TestServiceCheck(t *testing.T) {
	t.Parallel()

	merchantID := uuid.New()

	t.Run("under limit allows", func(t *testing.T) {
		t.Parallel()

		counters := limits.NewRegistry()
		counters.Register(limits.ResourceProducts, staticCounter(9))
		svc := newService(t, "free", counters)

		result, err := svc.Check(context.Background(), merchantID, limits.ResourceProducts)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, int64(9), result.Current)
		assert.Equal(t, int64(10), result.Limit)
		assert.False(t, result.UpgradeRequired)
	})

	t.Run("at limit denies", func(t *testing.T) {
		t.Parallel()

		counters := limits.NewRegistry()
		counters.Register(limits.ResourceProducts, staticCounter(10))
		svc := newService(t, "free", counters)

		result, err := svc.Check(context.Background(), merchantID, limits.ResourceProducts)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.True(t, result.UpgradeRequired)
		assert.Equal(t, "free", result.PlanID)
	})

	t.Run("unlimited allows regardless of count", func(t *testing.T) {
		t.Parallel()

		counters := limits.NewRegistry()
		counters.Register(limits.ResourceProducts, staticCounter(500))
		svc := newService(t, "premium", counters)

		result, err := svc.Check(context.Background(), merchantID, limits.ResourceProducts)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, limits.Unlimited, result.Limit)
	})

	t.Run("zero limit always denies", func(t *testing.T) {
		t.Parallel()

		plans := testPlans()
		plan := plans["free"]
		plan.Limits[limits.ResourceBroadcasts] = 0
		plans["free"] = plan

		counters := limits.NewRegistry()
		counters.Register(limits.ResourceBroadcasts, staticCounter(0))

		svc, err := limits.NewService(context.Background(),
			limits.NewInMemSource(plans), counters, staticResolver("free"), noopLogger())
		require.NoError(t, err)

		result, err := svc.Check(context.Background(), merchantID, limits.ResourceBroadcasts)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
	})

	t.Run("counter failure surfaces as error", func(t *testing.T) {
		t.Parallel()

		counters := limits.NewRegistry()
		counters.Register(limits.ResourceProducts, func(ctx context.Context, merchantID uuid.UUID) (int64, error) {
			return 0, errors.New("query timeout")
		})
		svc := newService(t, "free", counters)

		_, err := svc.Check(context.Background(), merchantID, limits.ResourceProducts)
		assert.ErrorIs(t, err, limits.ErrFailedToCountResourceUsage)
	})

	t.Run("missing counter is an error", func(t *testing.T) {
		t.Parallel()

		svc := newService(t, "free", limits.NewRegistry())

		_, err := svc.Check(context.Background(), merchantID, limits.ResourceProducts)
		assert.ErrorIs(t, err, limits.ErrNoCounterRegistered)
	})

	t.Run("unknown resource is an error", func(t *testing.T) {
		t.Parallel()

		svc := newService(t, "free", limits.NewRegistry())

		_, err := svc.Check(context.Background(), merchantID, limits.Resource("warehouses"))
		assert.ErrorIs(t, err, limits.ErrInvalidResource)
	})

	t.Run("resolver failure degrades to default limits", func(t *testing.T) {
		t.Parallel()

		counters := limits.NewRegistry()
		counters.Register(limits.ResourceProducts, staticCounter(10))

		failing := func(ctx context.Context, merchantID uuid.UUID) (string, error) {
			return "", errors.New("subscription lookup failed")
		}
		svc, err := limits.NewService(context.Background(),
			limits.NewInMemSource(testPlans()), counters, failing, noopLogger())
		require.NoError(t, err)

		result, err := svc.Check(context.Background(), merchantID, limits.ResourceProducts)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, limits.DefaultPlanID, result.PlanID)
		assert.Equal(t, int64(10), result.Limit)
	})

	t.Run("unknown plan degrades to default limits", func(t *testing.T) {
		t.Parallel()

		counters := limits.NewRegistry()
		counters.Register(limits.ResourceProducts, staticCounter(3))
		svc := newService(t, "legacy-gold", counters)

		result, err := svc.Check(context.Background(), merchantID, limits.ResourceProducts)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, limits.DefaultPlanID, result.PlanID)
		assert.Equal(t, int64(10), result.Limit)
	})

	t.Run("plan missing resource falls back to default table", func(t *testing.T) {
		t.Parallel()

		plans := testPlans()
		plan := plans["standard"]
		delete(plan.Limits, limits.ResourceCustomGroups)
		plans["standard"] = plan

		counters := limits.NewRegistry()
		counters.Register(limits.ResourceCustomGroups, staticCounter(2))

		svc, err := limits.NewService(context.Background(),
			limits.NewInMemSource(plans), counters, staticResolver("standard"), noopLogger())
		require.NoError(t, err)

		result, err := svc.Check(context.Background(), merchantID, limits.ResourceCustomGroups)
		require.NoError(t, err)
		assert.Equal(t, int64(2), result.Limit)
		assert.False(t, result.Allowed)
	})
}

func TestServiceCheckValue(t *testing.T) {
	t.Parallel()

	merchantID := uuid.New()

	t.Run("requested total within limit", func(t *testing.T) {
		t.Parallel()

		svc := newService(t, "standard", limits.NewRegistry())

		result, err := svc.CheckValue(context.Background(), merchantID, limits.ResourceCustomGroups, 10)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})

	t.Run("requested total exceeding limit", func(t *testing.T) {
		t.Parallel()

		svc := newService(t, "standard", limits.NewRegistry())

		result, err := svc.CheckValue(context.Background(), merchantID, limits.ResourceCustomGroups, 11)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, int64(11), result.Current)
		assert.Equal(t, int64(10), result.Limit)
	})

	t.Run("unlimited allows any value", func(t *testing.T) {
		t.Parallel()

		svc := newService(t, "premium", limits.NewRegistry())

		result, err := svc.CheckValue(context.Background(), merchantID, limits.ResourceCustomGroups, 1_000_000)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})
}

func TestServiceUsage(t *testing.T) {
	t.Parallel()

	merchantID := uuid.New()

	t.Run("aggregates all resources", func(t *testing.T) {
		t.Parallel()

		counters := limits.NewRegistry()
		counters.Register(limits.ResourceProducts, staticCounter(5))
		counters.Register(limits.ResourceBroadcasts, staticCounter(2))
		counters.Register(limits.ResourceTeamMembers, staticCounter(1))
		counters.Register(limits.ResourceCustomGroups, staticCounter(1))
		svc := newService(t, "free", counters)

		usage, err := svc.Usage(context.Background(), merchantID)
		require.NoError(t, err)

		assert.Equal(t, "free", usage.PlanID)
		assert.Equal(t, int64(5), usage.Usage[limits.ResourceProducts])
		assert.Equal(t, int64(10), usage.Limits[limits.ResourceProducts])
		assert.Equal(t, 50, usage.PercentUsed[limits.ResourceProducts])
		assert.Equal(t, 40, usage.PercentUsed[limits.ResourceBroadcasts])
		assert.Equal(t, 100, usage.PercentUsed[limits.ResourceTeamMembers])
	})

	t.Run("counter failure degrades to zero", func(t *testing.T) {
		t.Parallel()

		counters := limits.NewRegistry()
		counters.Register(limits.ResourceProducts, func(ctx context.Context, merchantID uuid.UUID) (int64, error) {
			return 0, errors.New("connection refused")
		})
		svc := newService(t, "free", counters)

		usage, err := svc.Usage(context.Background(), merchantID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), usage.Usage[limits.ResourceProducts])
		assert.Equal(t, 0, usage.PercentUsed[limits.ResourceProducts])
	})

	t.Run("unlimited reports zero percent", func(t *testing.T) {
		t.Parallel()

		counters := limits.NewRegistry()
		counters.Register(limits.ResourceProducts, staticCounter(500))
		svc := newService(t, "premium", counters)

		usage, err := svc.Usage(context.Background(), merchantID)
		require.NoError(t, err)
		assert.Equal(t, int64(500), usage.Usage[limits.ResourceProducts])
		assert.Equal(t, 0, usage.PercentUsed[limits.ResourceProducts])
	})
}

func TestPercentUsed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		current int64
		limit   int64
		want    int
	}{
		{"zero usage", 0, 10, 0},
		{"half", 5, 10, 50},
		{"rounds to nearest", 1, 3, 33},
		{"rounds half up", 1, 8, 13},
		{"full", 10, 10, 100},
		{"over limit", 12, 10, 120},
		{"unlimited never divides", 99, limits.Unlimited, 0},
		{"zero limit", 0, 0, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, limits.PercentUsed(tt.current, tt.limit))
		})
	}
}

func TestPlanCatalog(t *testing.T) {
	t.Parallel()

	t.Run("default limits match the fallback table", func(t *testing.T) {
		t.Parallel()

		want := map[limits.Resource]int64{
			limits.ResourceProducts:     10,
			limits.ResourceBroadcasts:   5,
			limits.ResourceTeamMembers:  1,
			limits.ResourceCustomGroups: 2,
		}
		assert.Equal(t, want, limits.DefaultLimits())
	})

	t.Run("public plans listed", func(t *testing.T) {
		t.Parallel()

		svc := newService(t, "free", limits.NewRegistry())
		plans := svc.PublicPlans()
		assert.Len(t, plans, 3)
	})

	t.Run("unknown plan lookup", func(t *testing.T) {
		t.Parallel()

		svc := newService(t, "free", limits.NewRegistry())
		_, err := svc.Plan("platinum")
		assert.ErrorIs(t, err, limits.ErrPlanNotFound)
	})

	t.Run("source copies are isolated", func(t *testing.T) {
		t.Parallel()

		plans := testPlans()
		src := limits.NewInMemSource(plans)
		plans["free"].Limits[limits.ResourceProducts] = 999

		loaded, err := src.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(10), loaded["free"].Limits[limits.ResourceProducts])
	})
}

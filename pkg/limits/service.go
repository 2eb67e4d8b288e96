package limits

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"maps"
	"math"
	"slices"

	"github.com/google/uuid"
)

// PlanResolver resolves the active plan ID for a merchant.
type PlanResolver func(ctx context.Context, merchantID uuid.UUID) (string, error)

// Service is the public interface of the feature-limit layer.
type Service interface {
	// Check evaluates whether the merchant may create one more instance
	// of the resource. The comparison uses the pre-insert count: with a
	// limit of 10 the gate denies only once 10 instances already exist.
	Check(ctx context.Context, merchantID uuid.UUID, res Resource) (CheckResult, error)

	// CheckValue evaluates an explicit requested total against the plan
	// limit instead of the persisted count.
	CheckValue(ctx context.Context, merchantID uuid.UUID, res Resource, value int64) (CheckResult, error)

	// Usage aggregates plan, limits, current usage, and percent-used for
	// the merchant dashboard. Counter failures degrade to zero here:
	// reporting is advisory and must not fail the whole dashboard.
	Usage(ctx context.Context, merchantID uuid.UUID) (PlanUsage, error)

	// Plan returns the given plan from the loaded catalog.
	Plan(planID string) (Plan, error)

	// PublicPlans lists plans available for self-service signup.
	PublicPlans() []Plan
}

type service struct {
	// plans is treated as immutable after initialization; thread-safety
	// relies on there being no runtime modifications.
	plans    map[string]Plan
	counters CounterRegistry
	resolver PlanResolver
	log      *slog.Logger
}

// NewService creates a Service with the given plan Source, counter
// registry, and plan resolver.
func NewService(ctx context.Context, src Source, counters CounterRegistry, resolver PlanResolver, log *slog.Logger) (Service, error) {
	if resolver == nil {
		panic("limits: PlanResolver is required")
	}
	if log == nil {
		log = slog.Default()
	}

	plans, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	if plans == nil {
		plans = make(map[string]Plan)
	}
	if counters == nil {
		counters = NewRegistry()
	}

	return &service{
		plans:    plans,
		counters: counters,
		resolver: resolver,
		log:      log,
	}, nil
}

func (s *service) Check(ctx context.Context, merchantID uuid.UUID, res Resource) (CheckResult, error) {
	planID, limits := s.resolve(ctx, merchantID)

	limit, err := limitFor(limits, res)
	if err != nil {
		return CheckResult{}, err
	}

	if limit == Unlimited {
		return CheckResult{Allowed: true, Resource: res, Limit: limit, PlanID: planID}, nil
	}

	counter, ok := s.counters[res]
	if !ok {
		return CheckResult{}, ErrNoCounterRegistered
	}

	current, err := counter(ctx, merchantID)
	if err != nil {
		return CheckResult{}, errors.Join(ErrFailedToCountResourceUsage, err)
	}

	allowed := current < limit
	return CheckResult{
		Allowed:         allowed,
		Resource:        res,
		Limit:           limit,
		Current:         current,
		PlanID:          planID,
		UpgradeRequired: !allowed,
	}, nil
}

func (s *service) CheckValue(ctx context.Context, merchantID uuid.UUID, res Resource, value int64) (CheckResult, error) {
	planID, limits := s.resolve(ctx, merchantID)

	limit, err := limitFor(limits, res)
	if err != nil {
		return CheckResult{}, err
	}

	// A requested total is allowed when it fits within the limit.
	allowed := limit == Unlimited || value <= limit
	return CheckResult{
		Allowed:         allowed,
		Resource:        res,
		Limit:           limit,
		Current:         value,
		PlanID:          planID,
		UpgradeRequired: !allowed,
	}, nil
}

func (s *service) Usage(ctx context.Context, merchantID uuid.UUID) (PlanUsage, error) {
	planID, planLimits := s.resolve(ctx, merchantID)

	usage := PlanUsage{
		PlanID:      planID,
		Limits:      planLimits,
		Usage:       make(map[Resource]int64, len(planLimits)),
		PercentUsed: make(map[Resource]int, len(planLimits)),
	}

	for res, limit := range planLimits {
		var current int64
		if counter, ok := s.counters[res]; ok {
			c, err := counter(ctx, merchantID)
			if err != nil {
				s.log.ErrorContext(ctx, "usage counter failed, reporting zero",
					"resource", res, "merchant_id", merchantID, "error", err)
			} else {
				current = c
			}
		}
		usage.Usage[res] = current
		usage.PercentUsed[res] = PercentUsed(current, limit)
	}

	return usage, nil
}

func (s *service) Plan(planID string) (Plan, error) {
	plan, ok := s.plans[planID]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return clonePlan(plan), nil
}

func (s *service) PublicPlans() []Plan {
	out := make([]Plan, 0, len(s.plans))
	for _, plan := range s.plans {
		if plan.Public {
			out = append(out, clonePlan(plan))
		}
	}
	// Order tiers from most restrictive to unlimited so the listing is
	// stable across calls.
	slices.SortFunc(out, func(a, b Plan) int {
		return cmp.Compare(tierRank(a), tierRank(b))
	})
	return out
}

func tierRank(p Plan) int64 {
	limit, ok := p.Limits[ResourceProducts]
	if !ok {
		return 0
	}
	if limit == Unlimited {
		return math.MaxInt64
	}
	return limit
}

// resolve maps the merchant to its plan ID and limits table. Resolution
// failures and unknown plans degrade to the free-tier defaults, the most
// restrictive behavior, rather than blocking the request.
func (s *service) resolve(ctx context.Context, merchantID uuid.UUID) (string, map[Resource]int64) {
	planID, err := s.resolver(ctx, merchantID)
	if err != nil {
		s.log.ErrorContext(ctx, "plan resolution failed, applying default limits",
			"merchant_id", merchantID, "error", err)
		return DefaultPlanID, DefaultLimits()
	}

	plan, ok := s.plans[planID]
	if !ok {
		s.log.WarnContext(ctx, "resolved plan not in catalog, applying default limits",
			"merchant_id", merchantID, "plan_id", planID)
		return DefaultPlanID, DefaultLimits()
	}

	return planID, maps.Clone(plan.Limits)
}

// limitFor returns the limit for res, falling back to the default table
// when the plan omits the resource.
func limitFor(limits map[Resource]int64, res Resource) (int64, error) {
	if limit, ok := limits[res]; ok {
		return limit, nil
	}
	if limit, ok := DefaultLimits()[res]; ok {
		return limit, nil
	}
	return 0, ErrInvalidResource
}

// PercentUsed reports usage as a rounded percentage of the limit.
// Unlimited resources always report 0 so the sentinel is never used as a
// divisor; a zero limit reports 100.
func PercentUsed(current, limit int64) int {
	if limit == Unlimited {
		return 0
	}
	if limit == 0 {
		return 100
	}
	return int(math.Round(float64(current) / float64(limit) * 100))
}

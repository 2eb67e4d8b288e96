// Package limits enforces subscription plan quotas for merchant
// resources: products, promotion broadcasts, team members, and custom
// customer groups.
//
// Key concepts:
//
//   - Plan: a subscription tier with a map of resource caps, where
//     Unlimited (-1) means no cap
//   - CounterFunc: reads the current usage of a resource for a merchant
//   - PlanResolver: maps a merchant to its active plan ID
//   - Service: evaluates gate checks and aggregates dashboard usage
//
// The gate comparison is strict less-than on the pre-insert count:
// with a limit of 10, a merchant may hold 10 products and the 11th
// create is denied. A limit of 0 always denies. Checks are advisory:
// two concurrent requests can both observe the last free slot, so the
// limit may overshoot by one under contention.
//
// Failure policy: plan resolution failures degrade to the free-tier
// default limits (the most restrictive plan) and never block a request;
// counter failures inside a gate check surface as errors so middleware
// answers 500 instead of silently allowing; counter failures during
// dashboard aggregation degrade to zero.
//
// Basic usage:
//
//	source := limits.NewInMemSource(limits.DefaultPlans())
//	counters := limits.NewRegistry()
//	counters.Register(limits.ResourceProducts, productRepo.CountByMerchant)
//
//	svc, err := limits.NewService(ctx, source, counters, resolver.ResolvePlanID, log)
//
//	r.With(limits.Require(svc, limits.ResourceProducts)).Post("/products", createProduct)
package limits

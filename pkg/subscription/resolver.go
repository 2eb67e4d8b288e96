package subscription

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/wholesalehub/platform/pkg/limits"
)

// Resolver maps a merchant to its active plan ID for the limits layer.
// Missing or non-entitled subscriptions resolve to the free tier, and
// lookup failures degrade to free rather than failing the request.
type Resolver struct {
	store Store
	log   *slog.Logger
}

// NewResolver creates a plan resolver backed by the given store.
func NewResolver(store Store, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{store: store, log: log}
}

// ResolvePlanID implements limits.PlanResolver.
func (r *Resolver) ResolvePlanID(ctx context.Context, merchantID uuid.UUID) (string, error) {
	sub, err := r.store.Get(ctx, merchantID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return limits.DefaultPlanID, nil
		}
		r.log.ErrorContext(ctx, "subscription lookup failed, resolving to free tier",
			"merchant_id", merchantID, "error", err)
		return limits.DefaultPlanID, nil
	}

	if !sub.IsEntitled() {
		return limits.DefaultPlanID, nil
	}

	return sub.PlanID, nil
}

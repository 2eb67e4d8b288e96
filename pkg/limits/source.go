package limits

import (
	"context"
	"sync"
)

// Source defines how plans are loaded into the limits service.
type Source interface {
	Load(ctx context.Context) (map[string]Plan, error)
}

// inMemSource implements Source using an in-memory plan map.
type inMemSource struct {
	mu    sync.RWMutex
	plans map[string]Plan
}

// NewInMemSource returns an in-memory Source holding a deep copy of the
// given plans, so later mutations by the caller cannot leak in.
func NewInMemSource(plans map[string]Plan) Source {
	plansCopy := make(map[string]Plan, len(plans))
	for id, plan := range plans {
		plansCopy[id] = clonePlan(plan)
	}
	return &inMemSource{plans: plansCopy}
}

// Load returns a deep copy of all available plans.
func (s *inMemSource) Load(ctx context.Context) (map[string]Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plansCopy := make(map[string]Plan, len(s.plans))
	for id, plan := range s.plans {
		plansCopy[id] = clonePlan(plan)
	}
	return plansCopy, nil
}

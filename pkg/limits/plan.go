package limits

import "maps"

// Plan describes a subscription tier and its resource caps. Plans are
// immutable reference data loaded once at startup.
type Plan struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Limits      map[Resource]int64 `json:"limits"` // Unlimited (-1) means no cap
	Public      bool               `json:"-"`      // available for self-service signup
}

// DefaultPlanID is the tier applied when no subscription resolves.
const DefaultPlanID = "free"

// DefaultLimits is the single fallback limits table, used both when an
// account has no plan record and when a resolved plan omits a resource.
func DefaultLimits() map[Resource]int64 {
	return map[Resource]int64{
		ResourceProducts:     10,
		ResourceBroadcasts:   5,
		ResourceTeamMembers:  1,
		ResourceCustomGroups: 2,
	}
}

// DefaultPlans returns the built-in plan catalog.
func DefaultPlans() map[string]Plan {
	return map[string]Plan{
		"free": {
			ID:          "free",
			Name:        "Free",
			Description: "Starter tier for new wholesalers",
			Limits:      DefaultLimits(),
			Public:      true,
		},
		"standard": {
			ID:          "standard",
			Name:        "Standard",
			Description: "Growing wholesale businesses",
			Limits: map[Resource]int64{
				ResourceProducts:     100,
				ResourceBroadcasts:   50,
				ResourceTeamMembers:  5,
				ResourceCustomGroups: 10,
			},
			Public: true,
		},
		"premium": {
			ID:          "premium",
			Name:        "Premium",
			Description: "Unlimited usage for established wholesalers",
			Limits: map[Resource]int64{
				ResourceProducts:     Unlimited,
				ResourceBroadcasts:   Unlimited,
				ResourceTeamMembers:  Unlimited,
				ResourceCustomGroups: Unlimited,
			},
			Public: true,
		},
	}
}

func clonePlan(p Plan) Plan {
	return Plan{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Limits:      maps.Clone(p.Limits),
		Public:      p.Public,
	}
}

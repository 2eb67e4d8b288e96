package limits

// Resource represents a countable merchant resource gated by plan.
type Resource string

// Gated resources.
const (
	ResourceProducts     Resource = "products"
	ResourceBroadcasts   Resource = "broadcasts"
	ResourceTeamMembers  Resource = "team_members"
	ResourceCustomGroups Resource = "custom_groups"
)

// Unlimited represents a resource with no cap (-1).
const Unlimited int64 = -1

// UsageInfo contains the current usage and limit for a resource.
type UsageInfo struct {
	Current int64 `json:"current"`
	Limit   int64 `json:"limit"`
}

// CheckResult describes the outcome of a single gate evaluation.
// It is constructed per request and never persisted.
type CheckResult struct {
	Allowed         bool
	Resource        Resource
	Limit           int64
	Current         int64
	PlanID          string
	UpgradeRequired bool
}

// PlanUsage aggregates plan, limits, usage, and percent-used for the
// merchant dashboard.
type PlanUsage struct {
	PlanID      string             `json:"plan"`
	Limits      map[Resource]int64 `json:"limits"`
	Usage       map[Resource]int64 `json:"usage"`
	PercentUsed map[Resource]int   `json:"percentUsed"`
}

package limits

import (
	"fmt"
	"net/http"

	"github.com/wholesalehub/platform/pkg/auth"
	"github.com/wholesalehub/platform/pkg/httpx"
)

// UpgradeURL is where denied merchants are pointed to change plans.
const UpgradeURL = "/subscription/pricing"

// Machine-readable denial codes consumed by the dashboard UI.
const (
	CodeAuthRequired       = "AUTH_REQUIRED"
	CodeFeatureCheckFailed = "FEATURE_CHECK_FAILED"
	CodeUpgradeRequired    = "SUBSCRIPTION_UPGRADE_REQUIRED"
	CodeProductLimit       = "PRODUCT_LIMIT_EXCEEDED"
	CodeBroadcastLimit     = "BROADCAST_LIMIT_EXCEEDED"
	CodeTeamLimit          = "TEAM_LIMIT_EXCEEDED"
	CodeCustomGroupLimit   = "GROUP_LIMIT_EXCEEDED"
	codeUnknownResource    = "LIMIT_EXCEEDED"
)

// denialCode maps a resource to its specific 403 code.
func denialCode(res Resource) string {
	switch res {
	case ResourceProducts:
		return CodeProductLimit
	case ResourceBroadcasts:
		return CodeBroadcastLimit
	case ResourceTeamMembers:
		return CodeTeamLimit
	case ResourceCustomGroups:
		return CodeCustomGroupLimit
	default:
		return codeUnknownResource
	}
}

type authRequiredBody struct {
	Error   string   `json:"error"`
	Feature Resource `json:"feature"`
	Code    string   `json:"code"`
}

type checkFailedBody struct {
	Error   string   `json:"error"`
	Feature Resource `json:"feature"`
	Code    string   `json:"code"`
}

type limitDenialBody struct {
	Error        string `json:"error"`
	CurrentPlan  string `json:"currentPlan"`
	CurrentCount int64  `json:"currentCount"`
	Limit        int64  `json:"limit"`
	Code         string `json:"code"`
	UpgradeURL   string `json:"upgradeUrl"`
	Message      string `json:"message"`
}

type valueDenialBody struct {
	Error          string   `json:"error"`
	Feature        Resource `json:"feature"`
	CurrentLimit   int64    `json:"currentLimit"`
	RequestedValue int64    `json:"requestedValue"`
	Code           string   `json:"code"`
	UpgradeURL     string   `json:"upgradeUrl"`
	Message        string   `json:"message"`
}

// Require gates a mutating route on the merchant's plan limit for res.
// Unauthenticated requests get 401 without touching the database; denied
// requests get a structured 403 with upgrade metadata; check failures
// surface as 500 rather than silently allowing.
func Require(svc Service, res Resource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			merchantID, ok := auth.MerchantIDFromContext(r.Context())
			if !ok {
				httpx.JSON(w, http.StatusUnauthorized, authRequiredBody{
					Error:   "Authentication required",
					Feature: res,
					Code:    CodeAuthRequired,
				})
				return
			}

			result, err := svc.Check(r.Context(), merchantID, res)
			if err != nil {
				httpx.JSON(w, http.StatusInternalServerError, checkFailedBody{
					Error:   "Unable to verify subscription limits",
					Feature: res,
					Code:    CodeFeatureCheckFailed,
				})
				return
			}

			if !result.Allowed {
				httpx.JSON(w, http.StatusForbidden, limitDenialBody{
					Error:        fmt.Sprintf("Your plan allows up to %d %s", result.Limit, res),
					CurrentPlan:  result.PlanID,
					CurrentCount: result.Current,
					Limit:        result.Limit,
					Code:         denialCode(res),
					UpgradeURL:   UpgradeURL,
					Message:      "Upgrade your subscription to increase this limit",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireValue gates a route on an explicit requested total instead of
// the persisted count, for callers asking "would N fit within the plan".
func RequireValue(svc Service, res Resource, value int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			merchantID, ok := auth.MerchantIDFromContext(r.Context())
			if !ok {
				httpx.JSON(w, http.StatusUnauthorized, authRequiredBody{
					Error:   "Authentication required",
					Feature: res,
					Code:    CodeAuthRequired,
				})
				return
			}

			result, err := svc.CheckValue(r.Context(), merchantID, res, value)
			if err != nil {
				httpx.JSON(w, http.StatusInternalServerError, checkFailedBody{
					Error:   "Unable to verify subscription limits",
					Feature: res,
					Code:    CodeFeatureCheckFailed,
				})
				return
			}

			if !result.Allowed {
				httpx.JSON(w, http.StatusForbidden, valueDenialBody{
					Error:          fmt.Sprintf("Requested %d exceeds your plan limit of %d %s", value, result.Limit, res),
					Feature:        res,
					CurrentLimit:   result.Limit,
					RequestedValue: value,
					Code:           CodeUpgradeRequired,
					UpgradeURL:     UpgradeURL,
					Message:        "Upgrade your subscription to increase this limit",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Package billing exposes plan, usage, and subscription endpoints. The
// usage report is advisory; enforcement happens at the write gates.
package billing

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wholesalehub/platform/pkg/auth"
	"github.com/wholesalehub/platform/pkg/httpx"
	"github.com/wholesalehub/platform/pkg/limits"
	"github.com/wholesalehub/platform/pkg/subscription"
)

// maxWebhookBody caps webhook payloads at 1MB.
const maxWebhookBody = 1 << 20

// Handler exposes the billing HTTP API.
type Handler struct {
	limits limits.Service
	subs   *subscription.Service
	log    *slog.Logger
}

// NewHandler creates the billing handler.
func NewHandler(limitsSvc limits.Service, subs *subscription.Service, log *slog.Logger) *Handler {
	if limitsSvc == nil {
		panic("billing: limits service is required")
	}
	if subs == nil {
		panic("billing: subscription service is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{limits: limitsSvc, subs: subs, log: log}
}

// Router mounts the billing routes. The webhook is unauthenticated; its
// signature is the credential.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/limits", h.usage)
	r.Get("/pricing", h.plans)
	r.Post("/checkout", h.checkout)
	r.Get("/portal", h.portal)
	r.Post("/webhook", h.webhook)

	return r
}

// usage reports the merchant's plan, limits, current usage, and percent
// used per resource. Counter failures degrade to zero rather than
// failing the report.
func (h *Handler) usage(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := auth.MerchantIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED")
		return
	}

	usage, err := h.limits.Usage(r.Context(), merchantID)
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to build usage report", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "Failed to build usage report", "INTERNAL_ERROR")
		return
	}
	httpx.JSON(w, http.StatusOK, usage)
}

func (h *Handler) plans(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"plans": h.limits.PublicPlans()})
}

type checkoutRequest struct {
	PlanID     string `json:"planId"`
	Email      string `json:"email"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := auth.MerchantIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED")
		return
	}

	var req checkoutRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body", "INVALID_BODY")
		return
	}
	if strings.TrimSpace(req.PlanID) == "" {
		httpx.Error(w, http.StatusUnprocessableEntity, "planId is required", "VALIDATION_FAILED")
		return
	}

	session, err := h.subs.CreateCheckoutSession(r.Context(), merchantID, req.PlanID, req.Email, req.SuccessURL, req.CancelURL)
	if err != nil {
		if errors.Is(err, subscription.ErrUnknownPlan) {
			httpx.Error(w, http.StatusUnprocessableEntity, "Unknown plan", "UNKNOWN_PLAN")
			return
		}
		h.log.ErrorContext(r.Context(), "failed to create checkout session", "error", err)
		httpx.Error(w, http.StatusBadGateway, "Billing provider is unavailable", "PROVIDER_ERROR")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"checkoutUrl": session.URL})
}

func (h *Handler) portal(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := auth.MerchantIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED")
		return
	}

	url, err := h.subs.GetCustomerPortalURL(r.Context(), merchantID)
	if err != nil {
		if errors.Is(err, subscription.ErrSubscriptionNotFound) {
			httpx.Error(w, http.StatusNotFound, "No subscription on file", "NO_SUBSCRIPTION")
			return
		}
		h.log.ErrorContext(r.Context(), "failed to create portal session", "error", err)
		httpx.Error(w, http.StatusBadGateway, "Billing provider is unavailable", "PROVIDER_ERROR")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"portalUrl": url})
}

func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Failed to read payload", "INVALID_BODY")
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if err := h.subs.HandleWebhook(r.Context(), payload, signature); err != nil {
		if errors.Is(err, subscription.ErrWebhookVerificationFailed) {
			httpx.Error(w, http.StatusBadRequest, "Signature verification failed", "INVALID_SIGNATURE")
			return
		}
		h.log.ErrorContext(r.Context(), "failed to process billing webhook", "error", err)
		// The provider retries non-2xx deliveries.
		httpx.Error(w, http.StatusInternalServerError, "Failed to process event", "INTERNAL_ERROR")
		return
	}
	w.WriteHeader(http.StatusOK)
}

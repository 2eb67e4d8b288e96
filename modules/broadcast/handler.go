package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wholesalehub/platform/pkg/auth"
	"github.com/wholesalehub/platform/pkg/httpx"
	"github.com/wholesalehub/platform/pkg/limits"
)

// RecipientSource resolves the phone numbers a broadcast targets. The
// customer module provides the implementation; groupID nil means the
// merchant's entire customer base.
type RecipientSource interface {
	ListPhones(ctx context.Context, merchantID uuid.UUID, groupID *uuid.UUID) ([]string, error)
}

// Handler exposes the broadcast HTTP API.
type Handler struct {
	repo       Repository
	sender     Sender
	recipients RecipientSource
	limits     limits.Service
	log        *slog.Logger
}

// NewHandler creates the broadcast handler.
func NewHandler(repo Repository, sender Sender, recipients RecipientSource, limitsSvc limits.Service, log *slog.Logger) *Handler {
	if repo == nil {
		panic("broadcast: repository is required")
	}
	if sender == nil {
		panic("broadcast: sender is required")
	}
	if recipients == nil {
		panic("broadcast: recipient source is required")
	}
	if limitsSvc == nil {
		panic("broadcast: limits service is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{repo: repo, sender: sender, recipients: recipients, limits: limitsSvc, log: log}
}

// Router mounts the broadcast routes. Sending passes through the monthly
// broadcast gate; history does not.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.list)
	r.With(limits.Require(h.limits, limits.ResourceBroadcasts)).Post("/", h.send)

	return r
}

type sendRequest struct {
	Channel Channel    `json:"channel"`
	Message string     `json:"message"`
	GroupID *uuid.UUID `json:"groupId"`
}

func (req *sendRequest) validate() error {
	switch req.Channel {
	case ChannelWhatsApp, ChannelSMS:
	default:
		return errors.New("channel must be whatsapp or sms")
	}
	if strings.TrimSpace(req.Message) == "" {
		return errors.New("message is required")
	}
	return nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := auth.MerchantIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED")
		return
	}

	broadcasts, err := h.repo.ListByMerchant(r.Context(), merchantID)
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to list broadcasts", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "Failed to list broadcasts", "INTERNAL_ERROR")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"broadcasts": broadcasts})
}

// send creates the broadcast row first so the attempt counts against the
// monthly quota, then delivers to each recipient. Per-recipient failures
// are logged and skipped; the broadcast fails only when nobody got it.
func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	merchantID, _ := auth.MerchantIDFromContext(r.Context())

	var req sendRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body", "INVALID_BODY")
		return
	}
	if err := req.validate(); err != nil {
		httpx.Error(w, http.StatusUnprocessableEntity, err.Error(), "VALIDATION_FAILED")
		return
	}

	phones, err := h.recipients.ListPhones(r.Context(), merchantID, req.GroupID)
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to resolve recipients", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "Failed to resolve recipients", "INTERNAL_ERROR")
		return
	}
	if len(phones) == 0 {
		httpx.Error(w, http.StatusUnprocessableEntity, "No recipients match this broadcast", "NO_RECIPIENTS")
		return
	}

	b := &Broadcast{
		ID:         uuid.New(),
		MerchantID: merchantID,
		Channel:    req.Channel,
		Message:    req.Message,
		GroupID:    req.GroupID,
		Status:     StatusQueued,
	}
	if err := h.repo.Create(r.Context(), b); err != nil {
		h.log.ErrorContext(r.Context(), "failed to create broadcast", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "Failed to create broadcast", "INTERNAL_ERROR")
		return
	}

	delivered := 0
	for _, phone := range phones {
		if err := h.sender.Send(r.Context(), b.Channel, phone, b.Message); err != nil {
			h.log.WarnContext(r.Context(), "failed to deliver broadcast message",
				"broadcast_id", b.ID, "error", err)
			continue
		}
		delivered++
	}

	b.RecipientCount = delivered
	b.Status = StatusSent
	if delivered == 0 {
		b.Status = StatusFailed
	}
	if err := h.repo.SetStatus(r.Context(), b.ID, b.Status, delivered); err != nil {
		h.log.ErrorContext(r.Context(), "failed to update broadcast status", "error", err)
	}

	status := http.StatusCreated
	if b.Status == StatusFailed {
		status = http.StatusBadGateway
	}
	httpx.JSON(w, status, b)
}

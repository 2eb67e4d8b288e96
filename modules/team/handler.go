package team

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wholesalehub/platform/pkg/auth"
	"github.com/wholesalehub/platform/pkg/email"
	"github.com/wholesalehub/platform/pkg/httpx"
	"github.com/wholesalehub/platform/pkg/limits"
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Handler exposes the team HTTP API.
type Handler struct {
	repo    Repository
	mailer  email.EmailSender
	limits  limits.Service
	baseURL string
	log     *slog.Logger
}

// NewHandler creates the team handler. baseURL is the public app URL
// used to build invitation links.
func NewHandler(repo Repository, mailer email.EmailSender, limitsSvc limits.Service, baseURL string, log *slog.Logger) *Handler {
	if repo == nil {
		panic("team: repository is required")
	}
	if mailer == nil {
		panic("team: mailer is required")
	}
	if limitsSvc == nil {
		panic("team: limits service is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		repo:    repo,
		mailer:  mailer,
		limits:  limitsSvc,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		log:     log,
	}
}

// Router mounts the team routes. Inviting passes through the seat gate;
// accepting is public (the token is the credential).
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.list)
	r.With(limits.Require(h.limits, limits.ResourceTeamMembers)).Post("/invites", h.invite)
	r.Post("/invites/accept", h.accept)
	r.Delete("/{memberID}", h.remove)

	return r
}

type inviteRequest struct {
	Email string `json:"email"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := auth.MerchantIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED")
		return
	}

	members, err := h.repo.ListByMerchant(r.Context(), merchantID)
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to list team members", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "Failed to list team members", "INTERNAL_ERROR")
		return
	}

	seats, err := h.repo.CountActive(r.Context(), merchantID)
	if err != nil {
		h.log.WarnContext(r.Context(), "failed to count seats", "error", err)
		seats = 0
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"members": members, "seatsUsed": seats})
}

func (h *Handler) invite(w http.ResponseWriter, r *http.Request) {
	merchantID, _ := auth.MerchantIDFromContext(r.Context())

	var req inviteRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body", "INVALID_BODY")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if !emailRegex.MatchString(req.Email) {
		httpx.Error(w, http.StatusUnprocessableEntity, "A valid email is required", "VALIDATION_FAILED")
		return
	}

	member := &Member{
		ID:          uuid.New(),
		MerchantID:  merchantID,
		Email:       req.Email,
		Role:        RoleStaff,
		Status:      StatusInvited,
		InviteToken: uuid.NewString(),
	}
	if err := h.repo.CreateInvite(r.Context(), member); err != nil {
		if errors.Is(err, ErrAlreadyInvited) {
			httpx.Error(w, http.StatusConflict, "This email is already on the team", "ALREADY_INVITED")
			return
		}
		h.log.ErrorContext(r.Context(), "failed to create invite", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "Failed to create invite", "INTERNAL_ERROR")
		return
	}

	inviteURL := fmt.Sprintf("%s/team/invites/accept?token=%s", h.baseURL, member.InviteToken)
	err := h.mailer.SendEmail(r.Context(), email.SendEmailParams{
		SendTo:  member.Email,
		Subject: "You have been invited to join a team",
		BodyHTML: fmt.Sprintf(
			`<p>You have been invited to join a wholesale team.</p><p><a href="%s">Accept the invitation</a></p>`,
			inviteURL),
		Tag: "team-invite",
	})
	if err != nil {
		// The seat is reserved either way; the merchant can re-send.
		h.log.WarnContext(r.Context(), "failed to send invite email",
			"member_id", member.ID, "error", err)
	}

	httpx.JSON(w, http.StatusCreated, member)
}

type acceptRequest struct {
	Token string `json:"token"`
}

func (h *Handler) accept(w http.ResponseWriter, r *http.Request) {
	var req acceptRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body", "INVALID_BODY")
		return
	}
	if req.Token == "" {
		httpx.Error(w, http.StatusUnprocessableEntity, "token is required", "VALIDATION_FAILED")
		return
	}

	member, err := h.repo.GetByInviteToken(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, ErrInviteNotFound) {
			httpx.Error(w, http.StatusNotFound, "Invitation not found", "INVITE_NOT_FOUND")
			return
		}
		h.log.ErrorContext(r.Context(), "failed to look up invite", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "Failed to accept invite", "INTERNAL_ERROR")
		return
	}

	if err := h.repo.Accept(r.Context(), member.ID, time.Now().UTC()); err != nil {
		if errors.Is(err, ErrAlreadyAccepted) {
			httpx.Error(w, http.StatusConflict, "Invitation was already accepted", "ALREADY_ACCEPTED")
			return
		}
		h.log.ErrorContext(r.Context(), "failed to accept invite", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "Failed to accept invite", "INTERNAL_ERROR")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(StatusAccepted)})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := auth.MerchantIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED")
		return
	}
	memberID, err := uuid.Parse(chi.URLParam(r, "memberID"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid member ID", "INVALID_ID")
		return
	}

	if err := h.repo.Delete(r.Context(), merchantID, memberID); err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			httpx.Error(w, http.StatusNotFound, "Member not found", "NOT_FOUND")
			return
		}
		h.log.ErrorContext(r.Context(), "failed to remove member", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "Failed to remove member", "INTERNAL_ERROR")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package customer

import (
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

// Handler exposes the customer and group HTTP API.
type Handler struct {
	repo   Repository
	limits limits.Service
	log    *slog.Logger
}

// NewHandler creates the customer handler.
func NewHandler(repo Repository, limitsSvc limits.Service, log *slog.Logger) *Handler {
	if repo == nil {
		panic("customer: repository is required")
	}
	if limitsSvc == nil {
		panic("customer: limits service is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{repo: repo, limits: limitsSvc, log: log}
}

// Router mounts customer and group routes. Only group creation is
// metered; the customer book itself is not a limited resource.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.listCustomers)
	r.Post("/", h.createCustomer)
	r.Delete("/{customerID}", h.deleteCustomer)

	r.Route("/groups", func(r chi.Router) {
		r.Get("/", h.listGroups)
		r.With(limits.Require(h.limits, limits.ResourceCustomGroups)).Post("/", h.createGroup)
		r.Delete("/{groupID}", h.deleteGroup)
	})

	return r
}

type customerRequest struct {
	Name    string     `json:"name"`
	Phone   string     `json:"phone"`
	Email   string     `json:"email"`
	GroupID *uuid.UUID `json:"groupId"`
}

func (req *customerRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("name is required")
	}
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return errors.New("phone is required")
	}
	if !strings.HasPrefix(phone, "+") {
		return errors.New("phone must be in E.164 format")
	}
	req.Phone = phone
	return nil
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := auth.MerchantIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED")
		return
	}

	customers, err := h.repo.ListCustomers(r.Context(), merchantID)
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to list customers", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "Failed to list customers", "INTERNAL_ERROR")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"customers": customers})
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := auth.MerchantIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED")
		return
	}

	var req customerRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body", "INVALID_BODY")
		return
	}
	if err := req.validate(); err != nil {
		httpx.Error(w, http.StatusUnprocessableEntity, err.Error(), "VALIDATION_FAILED")
		return
	}

	c := &Customer{
		ID:         uuid.New(),
		MerchantID: merchantID,
		Name:       req.Name,
		Phone:      req.Phone,
		Email:      req.Email,
		GroupID:    req.GroupID,
	}
	if err := h.repo.CreateCustomer(r.Context(), c); err != nil {
		switch {
		case errors.Is(err, ErrDuplicatePhone):
			httpx.Error(w, http.StatusConflict, "A customer with this phone already exists", "DUPLICATE_PHONE")
		case errors.Is(err, ErrGroupNotFound):
			httpx.Error(w, http.StatusUnprocessableEntity, "Group does not exist", "GROUP_NOT_FOUND")
		default:
			h.log.ErrorContext(r.Context(), "failed to create customer", "error", err)
			httpx.Error(w, http.StatusInternalServerError, "Failed to create customer", "INTERNAL_ERROR")
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := auth.MerchantIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED")
		return
	}
	customerID, err := uuid.Parse(chi.URLParam(r, "customerID"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid customer ID", "INVALID_ID")
		return
	}

	if err := h.repo.DeleteCustomer(r.Context(), merchantID, customerID); err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			httpx.Error(w, http.StatusNotFound, "Customer not found", "NOT_FOUND")
			return
		}
		h.log.ErrorContext(r.Context(), "failed to delete customer", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "Failed to delete customer", "INTERNAL_ERROR")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type groupRequest struct {
	Name string `json:"name"`
}

func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := auth.MerchantIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED")
		return
	}

	groups, err := h.repo.ListGroups(r.Context(), merchantID)
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to list groups", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "Failed to list groups", "INTERNAL_ERROR")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (h *Handler) createGroup(w http.ResponseWriter, r *http.Request) {
	merchantID, _ := auth.MerchantIDFromContext(r.Context())

	var req groupRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body", "INVALID_BODY")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httpx.Error(w, http.StatusUnprocessableEntity, "name is required", "VALIDATION_FAILED")
		return
	}

	g := &Group{
		ID:         uuid.New(),
		MerchantID: merchantID,
		Name:       strings.TrimSpace(req.Name),
	}
	if err := h.repo.CreateGroup(r.Context(), g); err != nil {
		if errors.Is(err, ErrDuplicateGroup) {
			httpx.Error(w, http.StatusConflict, "A group with this name already exists", "DUPLICATE_GROUP")
			return
		}
		h.log.ErrorContext(r.Context(), "failed to create group", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "Failed to create group", "INTERNAL_ERROR")
		return
	}
	httpx.JSON(w, http.StatusCreated, g)
}

func (h *Handler) deleteGroup(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := auth.MerchantIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED")
		return
	}
	groupID, err := uuid.Parse(chi.URLParam(r, "groupID"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid group ID", "INVALID_ID")
		return
	}

	if err := h.repo.DeleteGroup(r.Context(), merchantID, groupID); err != nil {
		switch {
		case errors.Is(err, ErrGroupNotFound):
			httpx.Error(w, http.StatusNotFound, "Group not found", "NOT_FOUND")
		case errors.Is(err, ErrGroupNotEmpty):
			httpx.Error(w, http.StatusConflict, "Group still has customers", "GROUP_NOT_EMPTY")
		default:
			h.log.ErrorContext(r.Context(), "failed to delete group", "error", err)
			httpx.Error(w, http.StatusInternalServerError, "Failed to delete group", "INTERNAL_ERROR")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package catalog

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wholesalehub/platform/pkg/auth"
	"github.com/wholesalehub/platform/pkg/file"
	"github.com/wholesalehub/platform/pkg/httpx"
	"github.com/wholesalehub/platform/pkg/limits"
	"github.com/wholesalehub/platform/pkg/respcache"
)

// maxImageSize caps product image uploads at 5MB.
const maxImageSize = 5 << 20

// Handler exposes the product catalog HTTP API.
type Handler struct {
	repo    Repository
	storage file.Storage
	limits  limits.Service
	cache   *respcache.Cache
	log     *slog.Logger
}

// NewHandler creates the catalog handler. Cache may be nil in tests.
func NewHandler(repo Repository, storage file.Storage, limitsSvc limits.Service, cache *respcache.Cache, log *slog.Logger) *Handler {
	if repo == nil {
		panic("catalog: repository is required")
	}
	if limitsSvc == nil {
		panic("catalog: limits service is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{repo: repo, storage: storage, limits: limitsSvc, cache: cache, log: log}
}

// Router mounts the catalog routes. Creation passes through the product
// limit gate; reads and mutations of existing products do not.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.list)
	r.With(limits.Require(h.limits, limits.ResourceProducts)).Post("/", h.create)

	r.Route("/{productID}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Put("/", h.update)
		r.Delete("/", h.delete)
		r.Post("/image", h.uploadImage)
	})

	return r
}

type productRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	SKU         string     `json:"sku"`
	PriceCents  int64      `json:"priceCents"`
	Currency    string     `json:"currency"`
	Stock       int64      `json:"stock"`
	GroupID     *uuid.UUID `json:"groupId"`
}

func (req *productRequest) validate() error {
	if req.Name == "" {
		return errors.New("name is required")
	}
	if req.PriceCents < 0 {
		return errors.New("priceCents must not be negative")
	}
	if req.Stock < 0 {
		return errors.New("stock must not be negative")
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}
	return nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := auth.MerchantIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED")
		return
	}

	products, err := h.repo.ListByMerchant(r.Context(), merchantID)
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to list products", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "Failed to list products", "INTERNAL_ERROR")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	merchantID, _ := auth.MerchantIDFromContext(r.Context())

	var req productRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body", "INVALID_BODY")
		return
	}
	if err := req.validate(); err != nil {
		httpx.Error(w, http.StatusUnprocessableEntity, err.Error(), "VALIDATION_FAILED")
		return
	}

	product := &Product{
		ID:          uuid.New(),
		MerchantID:  merchantID,
		Name:        req.Name,
		Description: req.Description,
		SKU:         req.SKU,
		PriceCents:  req.PriceCents,
		Currency:    req.Currency,
		Stock:       req.Stock,
		GroupID:     req.GroupID,
	}
	if err := h.repo.Create(r.Context(), product); err != nil {
		if errors.Is(err, ErrDuplicateSKU) {
			httpx.Error(w, http.StatusConflict, "A product with this SKU already exists", "DUPLICATE_SKU")
			return
		}
		h.log.ErrorContext(r.Context(), "failed to create product", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "Failed to create product", "INTERNAL_ERROR")
		return
	}

	h.invalidate(r, merchantID)
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := auth.MerchantIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED")
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid product ID", "INVALID_ID")
		return
	}

	product, err := h.repo.GetByID(r.Context(), merchantID, productID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			httpx.Error(w, http.StatusNotFound, "Product not found", "NOT_FOUND")
			return
		}
		h.log.ErrorContext(r.Context(), "failed to load product", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "Failed to load product", "INTERNAL_ERROR")
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := auth.MerchantIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED")
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid product ID", "INVALID_ID")
		return
	}

	var req productRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body", "INVALID_BODY")
		return
	}
	if err := req.validate(); err != nil {
		httpx.Error(w, http.StatusUnprocessableEntity, err.Error(), "VALIDATION_FAILED")
		return
	}

	product := &Product{
		ID:          productID,
		MerchantID:  merchantID,
		Name:        req.Name,
		Description: req.Description,
		SKU:         req.SKU,
		PriceCents:  req.PriceCents,
		Currency:    req.Currency,
		Stock:       req.Stock,
		GroupID:     req.GroupID,
	}
	if err := h.repo.Update(r.Context(), product); err != nil {
		switch {
		case errors.Is(err, ErrProductNotFound):
			httpx.Error(w, http.StatusNotFound, "Product not found", "NOT_FOUND")
		case errors.Is(err, ErrDuplicateSKU):
			httpx.Error(w, http.StatusConflict, "A product with this SKU already exists", "DUPLICATE_SKU")
		default:
			h.log.ErrorContext(r.Context(), "failed to update product", "error", err)
			httpx.Error(w, http.StatusInternalServerError, "Failed to update product", "INTERNAL_ERROR")
		}
		return
	}

	h.invalidate(r, merchantID)
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := auth.MerchantIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED")
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid product ID", "INVALID_ID")
		return
	}

	if err := h.repo.Delete(r.Context(), merchantID, productID); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			httpx.Error(w, http.StatusNotFound, "Product not found", "NOT_FOUND")
			return
		}
		h.log.ErrorContext(r.Context(), "failed to delete product", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "Failed to delete product", "INTERNAL_ERROR")
		return
	}

	h.invalidate(r, merchantID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) uploadImage(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := auth.MerchantIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED")
		return
	}
	if h.storage == nil {
		httpx.Error(w, http.StatusNotImplemented, "Image uploads are not configured", "UPLOADS_DISABLED")
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid product ID", "INVALID_ID")
		return
	}

	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid multipart form", "INVALID_BODY")
		return
	}
	_, fh, err := r.FormFile("image")
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Missing image file", "INVALID_BODY")
		return
	}

	if err := file.ValidateSize(fh, maxImageSize); err != nil {
		httpx.Error(w, http.StatusRequestEntityTooLarge, "Image exceeds the 5MB limit", "FILE_TOO_LARGE")
		return
	}
	if !file.IsImage(fh) {
		httpx.Error(w, http.StatusUnsupportedMediaType, "File is not a supported image type", "UNSUPPORTED_MEDIA_TYPE")
		return
	}

	path := "merchants/" + merchantID.String() + "/products/" + productID.String() + "/" + file.SanitizeFilename(fh.Filename)
	saved, err := h.storage.Save(r.Context(), fh, path)
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to store product image", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "Failed to store image", "INTERNAL_ERROR")
		return
	}

	if err := h.repo.SetImageURL(r.Context(), merchantID, productID, saved.URL); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			_ = h.storage.Delete(r.Context(), saved.RelativePath)
			httpx.Error(w, http.StatusNotFound, "Product not found", "NOT_FOUND")
			return
		}
		h.log.ErrorContext(r.Context(), "failed to save image url", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "Failed to store image", "INTERNAL_ERROR")
		return
	}

	h.invalidate(r, merchantID)
	httpx.JSON(w, http.StatusOK, map[string]string{"imageUrl": saved.URL})
}

func (h *Handler) invalidate(r *http.Request, merchantID uuid.UUID) {
	if h.cache != nil {
		h.cache.Invalidate(r.Context(), merchantID.String())
	}
}

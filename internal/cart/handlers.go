package cart

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/lineup-studio/backend-lineup/internal/common"
	"github.com/lineup-studio/backend-lineup/internal/obs"
	"github.com/lineup-studio/backend-lineup/internal/pricing"
	"github.com/lineup-studio/backend-lineup/internal/promo"
)

// Handler wires the cart service to HTTP.
type Handler struct {
	Svc      *Service
	Promo    *promo.Service
	Validate *validator.Validate
	Currency string
}

type addItemPayload struct {
	PhotoID     string `json:"photoId" validate:"required"`
	Kind        string `json:"kind" validate:"required"`
	DisplayName string `json:"displayName"`
	PreviewURL  string `json:"previewUrl" validate:"omitempty,url"`
	Delivery    string `json:"delivery" validate:"omitempty,oneof=pickup delivery"`
}

// Create opens a new cart for the current session. Clients migrating off
// the old storefront may post their browser-held cart in the legacy shape
// and get it back as a server cart.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload struct {
		Items []legacyItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}

	var c Cart
	var err error
	if len(payload.Items) > 0 {
		c, err = h.Svc.Import(r.Context(), payload.Items)
	} else {
		c, err = h.Svc.Create(r.Context())
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": h.view(c)})
}

// Get returns the cart contents and the derived pricing view.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	c, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(c)})
}

// AddItem adds a photo or print line item with a freshly frozen price.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload addItemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
	}
	c, err := h.Svc.AddItem(r.Context(), chi.URLParam(r, "id"), AddInput{
		PhotoID:     strings.TrimSpace(payload.PhotoID),
		Kind:        pricing.ProductKind(payload.Kind),
		DisplayName: payload.DisplayName,
		PreviewURL:  payload.PreviewURL,
		Delivery:    pricing.DeliveryOption(payload.Delivery),
	})
	if err != nil {
		countItemAdded(payload.Kind, addResult(err))
		h.writeError(w, err)
		return
	}
	countItemAdded(payload.Kind, "added")
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(c)})
}

// AddSessionPack adds the unlimited-digital pack. A repeat call responds
// with PACK_ALREADY_OWNED and the unchanged cart.
func (h *Handler) AddSessionPack(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	c, err := h.Svc.AddSessionPack(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrPackAlreadyOwned) {
			countItemAdded(string(pricing.KindSessionPack), "already_owned")
			common.JSON(w, http.StatusOK, map[string]any{
				"data":   h.view(c),
				"notice": "PACK_ALREADY_OWNED",
			})
			return
		}
		h.writeError(w, err)
		return
	}
	countItemAdded(string(pricing.KindSessionPack), "added")
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(c)})
}

// RemoveItem deletes the item matching photo and kind.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	kind := pricing.ProductKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown product kind", nil)
		return
	}
	c, err := h.Svc.RemoveItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "photoId"), kind)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(c)})
}

// Clear empties the cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	c, err := h.Svc.Clear(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.view(c)})
}

// PreviewPromo validates a discount code against the cart's current total
// without committing anything. Discount evaluation lives entirely outside
// the cart core; only the pre-discount total crosses the boundary.
func (h *Handler) PreviewPromo(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil || h.Promo == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promo service not configured", nil)
		return
	}
	var payload struct {
		Code string `json:"code" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	payload.Code = strings.TrimSpace(payload.Code)
	if payload.Code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	c, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	result, err := h.Promo.Validate(r.Context(), payload.Code, c.TotalPrice())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

func (h *Handler) view(c Cart) map[string]any {
	summary := c.DynamicPricing(h.Svc.Engine)
	items := c.Items
	if items == nil {
		items = []Item{}
	}
	return map[string]any{
		"id":        c.ID,
		"items":     items,
		"itemCount": c.ItemCount(),
		"pricing": map[string]any{
			"total":        summary.Total,
			"totalSavings": summary.Savings,
		},
		"currency":  h.Currency,
		"updatedAt": c.UpdatedAt,
	}
}

func countItemAdded(kind, result string) {
	if obs.CartItemsAdded != nil {
		obs.CartItemsAdded.WithLabelValues(kind, result).Inc()
	}
}

func addResult(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateItem):
		return "duplicate"
	case errors.Is(err, ErrNotFound):
		return "cart_not_found"
	default:
		return "error"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		code := appErr.Code
		if code == "" {
			code = "BAD_REQUEST"
		}
		common.JSONError(w, status, code, appErr.Message, appErr.Details)
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrDuplicateItem):
		common.JSONError(w, http.StatusConflict, "DUPLICATE_ITEM", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput), errors.Is(err, pricing.ErrUnknownKind), errors.Is(err, pricing.ErrInvalidCount), errors.Is(err, ErrInvalidItem):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}

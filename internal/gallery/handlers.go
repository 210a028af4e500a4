package gallery

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lineup-studio/backend-lineup/internal/common"
	"github.com/lineup-studio/backend-lineup/internal/pricing"
)

// Handler exposes public gallery endpoints.
type Handler struct {
	Svc      *Service
	Catalog  pricing.Catalog
	Currency string
}

// Sessions handles GET /api/v1/sessions.
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "gallery service not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 24)
	result, err := h.Svc.ListSessions(r.Context(), page, perPage)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(result.Total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       result.Items,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(result.Total)},
	})
}

// SessionDetail handles GET /api/v1/sessions/{slug}.
func (h *Handler) SessionDetail(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "gallery service not configured", nil)
		return
	}
	sess, err := h.Svc.SessionBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess})
}

// SessionPhotos handles GET /api/v1/sessions/{slug}/photos.
func (h *Handler) SessionPhotos(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "gallery service not configured", nil)
		return
	}
	photos, err := h.Svc.SessionPhotos(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": photos})
}

// PriceList handles GET /api/v1/prices. It publishes the tier schedules,
// the flat boutique list, the pack price, and the per-format delivery fees
// so the storefront can render decreasing prices without a round trip.
func (h *Handler) PriceList(w http.ResponseWriter, r *http.Request) {
	cat := h.Catalog
	if len(cat.Tiers) == 0 {
		cat = pricing.DefaultCatalog()
	}

	tiers := make(map[string][]pricing.Money, len(cat.Tiers))
	for kind, schedule := range cat.Tiers {
		tiers[string(kind)] = schedule[:]
	}
	boutique := make(map[string]pricing.Money, len(cat.Boutique))
	for kind, price := range cat.Boutique {
		boutique[string(kind)] = price
	}
	delivery := make(map[string]pricing.Money, len(cat.Shipping))
	for kind, fee := range cat.Shipping {
		delivery[string(kind)] = fee
	}

	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"currency":     h.Currency,
		"tiers":        tiers,
		"boutique":     boutique,
		"sessionPack":  cat.Pack,
		"deliveryFees": delivery,
	}})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "session not found", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}

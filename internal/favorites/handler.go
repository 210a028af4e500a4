package favorites

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lineup-studio/backend-lineup/internal/common"
)

type Handler struct {
	Svc *Service
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := common.UserID(ctx)
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	favs, err := h.Svc.List(ctx, userID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list favorites", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": favs})
}

func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := common.UserID(ctx)
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	var req struct {
		PhotoID string `json:"photoId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PhotoID == "" {
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "photoId is required", nil)
		return
	}

	exists, err := h.Svc.Check(ctx, userID, req.PhotoID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to check favorite", nil)
		return
	}
	if exists {
		err = h.Svc.Remove(ctx, userID, req.PhotoID)
	} else {
		err = h.Svc.Add(ctx, userID, req.PhotoID)
	}
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to toggle favorite", nil)
		return
	}

	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]bool{"favorited": !exists}})
}

func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	photoID := chi.URLParam(r, "photoId")
	userID, ok := common.UserID(ctx)
	if !ok {
		// anonymous visitors simply have no favorites
		common.JSON(w, http.StatusOK, map[string]any{"data": map[string]bool{"favorited": false}})
		return
	}

	exists, err := h.Svc.Check(ctx, userID, photoID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to check favorite", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]bool{"favorited": exists}})
}

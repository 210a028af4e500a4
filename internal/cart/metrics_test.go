package cart

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/lineup-studio/backend-lineup/internal/obs"
)

func addItemRequest(t *testing.T, cartID, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/carts/"+cartID+"/items", strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", cartID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestAddItemOutcomesAreCounted(t *testing.T) {
	obs.MustRegisterDomainMetrics("lineup", prometheus.NewRegistry())

	svc := newImportService(t)
	c, err := svc.Create(context.Background())
	require.NoError(t, err)
	h := &Handler{Svc: svc, Currency: "EUR"}

	body := `{"photoId":"p1","kind":"digital"}`
	rec := httptest.NewRecorder()
	h.AddItem(rec, addItemRequest(t, c.ID, body))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.AddItem(rec, addItemRequest(t, c.ID, body))
	require.Equal(t, http.StatusConflict, rec.Code)

	require.Equal(t, 1.0, testutil.ToFloat64(obs.CartItemsAdded.WithLabelValues("digital", "added")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.CartItemsAdded.WithLabelValues("digital", "duplicate")))
}

package checkout_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	validator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/lineup-studio/backend-lineup/internal/cart"
	"github.com/lineup-studio/backend-lineup/internal/checkout"
	"github.com/lineup-studio/backend-lineup/internal/common"
	"github.com/lineup-studio/backend-lineup/internal/pricing"
)

func newCartService(t *testing.T) *cart.Service {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &cart.Service{
		Store:  &cart.Store{R: client, TTL: time.Hour},
		Engine: pricing.NewEngine(pricing.DefaultCatalog()),
	}
}

func TestCreateRejectsUnknownCart(t *testing.T) {
	svc := &checkout.Service{Pool: &pgxpool.Pool{}, Carts: newCartService(t)}

	_, err := svc.Create(context.Background(), nil, checkout.Input{
		CartID: "nope",
		Email:  "surfer@example.com",
	})

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "CART_NOT_FOUND", appErr.Code)
	require.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
}

func TestCreateRejectsEmptyCart(t *testing.T) {
	carts := newCartService(t)
	c, err := carts.Create(context.Background())
	require.NoError(t, err)

	svc := &checkout.Service{Pool: &pgxpool.Pool{}, Carts: carts}
	_, err = svc.Create(context.Background(), nil, checkout.Input{
		CartID: c.ID,
		Email:  "surfer@example.com",
	})

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "CART_EMPTY", appErr.Code)
}

func TestCreateRequiresCartAndEmail(t *testing.T) {
	svc := &checkout.Service{Pool: &pgxpool.Pool{}, Carts: newCartService(t)}

	_, err := svc.Create(context.Background(), nil, checkout.Input{Email: "surfer@example.com"})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "BAD_REQUEST", appErr.Code)

	_, err = svc.Create(context.Background(), nil, checkout.Input{CartID: "c1"})
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "BAD_REQUEST", appErr.Code)
}

func TestHandlerValidatesPayload(t *testing.T) {
	h := &checkout.Handler{
		Svc:      &checkout.Service{Pool: &pgxpool.Pool{}, Carts: newCartService(t)},
		Validate: validator.New(),
	}

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"cartId":`},
		{"missing email", `{"cartId":"c1"}`},
		{"bad email", `{"cartId":"c1","email":"not-an-email"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewBufferString(tc.body))
			rec := httptest.NewRecorder()
			h.Create(rec, req)
			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

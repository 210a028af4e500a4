package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lineup-studio/backend-lineup/internal/cart"
	"github.com/lineup-studio/backend-lineup/internal/common"
	"github.com/lineup-studio/backend-lineup/internal/events"
	"github.com/lineup-studio/backend-lineup/internal/fulfillment"
	"github.com/lineup-studio/backend-lineup/internal/obs"
	"github.com/lineup-studio/backend-lineup/internal/payment"
	"github.com/lineup-studio/backend-lineup/internal/promo"
)

type Input struct {
	CartID    string  `json:"cartId" validate:"required"`
	Email     string  `json:"email" validate:"required,email"`
	PromoCode *string `json:"promoCode" validate:"omitempty,min=1,max=64"`
}

type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Delivery int64 `json:"delivery"`
	Discount int64 `json:"discount"`
	Total    int64 `json:"total"`
}

type Output struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Totals  Totals `json:"totals"`
	Payment struct {
		Provider    string `json:"provider,omitempty"`
		RedirectURL string `json:"redirectUrl,omitempty"`
	} `json:"payment"`
}

// Service serialises a Redis cart's frozen lines into a durable order. The
// cart's unit prices and delivery fees are written verbatim; nothing is
// re-priced here.
type Service struct {
	Pool     *pgxpool.Pool
	Carts    *cart.Service
	Promo    *promo.Service
	Provider payment.Provider
	Tasks    *asynq.Client
	Events   *events.Bus
	Currency string
}

const insertOrderSQL = `
INSERT INTO orders (id, user_id, cart_id, status, currency,
                    subtotal_cents, delivery_cents, discount_cents, total_cents,
                    promo_code, customer_email)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

const insertOrderItemSQL = `
INSERT INTO order_items (order_id, photo_id, kind, display_name, preview_url,
                         unit_price_cents, delivery_option, delivery_fee_cents, pack_granted)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

const insertPaymentSQL = `
INSERT INTO payments (id, order_id, provider, amount_cents, status)
VALUES ($1, $2, $3, $4, $5)`

const attachIntentSQL = `
UPDATE payments SET provider = $2, token = $3, redirect_url = $4, updated_at = now()
WHERE id = $1`

// Create places an order from the cart's current state.
func (s *Service) Create(ctx context.Context, userID *string, in Input) (Output, error) {
	if s == nil || s.Pool == nil || s.Carts == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	if strings.TrimSpace(in.CartID) == "" {
		return Output{}, common.NewAppError("BAD_REQUEST", "cartId is required", http.StatusBadRequest, nil)
	}
	if strings.TrimSpace(in.Email) == "" {
		return Output{}, common.NewAppError("BAD_REQUEST", "email is required", http.StatusBadRequest, nil)
	}

	c, err := s.Carts.Get(ctx, in.CartID)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return Output{}, common.NewAppError("CART_NOT_FOUND", "cart not found or expired", http.StatusNotFound, err)
		}
		return Output{}, err
	}
	if len(c.Items) == 0 {
		return Output{}, common.NewAppError("CART_EMPTY", "cart has no items", http.StatusBadRequest, nil)
	}

	var totals Totals
	for _, it := range c.Items {
		totals.Subtotal += int64(it.UnitPrice)
		totals.Delivery += int64(it.DeliveryFee)
	}
	totals.Total = totals.Subtotal + totals.Delivery

	var promoResult promo.Result
	promoCode := ""
	if in.PromoCode != nil && strings.TrimSpace(*in.PromoCode) != "" {
		if s.Promo == nil {
			return Output{}, common.NewAppError("PROMO_UNAVAILABLE", "promo codes are not enabled", http.StatusBadRequest, nil)
		}
		promoCode = strings.ToUpper(strings.TrimSpace(*in.PromoCode))
		promoResult, err = s.Promo.Validate(ctx, promoCode, totals.Total)
		if err != nil {
			return Output{}, err
		}
		if !promoResult.Valid {
			return Output{}, common.NewAppError("PROMO_INVALID", "promo code cannot be applied", http.StatusUnprocessableEntity, nil)
		}
		totals.Discount = int64(promoResult.DiscountAmount)
		totals.Total -= totals.Discount
		if totals.Total < 0 {
			totals.Total = 0
		}
	}

	orderID := uuid.NewString()
	status := "PENDING_PAYMENT"
	free := promoResult.IsFree || totals.Total == 0
	if free {
		status = "PAID"
	}

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Output{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var promoCol *string
	if promoCode != "" {
		promoCol = &promoCode
	}
	if _, err := tx.Exec(ctx, insertOrderSQL,
		orderID, userID, c.ID, status, s.currency(),
		totals.Subtotal, totals.Delivery, totals.Discount, totals.Total,
		promoCol, strings.ToLower(strings.TrimSpace(in.Email)),
	); err != nil {
		return Output{}, fmt.Errorf("create order: %w", err)
	}
	for _, it := range c.Items {
		if _, err := tx.Exec(ctx, insertOrderItemSQL,
			orderID, it.PhotoID, string(it.Kind), it.DisplayName, it.PreviewURL,
			int64(it.UnitPrice), string(it.Delivery), int64(it.DeliveryFee), it.PackGranted,
		); err != nil {
			return Output{}, fmt.Errorf("create order item: %w", err)
		}
	}

	paymentID := uuid.NewString()
	if !free {
		if _, err := tx.Exec(ctx, insertPaymentSQL, paymentID, orderID, "", totals.Total, payment.StatusPending); err != nil {
			return Output{}, fmt.Errorf("create payment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Output{}, err
	}

	// the cart served its purpose; expiry races here are harmless
	_, _ = s.Carts.Clear(ctx, c.ID)

	out := Output{OrderID: orderID, Status: status, Totals: totals}

	if s.Events != nil {
		payload := map[string]any{
			"orderId": orderID,
			"email":   in.Email,
			"total":   totals.Total,
		}
		if userID != nil {
			payload["userId"] = *userID
		}
		_, _ = s.Events.Emit(ctx, events.TopicOrderCreated, orderID, payload)
	}

	if free {
		if promoCode != "" {
			if err := s.Promo.MarkUsed(ctx, promoCode); err != nil {
				return out, fmt.Errorf("settle promo: %w", err)
			}
		}
		if s.Events != nil {
			_, _ = s.Events.Emit(ctx, events.TopicOrderPaid, orderID, map[string]any{"orderId": orderID, "email": in.Email})
		}
		if s.Tasks != nil {
			if task, err := fulfillment.NewPackageTask(orderID); err == nil {
				_, _ = s.Tasks.EnqueueContext(ctx, task)
			}
		}
		countCheckout("free")
		return out, nil
	}

	if s.Provider == nil {
		countCheckout("no_provider")
		return out, nil
	}
	intent, err := s.Provider.CreateIntent(ctx, payment.IntentRequest{
		OrderID:       orderID,
		Amount:        totals.Total,
		Currency:      s.currency(),
		CustomerEmail: in.Email,
	})
	if err != nil {
		countCheckout("intent_error")
		return out, fmt.Errorf("create payment intent: %w", err)
	}
	if _, err := s.Pool.Exec(ctx, attachIntentSQL, paymentID, intent.Provider, intent.Token, intent.RedirectURL); err != nil {
		return out, fmt.Errorf("attach intent: %w", err)
	}
	out.Payment.Provider = intent.Provider
	out.Payment.RedirectURL = intent.RedirectURL
	countCheckout("pending")
	return out, nil
}

func (s *Service) currency() string {
	if s.Currency == "" {
		return "EUR"
	}
	return s.Currency
}

func countCheckout(result string) {
	if obs.CheckoutTotal != nil {
		obs.CheckoutTotal.WithLabelValues(result).Inc()
	}
}

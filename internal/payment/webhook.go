package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	redis "github.com/redis/go-redis/v9"

	"github.com/lineup-studio/backend-lineup/internal/common"
	"github.com/lineup-studio/backend-lineup/internal/events"
	"github.com/lineup-studio/backend-lineup/internal/fulfillment"
	"github.com/lineup-studio/backend-lineup/internal/obs"
)

// PromoSettler records promo usage once the paying order settles.
type PromoSettler interface {
	MarkUsed(ctx context.Context, code string) error
}

// TxBeginner is the slice of pgxpool.Pool the webhook handler needs.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// Webhook handles payment provider callbacks: signature verification,
// replay protection, settlement, and fulfillment hand-off.
type Webhook struct {
	Pool      TxBeginner
	Providers map[string]Provider
	Replay    *redis.Client
	ReplayTTL time.Duration
	Promo     PromoSettler
	Events    *events.Bus
	Tasks     *asynq.Client
}

const latestPaymentSQL = `
SELECT id, order_id, amount_cents, status
FROM payments
WHERE order_id = $1
ORDER BY created_at DESC
LIMIT 1`

const updatePaymentSQL = `
UPDATE payments SET status = $2, provider_payload = $3, updated_at = now()
WHERE id = $1`

const orderForSettlementSQL = `
SELECT id, user_id, status, total_cents, promo_code, customer_email
FROM orders
WHERE id = $1
FOR UPDATE`

const updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`

type paymentRow struct {
	ID      string
	OrderID string
	Amount  int64
	Status  string
}

type orderRow struct {
	ID        string
	UserID    *string
	Status    string
	Total     int64
	PromoCode *string
	Email     string
}

// Handle processes webhook callbacks for the configured payment provider(s).
func (h Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	if h.Pool == nil || h.Providers == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "webhook unavailable", nil)
		return
	}
	providerKey := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "provider")))
	provider, ok := h.Providers[providerKey]
	if !ok {
		common.JSONError(w, http.StatusNotFound, "PROVIDER_NOT_SUPPORTED", "unknown provider", nil)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "unable to read payload", nil)
		return
	}
	result, err := provider.VerifyWebhook(r, body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "WEBHOOK_INVALID", err.Error(), nil)
		return
	}
	if !result.Valid {
		countWebhook(providerKey, "invalid_signature")
		common.JSONError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "signature verification failed", nil)
		return
	}
	if h.Replay != nil && h.ReplayTTL > 0 {
		sum := sha256.Sum256(body)
		key := fmt.Sprintf("wh:%s:%s", providerKey, hex.EncodeToString(sum[:]))
		ok, err := h.Replay.SetNX(r.Context(), key, "1", h.ReplayTTL).Result()
		if err != nil {
			common.JSONError(w, http.StatusInternalServerError, "REPLAY_STORE_ERROR", err.Error(), nil)
			return
		}
		if !ok {
			countWebhook(providerKey, "replay")
			common.JSONError(w, http.StatusConflict, "REPLAY", "duplicate webhook", nil)
			return
		}
	}
	if result.ProviderPayload == nil {
		result.ProviderPayload = body
	}

	ctx := r.Context()
	tx, err := h.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "TX_ERROR", err.Error(), nil)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var pay paymentRow
	err = tx.QueryRow(ctx, latestPaymentSQL, result.OrderID).Scan(&pay.ID, &pay.OrderID, &pay.Amount, &pay.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "PAYMENT_NOT_FOUND", "payment not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_FETCH_ERROR", err.Error(), nil)
		return
	}
	if result.Amount > 0 && pay.Amount != result.Amount {
		countWebhook(providerKey, "amount_mismatch")
		common.JSONError(w, http.StatusBadRequest, "AMOUNT_MISMATCH", "provider amount mismatch", nil)
		return
	}

	newStatus := normaliseWebhookStatus(result.Status)
	shouldSettle := newStatus == StatusPaid && pay.Status != StatusPaid

	if _, err := tx.Exec(ctx, updatePaymentSQL, pay.ID, newStatus, result.ProviderPayload); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_UPDATE_ERROR", err.Error(), nil)
		return
	}

	var ord orderRow
	err = tx.QueryRow(ctx, orderForSettlementSQL, pay.OrderID).
		Scan(&ord.ID, &ord.UserID, &ord.Status, &ord.Total, &ord.PromoCode, &ord.Email)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "ORDER_FETCH_ERROR", err.Error(), nil)
		return
	}

	orderCanceled := false
	switch newStatus {
	case StatusPaid:
		if shouldSettle {
			if _, err := tx.Exec(ctx, updateOrderStatusSQL, ord.ID, "PAID"); err != nil {
				common.JSONError(w, http.StatusInternalServerError, "ORDER_UPDATE_ERROR", err.Error(), nil)
				return
			}
			if h.Promo != nil && ord.PromoCode != nil && strings.TrimSpace(*ord.PromoCode) != "" {
				if err := h.Promo.MarkUsed(ctx, *ord.PromoCode); err != nil {
					common.JSONError(w, http.StatusInternalServerError, "PROMO_SETTLEMENT_FAILED", err.Error(), nil)
					return
				}
			}
		}
	case StatusFailed, StatusExpired:
		if ord.Status == "PENDING_PAYMENT" {
			if _, err := tx.Exec(ctx, updateOrderStatusSQL, ord.ID, "CANCELED"); err != nil {
				common.JSONError(w, http.StatusInternalServerError, "ORDER_UPDATE_ERROR", err.Error(), nil)
				return
			}
			orderCanceled = true
		}
	}

	if err := tx.Commit(ctx); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "TX_COMMIT_ERROR", err.Error(), nil)
		return
	}

	countWebhook(providerKey, strings.ToLower(newStatus))

	if h.Events != nil {
		payload := map[string]any{
			"orderId":   ord.ID,
			"paymentId": pay.ID,
			"status":    newStatus,
		}
		if ord.UserID != nil {
			payload["userId"] = *ord.UserID
		}
		if ord.Email != "" {
			payload["email"] = ord.Email
		}
		switch newStatus {
		case StatusPaid:
			_, _ = h.Events.Emit(ctx, events.TopicOrderPaid, ord.ID, payload)
		case StatusFailed, StatusExpired:
			_, _ = h.Events.Emit(ctx, events.TopicPaymentFailed, ord.ID, payload)
			if orderCanceled {
				_, _ = h.Events.Emit(ctx, events.TopicOrderCanceled, ord.ID, payload)
			}
		}
	}

	if newStatus == StatusPaid && shouldSettle && h.Tasks != nil {
		if task, err := fulfillment.NewPackageTask(ord.ID); err == nil {
			_, _ = h.Tasks.EnqueueContext(ctx, task)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func countWebhook(provider, result string) {
	if obs.PaymentWebhookTotal != nil {
		obs.PaymentWebhookTotal.WithLabelValues(provider, result).Inc()
	}
}

func normaliseWebhookStatus(status string) string {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case StatusPaid, "SUCCESS", "SETTLED":
		return StatusPaid
	case StatusFailed, "CANCELED", "DENY":
		return StatusFailed
	case StatusExpired:
		return StatusExpired
	default:
		return StatusPending
	}
}

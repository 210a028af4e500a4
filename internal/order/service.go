package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the order does not exist or is not visible to the caller.
var ErrNotFound = errors.New("order: not found")

// Order is the read model returned to customers.
type Order struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Currency  string    `json:"currency"`
	Subtotal  int64     `json:"subtotal"`
	Delivery  int64     `json:"delivery"`
	Discount  int64     `json:"discount"`
	Total     int64     `json:"total"`
	PromoCode *string   `json:"promoCode,omitempty"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	Items     []Item    `json:"items,omitempty"`

	// DownloadReady is true once the fulfillment worker has assembled the
	// digital archive for a paid order.
	DownloadReady bool   `json:"downloadReady"`
	DownloadURL   string `json:"downloadUrl,omitempty"`
}

// Item is a frozen order line. Prices are exactly what the cart held at
// checkout time.
type Item struct {
	ID          int64  `json:"id"`
	PhotoID     string `json:"photoId"`
	Kind        string `json:"kind"`
	DisplayName string `json:"displayName"`
	PreviewURL  string `json:"previewUrl,omitempty"`
	UnitPrice   int64  `json:"unitPrice"`
	Delivery    string `json:"delivery,omitempty"`
	DeliveryFee int64  `json:"deliveryFee"`
	PackGranted bool   `json:"packGranted"`
}

const listOrdersSQL = `
SELECT id, status, currency, subtotal_cents, delivery_cents, discount_cents, total_cents,
       promo_code, customer_email, created_at
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

const countOrdersSQL = `SELECT COUNT(*) FROM orders WHERE user_id = $1`

const getOrderSQL = `
SELECT id, user_id, status, currency, subtotal_cents, delivery_cents, discount_cents, total_cents,
       promo_code, customer_email, created_at
FROM orders
WHERE id = $1`

const listItemsSQL = `
SELECT id, photo_id, kind, display_name, preview_url, unit_price_cents,
       delivery_option, delivery_fee_cents, pack_granted
FROM order_items
WHERE order_id = $1
ORDER BY id`

// Service answers order reads for customers.
type Service struct {
	Pool *pgxpool.Pool

	// PublicBaseURL prefixes download links handed to customers.
	PublicBaseURL string
}

// ListForUser returns a page of the user's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string, page, perPage int) ([]Order, int64, error) {
	if s == nil || s.Pool == nil {
		return nil, 0, errors.New("order service not configured")
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	var total int64
	if err := s.Pool.QueryRow(ctx, countOrdersSQL, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	rows, err := s.Pool.Query(ctx, listOrdersSQL, userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := make([]Order, 0)
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.Status, &o.Currency, &o.Subtotal, &o.Delivery, &o.Discount, &o.Total,
			&o.PromoCode, &o.Email, &o.CreatedAt); err != nil {
			return nil, 0, err
		}
		s.decorate(&o)
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// Get loads a single order with its lines. Visibility: the owning user, or
// a guest presenting the email the order was placed with.
func (s *Service) Get(ctx context.Context, orderID string, userID *string, email string) (Order, error) {
	if s == nil || s.Pool == nil {
		return Order{}, errors.New("order service not configured")
	}
	var (
		o       Order
		ownerID *string
	)
	err := s.Pool.QueryRow(ctx, getOrderSQL, orderID).Scan(
		&o.ID, &ownerID, &o.Status, &o.Currency, &o.Subtotal, &o.Delivery, &o.Discount, &o.Total,
		&o.PromoCode, &o.Email, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("get order: %w", err)
	}

	allowed := false
	if userID != nil && ownerID != nil && *userID == *ownerID {
		allowed = true
	}
	if !allowed && email != "" && strings.EqualFold(strings.TrimSpace(email), o.Email) {
		allowed = true
	}
	if !allowed {
		// not found rather than forbidden, order ids stay unguessable
		return Order{}, ErrNotFound
	}

	rows, err := s.Pool.Query(ctx, listItemsSQL, orderID)
	if err != nil {
		return Order{}, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.PhotoID, &it.Kind, &it.DisplayName, &it.PreviewURL,
			&it.UnitPrice, &it.Delivery, &it.DeliveryFee, &it.PackGranted); err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return Order{}, err
	}
	s.decorate(&o)
	return o, nil
}

func (s *Service) decorate(o *Order) {
	if o.Status == "FULFILLED" {
		o.DownloadReady = true
		o.DownloadURL = fmt.Sprintf("%s/downloads/%s.zip", strings.TrimRight(s.PublicBaseURL, "/"), o.ID)
	}
}

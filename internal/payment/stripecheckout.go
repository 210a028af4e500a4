package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// StripeCheckout implements the Provider interface for Stripe hosted
// checkout sessions. Intent creation synthesises a deterministic session
// token so integration tests can drive the full flow without network calls;
// webhook verification implements the real Stripe-Signature scheme.
type StripeCheckout struct {
	SecretKey     string
	WebhookSecret string
	BaseURL       string

	// Tolerance bounds the accepted age of a signed webhook. Zero means
	// the default of five minutes.
	Tolerance time.Duration

	// Now is overridable in tests.
	Now func() time.Time
}

// CreateIntent opens a checkout session for the order.
func (s StripeCheckout) CreateIntent(_ context.Context, req IntentRequest) (IntentResponse, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return IntentResponse{}, errors.New("order id is required")
	}
	if req.Amount <= 0 {
		return IntentResponse{}, errors.New("amount must be positive")
	}
	token := "cs_" + strings.ReplaceAll(req.OrderID, "-", "")
	expires := s.now().Add(time.Duration(req.ExpiresAtSec) * time.Second)
	if req.ExpiresAtSec <= 0 {
		expires = s.now().Add(24 * time.Hour)
	}
	return IntentResponse{
		Provider:    "stripe",
		Token:       token,
		RedirectURL: fmt.Sprintf("%s/c/pay/%s", strings.TrimRight(s.checkoutHost(), "/"), token),
		ExpiresAt:   expires.Unix(),
	}, nil
}

func (s StripeCheckout) checkoutHost() string {
	host := strings.TrimSpace(s.BaseURL)
	if host == "" {
		return "https://checkout.stripe.com"
	}
	return host
}

func (s StripeCheckout) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s StripeCheckout) tolerance() time.Duration {
	if s.Tolerance > 0 {
		return s.Tolerance
	}
	return 5 * time.Minute
}

// VerifyWebhook checks the Stripe-Signature header (t=...,v1=... with an
// HMAC-SHA256 over "<t>.<body>") and normalises the event payload.
func (s StripeCheckout) VerifyWebhook(r *http.Request, body []byte) (WebhookVerifyResult, error) {
	header := ""
	if r != nil {
		header = r.Header.Get("Stripe-Signature")
	}
	ts, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return WebhookVerifyResult{Valid: false, Err: err}, nil
	}

	at := time.Unix(ts, 0)
	if age := s.now().Sub(at); age > s.tolerance() || age < -s.tolerance() {
		return WebhookVerifyResult{Valid: false, Err: errors.New("timestamp outside tolerance")}, nil
	}

	expected := ComputeSignature(s.WebhookSecret, ts, body)
	matched := false
	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			matched = true
			break
		}
	}
	if !matched {
		return WebhookVerifyResult{Valid: false, Err: errors.New("invalid signature")}, nil
	}

	var event struct {
		Type string `json:"type"`
		Data struct {
			Object struct {
				ClientReferenceID string `json:"client_reference_id"`
				AmountTotal       int64  `json:"amount_total"`
				PaymentStatus     string `json:"payment_status"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		return WebhookVerifyResult{Valid: false, Err: err}, nil
	}
	if event.Data.Object.ClientReferenceID == "" {
		return WebhookVerifyResult{Valid: false, Err: errors.New("missing order reference")}, nil
	}

	return WebhookVerifyResult{
		Valid:           true,
		OrderID:         event.Data.Object.ClientReferenceID,
		Amount:          event.Data.Object.AmountTotal,
		Status:          normaliseStripeStatus(event.Type, event.Data.Object.PaymentStatus),
		ProviderPayload: body,
	}, nil
}

// ComputeSignature derives the v1 signature for a timestamped payload.
// Exported so tests and the sandbox tooling can forge valid webhooks.
func ComputeSignature(secret string, ts int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func parseSignatureHeader(header string) (ts int64, signatures []string, err error) {
	if strings.TrimSpace(header) == "" {
		return 0, nil, errors.New("missing signature header")
	}
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err = strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("bad timestamp: %w", err)
			}
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if ts == 0 {
		return 0, nil, errors.New("missing timestamp")
	}
	if len(signatures) == 0 {
		return 0, nil, errors.New("missing v1 signature")
	}
	return ts, signatures, nil
}

func normaliseStripeStatus(eventType, paymentStatus string) string {
	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case "checkout.session.completed":
		if strings.EqualFold(paymentStatus, "paid") {
			return StatusPaid
		}
		return StatusPending
	case "checkout.session.async_payment_succeeded":
		return StatusPaid
	case "checkout.session.async_payment_failed":
		return StatusFailed
	case "checkout.session.expired":
		return StatusExpired
	default:
		return StatusPending
	}
}

package payment_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lineup-studio/backend-lineup/internal/payment"
)

const webhookSecret = "whsec_test"

func signedRequest(t *testing.T, body []byte, at time.Time) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook/stripe", nil)
	sig := payment.ComputeSignature(webhookSecret, at.Unix(), body)
	req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", at.Unix(), sig))
	return req
}

func completedSessionBody(orderID string, amount int64) []byte {
	return []byte(fmt.Sprintf(`{
		"type": "checkout.session.completed",
		"data": {"object": {"client_reference_id": %q, "amount_total": %d, "payment_status": "paid"}}
	}`, orderID, amount))
}

func TestStripeVerifyWebhookAcceptsValidSignature(t *testing.T) {
	now := time.Now()
	p := payment.StripeCheckout{WebhookSecret: webhookSecret, Now: func() time.Time { return now }}

	body := completedSessionBody("order-1", 2200)
	result, err := p.VerifyWebhook(signedRequest(t, body, now), body)
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Equal(t, "order-1", result.OrderID)
	require.Equal(t, int64(2200), result.Amount)
	require.Equal(t, payment.StatusPaid, result.Status)
}

func TestStripeVerifyWebhookRejectsTamperedBody(t *testing.T) {
	now := time.Now()
	p := payment.StripeCheckout{WebhookSecret: webhookSecret, Now: func() time.Time { return now }}

	body := completedSessionBody("order-1", 2200)
	req := signedRequest(t, body, now)
	tampered := completedSessionBody("order-1", 1)
	result, err := p.VerifyWebhook(req, tampered)
	require.NoError(t, err)
	require.False(t, result.Valid)
}

func TestStripeVerifyWebhookRejectsStaleTimestamp(t *testing.T) {
	now := time.Now()
	p := payment.StripeCheckout{WebhookSecret: webhookSecret, Now: func() time.Time { return now }}

	body := completedSessionBody("order-1", 2200)
	stale := now.Add(-time.Hour)
	result, err := p.VerifyWebhook(signedRequest(t, body, stale), body)
	require.NoError(t, err)
	require.False(t, result.Valid)
}

func TestStripeVerifyWebhookMissingHeader(t *testing.T) {
	p := payment.StripeCheckout{WebhookSecret: webhookSecret}
	body := completedSessionBody("order-1", 2200)
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	result, err := p.VerifyWebhook(req, body)
	require.NoError(t, err)
	require.False(t, result.Valid)
}

func TestStripeStatusNormalisation(t *testing.T) {
	now := time.Now()
	p := payment.StripeCheckout{WebhookSecret: webhookSecret, Now: func() time.Time { return now }}

	cases := []struct {
		eventType string
		payStatus string
		want      string
	}{
		{"checkout.session.completed", "paid", payment.StatusPaid},
		{"checkout.session.completed", "unpaid", payment.StatusPending},
		{"checkout.session.async_payment_succeeded", "", payment.StatusPaid},
		{"checkout.session.async_payment_failed", "", payment.StatusFailed},
		{"checkout.session.expired", "", payment.StatusExpired},
		{"charge.refunded", "", payment.StatusPending},
	}
	for _, tc := range cases {
		body := []byte(fmt.Sprintf(`{
			"type": %q,
			"data": {"object": {"client_reference_id": "order-9", "amount_total": 100, "payment_status": %q}}
		}`, tc.eventType, tc.payStatus))
		result, err := p.VerifyWebhook(signedRequest(t, body, now), body)
		require.NoError(t, err)
		require.True(t, result.Valid, tc.eventType)
		require.Equal(t, tc.want, result.Status, tc.eventType)
	}
}

func TestStripeCreateIntentDeterministicToken(t *testing.T) {
	p := payment.StripeCheckout{}
	resp, err := p.CreateIntent(context.Background(), payment.IntentRequest{OrderID: "ab-cd", Amount: 500})
	require.NoError(t, err)
	require.Equal(t, "cs_abcd", resp.Token)
	require.Contains(t, resp.RedirectURL, resp.Token)
	require.Equal(t, "stripe", resp.Provider)
}

func TestStripeCreateIntentRejectsBadInput(t *testing.T) {
	p := payment.StripeCheckout{}
	_, err := p.CreateIntent(context.Background(), payment.IntentRequest{OrderID: "", Amount: 100})
	require.Error(t, err)
	_, err = p.CreateIntent(context.Background(), payment.IntentRequest{OrderID: "x", Amount: 0})
	require.Error(t, err)
}

func TestSandboxVerifyWebhook(t *testing.T) {
	p := payment.Sandbox{Token: "secret"}

	body := []byte(`{"orderId":"o-1","amount":900,"status":"paid"}`)
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Sandbox-Token", "secret")
	result, err := p.VerifyWebhook(req, body)
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Equal(t, payment.StatusPaid, result.Status)

	req.Header.Set("X-Sandbox-Token", "wrong")
	result, err = p.VerifyWebhook(req, body)
	require.NoError(t, err)
	require.False(t, result.Valid)
}

package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Sandbox is a provider for local development. Every intent succeeds and
// webhooks are accepted whenever the shared token matches, no signature
// involved.
type Sandbox struct {
	Token string
}

func (s Sandbox) CreateIntent(_ context.Context, req IntentRequest) (IntentResponse, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return IntentResponse{}, errors.New("order id is required")
	}
	return IntentResponse{
		Provider:    "sandbox",
		Token:       "sandbox-" + req.OrderID,
		RedirectURL: fmt.Sprintf("/sandbox/pay/%s", req.OrderID),
		ExpiresAt:   time.Now().Add(24 * time.Hour).Unix(),
	}, nil
}

func (s Sandbox) VerifyWebhook(r *http.Request, body []byte) (WebhookVerifyResult, error) {
	if s.Token != "" {
		provided := ""
		if r != nil {
			provided = r.Header.Get("X-Sandbox-Token")
		}
		if provided != s.Token {
			return WebhookVerifyResult{Valid: false, Err: errors.New("bad sandbox token")}, nil
		}
	}
	var payload struct {
		OrderID string `json:"orderId"`
		Amount  int64  `json:"amount"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return WebhookVerifyResult{Valid: false, Err: err}, nil
	}
	if payload.OrderID == "" {
		return WebhookVerifyResult{Valid: false, Err: errors.New("missing order id")}, nil
	}
	status := strings.ToUpper(strings.TrimSpace(payload.Status))
	switch status {
	case StatusPaid, StatusFailed, StatusExpired:
	default:
		status = StatusPaid
	}
	return WebhookVerifyResult{
		Valid:           true,
		OrderID:         payload.OrderID,
		Amount:          payload.Amount,
		Status:          status,
		ProviderPayload: body,
	}, nil
}

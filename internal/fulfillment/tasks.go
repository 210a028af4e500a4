package fulfillment

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type names registered with the asynq server.
const (
	TypePackageOrder = "fulfillment:package"
	TypeSendReceipt  = "fulfillment:email"
)

// PackagePayload identifies the order whose digital items need packaging.
type PackagePayload struct {
	OrderID string `json:"orderId"`
}

// ReceiptPayload carries everything the email task needs.
type ReceiptPayload struct {
	OrderID     string `json:"orderId"`
	Email       string `json:"email"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// NewPackageTask builds the task that assembles an order's download archive.
func NewPackageTask(orderID string) (*asynq.Task, error) {
	payload, err := json.Marshal(PackagePayload{OrderID: orderID})
	if err != nil {
		return nil, fmt.Errorf("marshal package payload: %w", err)
	}
	return asynq.NewTask(TypePackageOrder, payload, asynq.MaxRetry(5), asynq.Queue("fulfillment")), nil
}

// NewReceiptTask builds the task that emails the order receipt and download link.
func NewReceiptTask(p ReceiptPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal receipt payload: %w", err)
	}
	return asynq.NewTask(TypeSendReceipt, payload, asynq.MaxRetry(8), asynq.Queue("mail")), nil
}

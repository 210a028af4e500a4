package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/lineup-studio/backend-lineup/internal/common"
	"github.com/lineup-studio/backend-lineup/internal/events"
	"github.com/lineup-studio/backend-lineup/internal/obs"
)

const orderForPackagingSQL = `
SELECT status, customer_email FROM orders WHERE id = $1`

// order_items.photo_id is TEXT so it can carry the session-pack sentinel;
// the photos PK is a UUID and must be cast for the join.
const digitalItemsSQL = `
SELECT oi.display_name, p.original_key
FROM order_items oi
JOIN photos p ON p.id::text = oi.photo_id
WHERE oi.order_id = $1 AND oi.kind = 'digital'
ORDER BY oi.id`

const markFulfilledSQL = `
UPDATE orders SET status = 'FULFILLED', updated_at = now()
WHERE id = $1 AND status = 'PAID'`

// Querier is the slice of pgxpool.Pool the processor needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Processor executes fulfillment tasks: it assembles the ZIP archive of a
// paid order's digital photos and sends the receipt email. Session-pack
// lines carry no file themselves; the pack's photos are already present as
// zero-priced digital lines.
type Processor struct {
	Pool          Querier
	Store         ObjectStore
	Email         common.EmailSender
	Tasks         *asynq.Client
	Events        *events.Bus
	PublicBaseURL string
	Log           zerolog.Logger
}

// Register wires the processor's handlers into an asynq mux.
func (p *Processor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypePackageOrder, p.HandlePackage)
	mux.HandleFunc(TypeSendReceipt, p.HandleReceipt)
}

// HandlePackage builds the download archive for an order.
func (p *Processor) HandlePackage(ctx context.Context, t *asynq.Task) error {
	if p.Pool == nil || p.Store == nil {
		return errors.New("fulfillment processor not configured")
	}
	var payload PackagePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode package payload: %w", err)
	}
	start := time.Now()

	var status, email string
	err := p.Pool.QueryRow(ctx, orderForPackagingSQL, payload.OrderID).Scan(&status, &email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// order vanished; retrying will not help
			return nil
		}
		return fmt.Errorf("load order: %w", err)
	}
	switch status {
	case "FULFILLED":
		return nil
	case "PAID":
	default:
		return fmt.Errorf("order %s not payable for fulfillment (status %s)", payload.OrderID, status)
	}

	rows, err := p.Pool.Query(ctx, digitalItemsSQL, payload.OrderID)
	if err != nil {
		return fmt.Errorf("load digital items: %w", err)
	}
	type line struct{ name, key string }
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.name, &l.key); err != nil {
			rows.Close()
			return err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	downloadURL := ""
	if len(lines) > 0 {
		entries := make([]ArchiveEntry, 0, len(lines))
		closers := make([]func(), 0, len(lines))
		for _, l := range lines {
			rc, err := p.Store.Fetch(ctx, l.key)
			if err != nil {
				for _, c := range closers {
					c()
				}
				countTask(TypePackageOrder, "fetch_error")
				return fmt.Errorf("fetch original %s: %w", l.key, err)
			}
			closers = append(closers, func() { rc.Close() })
			entries = append(entries, ArchiveEntry{Name: entryName(l.name, l.key), R: rc})
		}

		var buf bytes.Buffer
		err = BuildArchive(&buf, entries)
		for _, c := range closers {
			c()
		}
		if err != nil {
			countTask(TypePackageOrder, "archive_error")
			return fmt.Errorf("build archive: %w", err)
		}
		archiveKey := "downloads/" + payload.OrderID + ".zip"
		if err := p.Store.Put(ctx, archiveKey, &buf); err != nil {
			countTask(TypePackageOrder, "store_error")
			return fmt.Errorf("store archive: %w", err)
		}
		downloadURL = fmt.Sprintf("%s/downloads/%s.zip", strings.TrimRight(p.PublicBaseURL, "/"), payload.OrderID)
	}

	if _, err := p.Pool.Exec(ctx, markFulfilledSQL, payload.OrderID); err != nil {
		return fmt.Errorf("mark fulfilled: %w", err)
	}

	if obs.FulfillmentDuration != nil {
		obs.FulfillmentDuration.Observe(float64(time.Since(start)) / float64(time.Millisecond))
	}
	countTask(TypePackageOrder, "ok")
	p.Log.Info().Str("order_id", payload.OrderID).Int("files", len(lines)).Msg("order packaged")

	if p.Events != nil {
		_, _ = p.Events.Emit(ctx, events.TopicOrderFulfilled, payload.OrderID, map[string]any{
			"orderId":     payload.OrderID,
			"downloadUrl": downloadURL,
		})
	}
	if p.Tasks != nil && email != "" {
		if task, err := NewReceiptTask(ReceiptPayload{OrderID: payload.OrderID, Email: email, DownloadURL: downloadURL}); err == nil {
			_, _ = p.Tasks.EnqueueContext(ctx, task)
		}
	}
	return nil
}

// HandleReceipt sends the order confirmation email.
func (p *Processor) HandleReceipt(ctx context.Context, t *asynq.Task) error {
	if p.Email == nil {
		return nil
	}
	var payload ReceiptPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode receipt payload: %w", err)
	}
	if payload.Email == "" {
		return nil
	}
	body := fmt.Sprintf("Thank you for your order %s.", payload.OrderID)
	if payload.DownloadURL != "" {
		body += fmt.Sprintf(" Your photos are ready: %s", payload.DownloadURL)
	}
	if err := p.Email.Send(ctx, payload.Email, "Your photos are on their way", body); err != nil {
		countTask(TypeSendReceipt, "error")
		return err
	}
	countTask(TypeSendReceipt, "ok")
	return nil
}

func entryName(displayName, originalKey string) string {
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = strings.TrimSuffix(path.Base(originalKey), path.Ext(originalKey))
	}
	if path.Ext(name) == "" {
		if ext := path.Ext(originalKey); ext != "" {
			name += ext
		}
	}
	return name
}

func countTask(task, result string) {
	if obs.FulfillmentTasksTotal != nil {
		obs.FulfillmentTasksTotal.WithLabelValues(task, result).Inc()
	}
}

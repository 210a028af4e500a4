package fulfillment_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lineup-studio/backend-lineup/internal/common"
	"github.com/lineup-studio/backend-lineup/internal/events"
	"github.com/lineup-studio/backend-lineup/internal/fulfillment"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch out := d.(type) {
		case *string:
			*out = r.values[i].(string)
		default:
			panic("unsupported scan target")
		}
	}
	return nil
}

type fakeRows struct {
	pgx.Rows
	rows [][2]string
	pos  int
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos <= len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]
	*(dest[0].(*string)) = row[0]
	*(dest[1].(*string)) = row[1]
	return nil
}

func (r *fakeRows) Close()     {}
func (r *fakeRows) Err() error { return nil }

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	orderStatus string
	orderEmail  string
	items       [][2]string
	execs       []execCall
}

func (db *fakeDB) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	return fakeRow{values: []any{db.orderStatus, db.orderEmail}}
}

func (db *fakeDB) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	return &fakeRows{rows: db.items}, nil
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.execs = append(db.execs, execCall{sql: sql, args: args})
	return pgconn.CommandTag{}, nil
}

type recordingStore struct {
	topics []string
}

func (s *recordingStore) InsertEvent(_ context.Context, topic, aggregateID string, payload []byte) (events.Event, error) {
	s.topics = append(s.topics, topic)
	return events.Event{ID: "ev1", Topic: topic, AggregateID: aggregateID, Payload: payload, OccurredAt: time.Now()}, nil
}

func packageTask(t *testing.T, orderID string) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(fulfillment.PackagePayload{OrderID: orderID})
	require.NoError(t, err)
	return asynq.NewTask(fulfillment.TypePackageOrder, payload)
}

func TestHandlePackageBuildsArchiveAndMarksFulfilled(t *testing.T) {
	store := fulfillment.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "originals/w1.jpg", strings.NewReader("left")))
	require.NoError(t, store.Put(context.Background(), "originals/w2.jpg", strings.NewReader("right")))

	db := &fakeDB{
		orderStatus: "PAID",
		orderEmail:  "surfer@example.com",
		items: [][2]string{
			{"Left at Uluwatu", "originals/w1.jpg"},
			{"Right at Kuta", "originals/w2.jpg"},
		},
	}
	eventStore := &recordingStore{}
	p := &fulfillment.Processor{
		Pool:          db,
		Store:         store,
		Email:         common.NopEmailSender{},
		Events:        &events.Bus{Store: eventStore},
		PublicBaseURL: "https://lineup.surf",
		Log:           zerolog.Nop(),
	}

	err := p.HandlePackage(context.Background(), packageTask(t, "order-1"))
	require.NoError(t, err)

	rc, err := store.Fetch(context.Background(), "downloads/order-1.zip")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)

	require.Len(t, db.execs, 1)
	require.Contains(t, db.execs[0].sql, "FULFILLED")
	require.Equal(t, []any{"order-1"}, db.execs[0].args)

	require.Equal(t, []string{events.TopicOrderFulfilled}, eventStore.topics)
}

func TestHandlePackageSkipsAlreadyFulfilledOrder(t *testing.T) {
	db := &fakeDB{orderStatus: "FULFILLED"}
	p := &fulfillment.Processor{Pool: db, Store: fulfillment.NewMemoryStore(), Log: zerolog.Nop()}

	err := p.HandlePackage(context.Background(), packageTask(t, "order-2"))
	require.NoError(t, err)
	require.Empty(t, db.execs)
}

func TestHandlePackageRejectsUnpaidOrder(t *testing.T) {
	db := &fakeDB{orderStatus: "PENDING_PAYMENT"}
	p := &fulfillment.Processor{Pool: db, Store: fulfillment.NewMemoryStore(), Log: zerolog.Nop()}

	err := p.HandlePackage(context.Background(), packageTask(t, "order-3"))
	require.Error(t, err)
	require.Empty(t, db.execs)
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"storeadmin_server/lib"
	"storeadmin_server/repository/memstore"
	"storeadmin_server/structs/tables"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	shipments    []uuid.UUID
	replacements []uuid.UUID
	err          error
}

func (m *fakeMailer) SendShipmentNotice(_ context.Context, order *tables.Order, _ *tables.Address) error {
	m.shipments = append(m.shipments, order.ID)
	return m.err
}

func (m *fakeMailer) SendReplacementNotice(_ context.Context, _ *tables.Return, order *tables.Order, _ *tables.Address) error {
	m.replacements = append(m.replacements, order.ID)
	return m.err
}

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func newOrderFixture(t *testing.T) (*OrderService, *memstore.Store, *fakeMailer) {
	t.Helper()
	store := memstore.New()
	store.SetClock(func() time.Time { return fixedNow })
	mailer := &fakeMailer{}
	svc := NewOrderService(testLogger(), store.Repositories(), nil, mailer)
	svc.now = func() time.Time { return fixedNow }
	return svc, store, mailer
}

func seedOrder(store *memstore.Store, status tables.OrderStatus) tables.Order {
	address := store.AddAddress(tables.Address{Name: "Asha", Email: "asha@example.com", City: "Pune"})
	return store.AddOrder(tables.Order{
		Status:      status,
		SubtotalINR: 998,
		ShippingINR: 50,
		TotalINR:    1048,
		AddressID:   &address.ID,
		Items:       []tables.OrderItem{{ProductID: uuid.New(), Qty: 2, PriceINR: 499}},
	})
}

func TestOrderTransitionRejectsSkippedEdge(t *testing.T) {
	svc, store, _ := newOrderFixture(t)
	order := seedOrder(store, tables.OrderStatusPending)

	_, err := svc.Transition(context.Background(), order.ID, "shipped", "", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, lib.ErrValidation))

	got, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, tables.OrderStatusPending, got.Status)

	events, err := svc.Events(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestOrderTransitionUnknownStatusAndTerminal(t *testing.T) {
	svc, store, _ := newOrderFixture(t)
	pending := seedOrder(store, tables.OrderStatusPending)
	cancelled := seedOrder(store, tables.OrderStatusCancelled)

	_, err := svc.Transition(context.Background(), pending.ID, "lost", "", nil)
	assert.True(t, errors.Is(err, lib.ErrValidation))

	_, err = svc.Transition(context.Background(), cancelled.ID, "processing", "", nil)
	assert.True(t, errors.Is(err, lib.ErrValidation))

	_, err = svc.Transition(context.Background(), uuid.New(), "processing", "", nil)
	assert.True(t, errors.Is(err, lib.ErrNotFound))
}

func TestOrderTransitionWritesLedger(t *testing.T) {
	svc, store, _ := newOrderFixture(t)
	order := seedOrder(store, tables.OrderStatusPending)
	actor := uuid.New()

	res, err := svc.Transition(context.Background(), order.ID, "processing", "", &actor)
	require.NoError(t, err)
	assert.Empty(t, res.Warning)
	assert.Equal(t, tables.OrderStatusProcessing, res.Order.Status)

	events, err := svc.Events(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "processing", events[0].Status)
	require.NotNil(t, events[0].Note)
	assert.Equal(t, "Status updated to processing", *events[0].Note)
	assert.Equal(t, &actor, events[0].CreatedBy)
}

func TestOrderShippingRequiresTracking(t *testing.T) {
	svc, store, _ := newOrderFixture(t)
	order := seedOrder(store, tables.OrderStatusProcessing)

	_, err := svc.Transition(context.Background(), order.ID, "shipped", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier and tracking number are required")

	_, err = svc.Ship(context.Background(), order.ID, ShipmentInput{Carrier: "Delhivery"}, nil)
	assert.True(t, errors.Is(err, lib.ErrValidation))

	_, err = svc.Ship(context.Background(), order.ID, ShipmentInput{
		Carrier: "Delhivery", TrackingNumber: "DL123", TrackingURL: "ftp://track",
	}, nil)
	assert.True(t, errors.Is(err, lib.ErrValidation))
}

func TestOrderShipMovesToShipped(t *testing.T) {
	svc, store, mailer := newOrderFixture(t)
	order := seedOrder(store, tables.OrderStatusProcessing)

	res, err := svc.Ship(context.Background(), order.ID, ShipmentInput{
		Carrier:        "Delhivery",
		TrackingNumber: " DL123 ",
		TrackingURL:    "https://track.example.com/DL123",
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Warning)

	got := res.Order
	assert.Equal(t, tables.OrderStatusShipped, got.Status)
	require.NotNil(t, got.ShippedAt)
	assert.True(t, got.ShippedAt.Equal(fixedNow))
	assert.Equal(t, "Delhivery", *got.CourierName)
	assert.Equal(t, "DL123", *got.TrackingNumber)

	events, err := svc.Events(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "shipped", events[0].Status)
	assert.Equal(t, "Tracking set: Delhivery • DL123 • https://track.example.com/DL123", *events[0].Note)
	assert.Equal(t, []uuid.UUID{order.ID}, mailer.shipments)
}

func TestOrderShipCorrectsTrackingAfterShipping(t *testing.T) {
	svc, store, mailer := newOrderFixture(t)
	order := seedOrder(store, tables.OrderStatusProcessing)
	ctx := context.Background()

	_, err := svc.Ship(ctx, order.ID, ShipmentInput{Carrier: "Delhivery", TrackingNumber: "DL1", TrackingURL: "https://t/1"}, nil)
	require.NoError(t, err)
	svc.now = func() time.Time { return fixedNow.Add(time.Hour) }

	res, err := svc.Ship(ctx, order.ID, ShipmentInput{Carrier: "Blue Dart", CourierName: "BlueDart Express", TrackingNumber: "BD2"}, nil)
	require.NoError(t, err)
	assert.Equal(t, tables.OrderStatusShipped, res.Order.Status)
	assert.True(t, res.Order.ShippedAt.Equal(fixedNow))
	assert.Nil(t, res.Order.TrackingURL)
	assert.Equal(t, "BD2", *res.Order.TrackingNumber)
	assert.Len(t, mailer.shipments, 1)

	pending := seedOrder(store, tables.OrderStatusPending)
	_, err = svc.Ship(ctx, pending.ID, ShipmentInput{Carrier: "Delhivery", TrackingNumber: "DL9"}, nil)
	assert.True(t, errors.Is(err, lib.ErrValidation))
}

func TestOrderDeliveredAtSetOnce(t *testing.T) {
	svc, store, _ := newOrderFixture(t)
	order := seedOrder(store, tables.OrderStatusShipped)
	ctx := context.Background()

	res, err := svc.Transition(ctx, order.ID, "delivered", "", nil)
	require.NoError(t, err)
	require.NotNil(t, res.Order.DeliveredAt)
	first := *res.Order.DeliveredAt

	svc.now = func() time.Time { return fixedNow.Add(48 * time.Hour) }
	again, err := svc.Transition(ctx, order.ID, "delivered", "", nil)
	require.NoError(t, err)
	assert.True(t, again.Order.DeliveredAt.Equal(first))

	events, _ := svc.Events(ctx, order.ID)
	assert.Len(t, events, 1)
}

func TestOrderLedgerFailureIsWarning(t *testing.T) {
	svc, store, _ := newOrderFixture(t)
	order := seedOrder(store, tables.OrderStatusPending)
	store.Fail(memstore.OpOrderEventAppend, lib.ErrTransient)

	res, err := svc.Transition(context.Background(), order.ID, "processing", "", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Warning, "timeline entry could not be saved")

	got, _ := svc.Get(context.Background(), order.ID)
	assert.Equal(t, tables.OrderStatusProcessing, got.Status)
}

func TestOrderConcurrentChangeIsConflict(t *testing.T) {
	svc, store, _ := newOrderFixture(t)
	order := seedOrder(store, tables.OrderStatusPending)
	store.Fail(memstore.OpOrderUpdate, lib.ErrConflict)

	_, err := svc.Transition(context.Background(), order.ID, "processing", "", nil)
	assert.True(t, errors.Is(err, lib.ErrConflict))
}

func TestOrderTimelineEntry(t *testing.T) {
	svc, store, _ := newOrderFixture(t)
	order := seedOrder(store, tables.OrderStatusProcessing)
	ctx := context.Background()

	_, err := svc.AddTimelineEntry(ctx, order.ID, "", "   ", nil)
	assert.True(t, errors.Is(err, lib.ErrValidation))

	event, err := svc.AddTimelineEntry(ctx, order.ID, "", "Customer called about delivery", nil)
	require.NoError(t, err)
	assert.Equal(t, "processing", event.Status)

	_, err = svc.AddTimelineEntry(ctx, order.ID, "packed", "Gift wrapped", nil)
	require.NoError(t, err)

	events, err := svc.Events(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "processing", events[0].Status)
	assert.Equal(t, "packed", events[1].Status)

	got, _ := svc.Get(ctx, order.ID)
	assert.Equal(t, tables.OrderStatusProcessing, got.Status)

	_, err = svc.Events(ctx, uuid.New())
	assert.True(t, errors.Is(err, lib.ErrNotFound))
}

func TestOrderAdminNotes(t *testing.T) {
	svc, store, _ := newOrderFixture(t)
	order := seedOrder(store, tables.OrderStatusDelivered)

	got, err := svc.UpdateAdminNotes(context.Background(), order.ID, "VIP customer")
	require.NoError(t, err)
	require.NotNil(t, got.AdminNotes)
	assert.Equal(t, "VIP customer", *got.AdminNotes)
	assert.Equal(t, tables.OrderStatusDelivered, got.Status)
}

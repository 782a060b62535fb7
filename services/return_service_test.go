package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"storeadmin_server/lib"
	"storeadmin_server/repository/memstore"
	"storeadmin_server/structs"
	"storeadmin_server/structs/tables"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type returnFixture struct {
	svc    *ReturnService
	store  *memstore.Store
	mailer *fakeMailer
	parent tables.Order
	ret    tables.Return
}

func newReturnFixture(t *testing.T, status tables.ReturnStatus, resolution tables.ReturnResolution) *returnFixture {
	t.Helper()
	store := memstore.New()
	store.SetClock(func() time.Time { return fixedNow })
	mailer := &fakeMailer{}
	svc := NewReturnService(testLogger(), store.Repositories(), nil, mailer)
	svc.now = func() time.Time { return fixedNow }

	diya := "Brass Diya"
	user := uuid.New()
	address := store.AddAddress(tables.Address{Name: "Asha", Email: "asha@example.com", City: "Pune"})
	parent := store.AddOrder(tables.Order{
		UserID:      &user,
		AddressID:   &address.ID,
		Status:      tables.OrderStatusDelivered,
		SubtotalINR: 1118,
		TotalINR:    1118,
		Items: []tables.OrderItem{
			{ProductID: uuid.New(), Qty: 2, PriceINR: 499, NameSnapshot: &diya},
			{ProductID: uuid.New(), Qty: 1, PriceINR: 120},
		},
	})
	rma := "RMA-1042"
	ret := store.AddReturn(tables.Return{
		RMACode:    &rma,
		OrderID:    parent.ID,
		Status:     status,
		Resolution: resolution,
		Items: []tables.ReturnItem{
			{OrderItemID: parent.Items[0].ID, ProductID: parent.Items[0].ProductID, Qty: 2},
			{OrderItemID: parent.Items[1].ID, ProductID: parent.Items[1].ProductID, Qty: 1},
		},
	})
	return &returnFixture{svc: svc, store: store, mailer: mailer, parent: parent, ret: ret}
}

func (f *returnFixture) item(i int) tables.ReturnItem {
	return f.ret.Items[i]
}

func TestReturnFullChain(t *testing.T) {
	f := newReturnFixture(t, tables.ReturnStatusRequested, tables.ResolutionRefund)
	ctx := context.Background()

	for _, to := range []string{"approved", "in_transit", "received"} {
		res, err := f.svc.Transition(ctx, f.ret.ID, to, "", nil)
		require.NoError(t, err, to)
		assert.Equal(t, tables.ReturnStatus(to), res.Return.Status)
	}
	res, err := f.svc.Refund(ctx, f.ret.ID, "", nil)
	require.NoError(t, err)
	assert.Equal(t, tables.ReturnStatusRefunded, res.Return.Status)

	events, err := f.svc.Events(ctx, f.ret.ID)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, "Refund issued", *events[3].Note)

	_, err = f.svc.Transition(ctx, f.ret.ID, "approved", "", nil)
	assert.True(t, errors.Is(err, lib.ErrValidation))
}

func TestReturnInvalidEdges(t *testing.T) {
	f := newReturnFixture(t, tables.ReturnStatusRequested, tables.ResolutionReplacement)
	ctx := context.Background()

	_, err := f.svc.Transition(ctx, f.ret.ID, "received", "", nil)
	assert.True(t, errors.Is(err, lib.ErrValidation))

	_, err = f.svc.Transition(ctx, f.ret.ID, "replacement_shipped", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replacement flow")

	_, err = f.svc.Transition(ctx, f.ret.ID, "bogus", "", nil)
	assert.True(t, errors.Is(err, lib.ErrValidation))

	got, _ := f.svc.Get(ctx, f.ret.ID)
	assert.Equal(t, tables.ReturnStatusRequested, got.Status)
}

func TestReturnResolutionGate(t *testing.T) {
	f := newReturnFixture(t, tables.ReturnStatusReceived, tables.ResolutionReplacement)
	_, err := f.svc.Refund(context.Background(), f.ret.ID, "", nil)
	assert.True(t, errors.Is(err, lib.ErrValidation))

	credit := newReturnFixture(t, tables.ReturnStatusReceived, tables.ResolutionStoreCredit)
	res, err := credit.svc.Refund(context.Background(), credit.ret.ID, "", nil)
	require.NoError(t, err)
	assert.Equal(t, tables.ReturnStatusRefunded, res.Return.Status)

	refund := newReturnFixture(t, tables.ReturnStatusReceived, tables.ResolutionRefund)
	_, err = refund.svc.ShipReplacement(context.Background(), refund.ret.ID, structs.ReplacementRequest{
		Items: []structs.ReplacementItemRequest{{ReturnItemID: refund.item(0).ID, Qty: 1}},
	}, nil)
	assert.True(t, errors.Is(err, lib.ErrValidation))
	assert.Equal(t, 1, refund.store.OrderCount())
}

func TestReplacementRejectsEmptySelection(t *testing.T) {
	f := newReturnFixture(t, tables.ReturnStatusReceived, tables.ResolutionReplacement)

	_, err := f.svc.ShipReplacement(context.Background(), f.ret.ID, structs.ReplacementRequest{
		Items: []structs.ReplacementItemRequest{
			{ReturnItemID: f.item(0).ID, Qty: 0},
			{ReturnItemID: f.item(1).ID, Qty: 0},
		},
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, lib.ErrValidation))
	assert.Contains(t, err.Error(), "at least one item")
	assert.Equal(t, 1, f.store.OrderCount())

	got, _ := f.svc.Get(context.Background(), f.ret.ID)
	assert.Equal(t, tables.ReturnStatusReceived, got.Status)
}

func TestReplacementCreatesOrder(t *testing.T) {
	f := newReturnFixture(t, tables.ReturnStatusReceived, tables.ResolutionReplacement)
	ctx := context.Background()

	res, err := f.svc.ShipReplacement(ctx, f.ret.ID, structs.ReplacementRequest{
		Items: []structs.ReplacementItemRequest{
			{ReturnItemID: f.item(0).ID, Qty: 1},
			{ReturnItemID: f.item(1).ID, Qty: 1},
		},
		ShippingINR: 80,
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Warning)
	assert.Equal(t, 2, f.store.OrderCount())

	order := res.Order
	assert.Equal(t, tables.OrderStatusProcessing, order.Status)
	assert.Equal(t, int64(619), order.SubtotalINR)
	assert.Equal(t, int64(80), order.ShippingINR)
	assert.Equal(t, int64(699), order.TotalINR)
	assert.Equal(t, f.parent.UserID, order.UserID)
	assert.Equal(t, f.parent.AddressID, order.AddressID)
	assert.Equal(t, "Replacement for RMA RMA-1042", *order.Notes)

	names := map[string]bool{}
	for _, item := range order.Items {
		names[*item.NameSnapshot] = true
		assert.Equal(t, order.ID, item.OrderID)
	}
	assert.True(t, names["Brass Diya"])
	assert.True(t, names["Product"])

	assert.Equal(t, tables.ReturnStatusReplacementShipped, res.Return.Status)
	events, err := f.svc.Events(ctx, f.ret.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "replacement_shipped", events[0].Status)
	assert.True(t, strings.Contains(*events[0].Note, order.ID.String()))

	f.store.Lock()
	require.Len(t, f.store.OrderEvents, 1)
	assert.Equal(t, order.ID, f.store.OrderEvents[0].OrderID)
	f.store.Unlock()

	assert.Equal(t, []uuid.UUID{order.ID}, f.mailer.replacements)
}

func TestReplacementClampsShippingAndMergesLines(t *testing.T) {
	f := newReturnFixture(t, tables.ReturnStatusReceived, tables.ResolutionReplacement)

	res, err := f.svc.ShipReplacement(context.Background(), f.ret.ID, structs.ReplacementRequest{
		Items: []structs.ReplacementItemRequest{
			{ReturnItemID: f.item(0).ID, Qty: 1},
			{ReturnItemID: f.item(0).ID, Qty: 1},
		},
		ShippingINR: -40,
		Notes:       "Sent with gift wrap",
	}, nil)
	require.NoError(t, err)
	require.Len(t, res.Order.Items, 1)
	assert.Equal(t, 2, res.Order.Items[0].Qty)
	assert.Equal(t, int64(0), res.Order.ShippingINR)
	assert.Equal(t, int64(998), res.Order.TotalINR)
	assert.Equal(t, "Sent with gift wrap", *res.Order.Notes)
}

func TestReplacementQuantityLimits(t *testing.T) {
	f := newReturnFixture(t, tables.ReturnStatusReceived, tables.ResolutionReplacement)
	ctx := context.Background()

	_, err := f.svc.ShipReplacement(ctx, f.ret.ID, structs.ReplacementRequest{
		Items: []structs.ReplacementItemRequest{{ReturnItemID: f.item(0).ID, Qty: 3}},
	}, nil)
	assert.True(t, errors.Is(err, lib.ErrValidation))

	earlier := f.store.AddReturn(tables.Return{
		OrderID:    f.parent.ID,
		Status:     tables.ReturnStatusRefunded,
		Resolution: tables.ResolutionRefund,
		Items: []tables.ReturnItem{
			{OrderItemID: f.parent.Items[0].ID, ProductID: f.parent.Items[0].ProductID, Qty: 1},
		},
	})
	_, err = f.svc.ShipReplacement(ctx, f.ret.ID, structs.ReplacementRequest{
		Items: []structs.ReplacementItemRequest{{ReturnItemID: f.item(0).ID, Qty: 2}},
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remain on the order")

	_, err = f.svc.ShipReplacement(ctx, f.ret.ID, structs.ReplacementRequest{
		Items: []structs.ReplacementItemRequest{{ReturnItemID: earlier.Items[0].ID, Qty: 1}},
	}, nil)
	assert.True(t, errors.Is(err, lib.ErrValidation))
	assert.Equal(t, 1, f.store.OrderCount())
}

func TestReplacementSumsItemsSharingAnOrderItem(t *testing.T) {
	f := newReturnFixture(t, tables.ReturnStatusReceived, tables.ResolutionReplacement)
	ctx := context.Background()

	// a second return item on the same order item as item 0, which has qty 2
	f.store.Lock()
	split := tables.ReturnItem{
		ID:          uuid.New(),
		ReturnID:    f.ret.ID,
		OrderItemID: f.parent.Items[0].ID,
		ProductID:   f.parent.Items[0].ProductID,
		Qty:         2,
	}
	f.store.ReturnItems[split.ID] = split
	f.store.Unlock()

	_, err := f.svc.ShipReplacement(ctx, f.ret.ID, structs.ReplacementRequest{
		Items: []structs.ReplacementItemRequest{
			{ReturnItemID: f.item(0).ID, Qty: 2},
			{ReturnItemID: split.ID, Qty: 2},
		},
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, lib.ErrValidation))
	assert.Contains(t, err.Error(), "4 requested")
	assert.Equal(t, 1, f.store.OrderCount())

	res, err := f.svc.ShipReplacement(ctx, f.ret.ID, structs.ReplacementRequest{
		Items: []structs.ReplacementItemRequest{
			{ReturnItemID: f.item(0).ID, Qty: 1},
			{ReturnItemID: split.ID, Qty: 1},
		},
	}, nil)
	require.NoError(t, err)
	total := 0
	for _, item := range res.Order.Items {
		total += item.Qty
	}
	assert.Equal(t, 2, total)
}

func TestReplacementMissingAddressWritesNothing(t *testing.T) {
	f := newReturnFixture(t, tables.ReturnStatusReceived, tables.ResolutionReplacement)
	f.store.Lock()
	delete(f.store.Addresses, *f.parent.AddressID)
	f.store.Unlock()

	_, err := f.svc.ShipReplacement(context.Background(), f.ret.ID, structs.ReplacementRequest{
		Items: []structs.ReplacementItemRequest{{ReturnItemID: f.item(0).ID, Qty: 1}},
	}, nil)
	assert.True(t, errors.Is(err, lib.ErrValidation))
	assert.Equal(t, 1, f.store.OrderCount())
}

func TestReplacementInconsistentState(t *testing.T) {
	f := newReturnFixture(t, tables.ReturnStatusReceived, tables.ResolutionReplacement)
	f.store.Fail(memstore.OpReturnUpdate, lib.ErrTransient)
	req := structs.ReplacementRequest{
		Items: []structs.ReplacementItemRequest{{ReturnItemID: f.item(1).ID, Qty: 1}},
	}

	_, err := f.svc.ShipReplacement(context.Background(), f.ret.ID, req, nil)
	var inconsistent *lib.InconsistentStateError
	require.True(t, errors.As(err, &inconsistent))
	assert.Equal(t, StepOrderCreated, inconsistent.Step)
	assert.Equal(t, f.ret.ID, inconsistent.ReturnID)
	assert.NotEqual(t, uuid.Nil, inconsistent.OrderID)
	assert.Equal(t, 2, f.store.OrderCount())

	g := newReturnFixture(t, tables.ReturnStatusReceived, tables.ResolutionReplacement)
	g.store.Fail(memstore.OpReturnEventAppend, lib.ErrTransient)
	req.Items[0].ReturnItemID = g.item(1).ID
	_, err = g.svc.ShipReplacement(context.Background(), g.ret.ID, req, nil)
	require.True(t, errors.As(err, &inconsistent))
	assert.Equal(t, StepReturnUpdated, inconsistent.Step)
}

func TestReplacementOrderLedgerFailureIsWarning(t *testing.T) {
	f := newReturnFixture(t, tables.ReturnStatusReceived, tables.ResolutionReplacement)
	f.store.Fail(memstore.OpOrderEventAppend, lib.ErrTransient)

	res, err := f.svc.ShipReplacement(context.Background(), f.ret.ID, structs.ReplacementRequest{
		Items: []structs.ReplacementItemRequest{{ReturnItemID: f.item(1).ID, Qty: 1}},
	}, nil)
	require.NoError(t, err)
	assert.Contains(t, res.Warning, "order timeline entry")
	assert.Equal(t, tables.ReturnStatusReplacementShipped, res.Return.Status)
}

func TestReturnAdminNotes(t *testing.T) {
	f := newReturnFixture(t, tables.ReturnStatusApproved, tables.ResolutionRefund)
	got, err := f.svc.UpdateAdminNotes(context.Background(), f.ret.ID, "Box was damaged")
	require.NoError(t, err)
	assert.Equal(t, "Box was damaged", *got.AdminNotes)

	_, err = f.svc.UpdateAdminNotes(context.Background(), uuid.New(), "x")
	assert.True(t, errors.Is(err, lib.ErrNotFound))
}

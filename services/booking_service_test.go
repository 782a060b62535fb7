package services

import (
	"context"
	"errors"
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

func newBookingFixture(t *testing.T, status tables.BookingStatus) (*BookingService, *memstore.Store, *recordingNotifier, tables.Booking) {
	t.Helper()
	store := memstore.New()
	store.SetClock(func() time.Time { return fixedNow })
	notifier := &recordingNotifier{}
	svc := NewBookingService(testLogger(), store.Repositories(), notifier)
	svc.now = func() time.Time { return fixedNow }
	booking := store.AddBooking(tables.Booking{Status: status, TotalINR: 2100})
	return svc, store, notifier, booking
}

func TestBookingTransitions(t *testing.T) {
	tests := []struct {
		from tables.BookingStatus
		to   string
		ok   bool
	}{
		{tables.BookingStatusHold, "confirmed", true},
		{tables.BookingStatusHold, "cancelled", true},
		{tables.BookingStatusHold, "completed", false},
		{tables.BookingStatusConfirmed, "completed", true},
		{tables.BookingStatusConfirmed, "cancelled", true},
		{tables.BookingStatusConfirmed, "hold", false},
		{tables.BookingStatusCompleted, "cancelled", false},
		{tables.BookingStatusCancelled, "confirmed", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+tt.to, func(t *testing.T) {
			svc, store, _, booking := newBookingFixture(t, tt.from)

			res, err := svc.Transition(context.Background(), booking.ID, tt.to, "", nil)
			if !tt.ok {
				assert.True(t, errors.Is(err, lib.ErrValidation))
				store.Lock()
				defer store.Unlock()
				assert.Equal(t, tt.from, store.Bookings[booking.ID].Status)
				assert.Empty(t, store.BookingEvents)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tables.BookingStatus(tt.to), res.Booking.Status)
			assert.Empty(t, res.Warning)
		})
	}
}

func TestBookingTransitionRecordsEvent(t *testing.T) {
	svc, _, notifier, booking := newBookingFixture(t, tables.BookingStatusHold)
	actor := uuid.New()

	_, err := svc.Transition(context.Background(), booking.ID, "confirmed", "pandit called back", &actor)
	require.NoError(t, err)

	events, err := svc.Events(context.Background(), booking.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "confirmed", events[0].Type)
	require.NotNil(t, events[0].Message)
	assert.Equal(t, "pandit called back", *events[0].Message)
	require.NotNil(t, events[0].ActorID)
	assert.Equal(t, actor, *events[0].ActorID)
	assert.Equal(t, fixedNow, events[0].CreatedAt)

	assert.Equal(t, []structs.TableChange{
		{Table: "bookings", Op: "update", ID: booking.ID.String()},
		{Table: "booking_events", Op: "insert", ID: booking.ID.String()},
	}, notifier.changes)

	_, err = svc.Transition(context.Background(), booking.ID, "completed", "", nil)
	require.NoError(t, err)
	events, err = svc.Events(context.Background(), booking.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "completed", events[1].Type)
	assert.Nil(t, events[1].Message)
	assert.Nil(t, events[1].ActorID)
}

func TestBookingSameStatusIsNoop(t *testing.T) {
	svc, store, notifier, booking := newBookingFixture(t, tables.BookingStatusConfirmed)
	store.Fail(memstore.OpBookingUpdate, lib.ErrTransient)

	res, err := svc.Transition(context.Background(), booking.ID, "confirmed", "again", nil)
	require.NoError(t, err)
	assert.Equal(t, tables.BookingStatusConfirmed, res.Booking.Status)
	assert.Empty(t, notifier.changes)

	store.Lock()
	defer store.Unlock()
	assert.Empty(t, store.BookingEvents)
}

func TestBookingTransitionErrors(t *testing.T) {
	svc, store, _, booking := newBookingFixture(t, tables.BookingStatusHold)
	ctx := context.Background()

	_, err := svc.Transition(ctx, booking.ID, "postponed", "", nil)
	assert.True(t, errors.Is(err, lib.ErrValidation))

	_, err = svc.Transition(ctx, uuid.New(), "confirmed", "", nil)
	assert.True(t, errors.Is(err, lib.ErrNotFound))

	_, err = svc.Events(ctx, uuid.New())
	assert.True(t, errors.Is(err, lib.ErrNotFound))

	store.Fail(memstore.OpBookingUpdate, lib.ErrConflict)
	_, err = svc.Transition(ctx, booking.ID, "confirmed", "", nil)
	assert.True(t, errors.Is(err, lib.ErrConflict))
}

func TestBookingLedgerFailureIsAWarning(t *testing.T) {
	svc, store, _, booking := newBookingFixture(t, tables.BookingStatusHold)
	store.Fail(memstore.OpBookingEventAppend, errors.New("ledger offline"))

	res, err := svc.Transition(context.Background(), booking.ID, "cancelled", "", nil)
	require.NoError(t, err)
	assert.Equal(t, tables.BookingStatusCancelled, res.Booking.Status)
	assert.Contains(t, res.Warning, "ledger offline")

	store.Lock()
	defer store.Unlock()
	assert.Equal(t, tables.BookingStatusCancelled, store.Bookings[booking.ID].Status)
	assert.Empty(t, store.BookingEvents)
}

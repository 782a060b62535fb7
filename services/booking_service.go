package services

import (
	"context"
	"fmt"
	"storeadmin_server/lib"
	"storeadmin_server/repository"
	"storeadmin_server/structs"
	"storeadmin_server/structs/tables"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/google/uuid"
)

// BookingService moves pandit bookings through hold, confirmed and completed,
// with cancellation open until completion
type BookingService struct {
	logger   *gecho.Logger
	bookings repository.BookingRepository
	events   repository.BookingEventRepository
	notifier ChangeNotifier
	now      func() time.Time
}

func NewBookingService(logger *gecho.Logger, repos *repository.Repositories, notifier ChangeNotifier) *BookingService {
	return &BookingService{
		logger:   logger,
		bookings: repos.Bookings,
		events:   repos.BookingEvents,
		notifier: notifier,
		now:      time.Now,
	}
}

func (bs *BookingService) Get(ctx context.Context, id uuid.UUID) (*tables.Booking, error) {
	return bs.bookings.Get(ctx, id)
}

func (bs *BookingService) Events(ctx context.Context, id uuid.UUID) ([]tables.BookingEvent, error) {
	if _, err := bs.bookings.Get(ctx, id); err != nil {
		return nil, err
	}
	return bs.events.List(ctx, id)
}

// Transition moves the booking to status to. Asking for the current status is
// a no-op and writes no timeline entry.
func (bs *BookingService) Transition(ctx context.Context, id uuid.UUID, to string, note string, actor *uuid.UUID) (*structs.BookingResult, error) {
	target, ok := ParseBookingStatus(to)
	if !ok {
		return nil, lib.NewInputError("unknown booking status %q", to)
	}

	booking, err := bs.bookings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status == target {
		return &structs.BookingResult{Booking: booking}, nil
	}
	if !CanTransitionBooking(booking.Status, target) {
		return nil, lib.NewInputError("cannot move booking from %s to %s", booking.Status, target)
	}

	from := booking.Status
	updated, err := bs.bookings.Update(ctx, id, structs.BookingPatch{ExpectStatus: &from, Status: &target})
	if err != nil {
		return nil, fmt.Errorf("updating booking %s: %w", id, err)
	}
	transitions.WithLabelValues("booking", string(target)).Inc()
	bs.logger.Info("Booking status changed",
		gecho.Field("booking_id", id),
		gecho.Field("from", from),
		gecho.Field("to", target),
	)
	notifyChange(ctx, bs.notifier, "bookings", "update", id)

	return &structs.BookingResult{Booking: updated, Warning: bs.appendEvent(ctx, id, target, note, actor)}, nil
}

// appendEvent records the committed move. An empty note is stored as NULL.
func (bs *BookingService) appendEvent(ctx context.Context, id uuid.UUID, status tables.BookingStatus, note string, actor *uuid.UUID) string {
	event := &tables.BookingEvent{
		BookingID: id,
		Type:      string(status),
		CreatedAt: bs.now(),
		ActorID:   actor,
	}
	if note != "" {
		event.Message = &note
	}

	if err := bs.events.Append(ctx, event); err != nil {
		ledgerFailures.WithLabelValues("booking").Inc()
		bs.logger.Error("Booking event append failed after committed update",
			gecho.Field("booking_id", id),
			gecho.Field("status", status),
			gecho.Field("error", err),
		)
		return fmt.Sprintf("booking updated but the timeline entry could not be saved: %v", err)
	}
	notifyChange(ctx, bs.notifier, "booking_events", "insert", id)
	return ""
}

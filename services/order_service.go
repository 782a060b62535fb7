package services

import (
	"context"
	"fmt"
	"storeadmin_server/lib"
	"storeadmin_server/repository"
	"storeadmin_server/structs"
	"storeadmin_server/structs/tables"
	"strings"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/google/uuid"
)

type OrderService struct {
	logger   *gecho.Logger
	orders   repository.OrderRepository
	events   repository.OrderEventRepository
	notifier ChangeNotifier
	mailer   Mailer
	now      func() time.Time
}

// NewOrderService builds the order lifecycle. notifier and mailer may be nil.
func NewOrderService(
	logger *gecho.Logger,
	repos *repository.Repositories,
	notifier ChangeNotifier,
	mailer Mailer,
) *OrderService {
	return &OrderService{
		logger:   logger,
		orders:   repos.Orders,
		events:   repos.OrderEvents,
		notifier: notifier,
		mailer:   mailer,
		now:      time.Now,
	}
}

func (os *OrderService) Get(ctx context.Context, id uuid.UUID) (*tables.Order, error) {
	return os.orders.Get(ctx, id)
}

// Events returns the order's ledger, oldest first
func (os *OrderService) Events(ctx context.Context, id uuid.UUID) ([]tables.OrderEvent, error) {
	if _, err := os.orders.Get(ctx, id); err != nil {
		return nil, err
	}
	return os.events.List(ctx, id)
}

// Transition moves the order along one edge of the lifecycle. Requesting the
// current status is a no-op, which keeps shipped_at and delivered_at stable.
func (os *OrderService) Transition(ctx context.Context, id uuid.UUID, to string, note string, actor *uuid.UUID) (*structs.OrderResult, error) {
	target, ok := ParseOrderStatus(to)
	if !ok {
		return nil, lib.NewInputError("unknown order status %q", to)
	}

	order, err := os.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status == target {
		return &structs.OrderResult{Order: order}, nil
	}
	if OrderTerminal(order.Status) {
		return nil, lib.NewInputError("order is %s and can no longer change status", order.Status)
	}
	if !CanTransitionOrder(order.Status, target) {
		return nil, lib.NewInputError("cannot move order from %s to %s", order.Status, target)
	}
	if target == tables.OrderStatusShipped && !order.HasShipment() {
		return nil, lib.NewInputError("carrier and tracking number are required before shipping")
	}

	now := os.now()
	from := order.Status
	patch := structs.OrderPatch{ExpectStatus: &from, Status: &target}
	if target == tables.OrderStatusShipped && order.ShippedAt == nil {
		patch.ShippedAt = &now
	}
	if target == tables.OrderStatusDelivered && order.DeliveredAt == nil {
		patch.DeliveredAt = &now
	}

	updated, err := os.orders.Update(ctx, id, patch)
	if err != nil {
		os.logger.Warn("Order transition failed",
			gecho.Field("order_id", id),
			gecho.Field("from", from),
			gecho.Field("to", target),
			gecho.Field("error", err),
		)
		return nil, fmt.Errorf("updating order %s: %w", id, err)
	}
	transitions.WithLabelValues("order", string(target)).Inc()
	os.logger.Info("Order status changed",
		gecho.Field("order_id", id),
		gecho.Field("from", from),
		gecho.Field("to", target),
	)
	os.publish(ctx, id)

	if note == "" {
		note = fmt.Sprintf("Status updated to %s", target)
	}
	warning := os.appendEvent(ctx, id, string(target), note, actor)
	return &structs.OrderResult{Order: updated, Warning: warning}, nil
}

// ShipmentInput is a tracking save. CourierName defaults to Carrier.
type ShipmentInput struct {
	Carrier        string
	CourierName    string
	TrackingNumber string
	TrackingURL    string
}

// Ship records tracking and, unless the order already left, moves it to
// shipped in the same row update
func (os *OrderService) Ship(ctx context.Context, id uuid.UUID, in ShipmentInput, actor *uuid.UUID) (*structs.OrderResult, error) {
	in.Carrier = strings.TrimSpace(in.Carrier)
	in.CourierName = strings.TrimSpace(in.CourierName)
	in.TrackingNumber = strings.TrimSpace(in.TrackingNumber)
	in.TrackingURL = strings.TrimSpace(in.TrackingURL)

	if in.Carrier == "" || in.TrackingNumber == "" {
		return nil, lib.NewInputError("carrier and tracking number are required")
	}
	if in.TrackingURL != "" && !isHTTPURL(in.TrackingURL) {
		return nil, lib.NewInputError("tracking URL must be an http or https URL")
	}
	if in.CourierName == "" {
		in.CourierName = in.Carrier
	}

	order, err := os.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	from := order.Status
	patch := structs.OrderPatch{
		ExpectStatus:   &from,
		Carrier:        &in.Carrier,
		CourierName:    &in.CourierName,
		TrackingNumber: &in.TrackingNumber,
		TrackingURL:    &in.TrackingURL,
	}

	shipping := false
	switch from {
	case tables.OrderStatusShipped, tables.OrderStatusDelivered:
		// tracking correction only
	case tables.OrderStatusProcessing:
		shipping = true
		status := tables.OrderStatusShipped
		patch.Status = &status
		if order.ShippedAt == nil {
			now := os.now()
			patch.ShippedAt = &now
		}
	default:
		return nil, lib.NewInputError("order is %s, only processing orders can be shipped", from)
	}

	updated, err := os.orders.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("saving shipment for order %s: %w", id, err)
	}
	if shipping {
		transitions.WithLabelValues("order", string(tables.OrderStatusShipped)).Inc()
	}
	os.logger.Info("Order tracking saved",
		gecho.Field("order_id", id),
		gecho.Field("carrier", in.Carrier),
		gecho.Field("shipped", shipping),
	)
	os.publish(ctx, id)

	parts := []string{in.CourierName, in.TrackingNumber}
	if in.TrackingURL != "" {
		parts = append(parts, in.TrackingURL)
	}
	note := "Tracking set: " + strings.Join(parts, " • ")
	warning := os.appendEvent(ctx, id, string(updated.Status), note, actor)

	if shipping {
		os.sendShipmentNotice(ctx, updated)
	}
	return &structs.OrderResult{Order: updated, Warning: warning}, nil
}

// AddTimelineEntry appends a ledger entry without touching the order. status
// is free text and defaults to the current status.
func (os *OrderService) AddTimelineEntry(ctx context.Context, id uuid.UUID, status string, note string, actor *uuid.UUID) (*tables.OrderEvent, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, lib.NewInputError("note is required")
	}

	order, err := os.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if status = strings.TrimSpace(status); status == "" {
		status = string(order.Status)
	}

	event := &tables.OrderEvent{
		OrderID:   id,
		Status:    status,
		Note:      &note,
		CreatedAt: os.now(),
		CreatedBy: actor,
	}
	if err := os.events.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("appending event for order %s: %w", id, err)
	}
	os.publishTable(ctx, "order_events", "insert", id)
	return event, nil
}

// UpdateAdminNotes overwrites the internal notes, last write wins
func (os *OrderService) UpdateAdminNotes(ctx context.Context, id uuid.UUID, notes string) (*tables.Order, error) {
	updated, err := os.orders.Update(ctx, id, structs.OrderPatch{AdminNotes: &notes})
	if err != nil {
		return nil, err
	}
	os.publish(ctx, id)
	return updated, nil
}

// appendEvent writes the ledger entry that follows a committed change. The
// change stands whatever happens here, a failure comes back as a warning.
func (os *OrderService) appendEvent(ctx context.Context, id uuid.UUID, status, note string, actor *uuid.UUID) string {
	event := &tables.OrderEvent{
		OrderID:   id,
		Status:    status,
		Note:      &note,
		CreatedAt: os.now(),
		CreatedBy: actor,
	}
	if err := os.events.Append(ctx, event); err != nil {
		ledgerFailures.WithLabelValues("order").Inc()
		os.logger.Error("Order event append failed after committed update",
			gecho.Field("order_id", id),
			gecho.Field("status", status),
			gecho.Field("error", err),
		)
		return fmt.Sprintf("order updated but the timeline entry could not be saved: %v", err)
	}
	os.publishTable(ctx, "order_events", "insert", id)
	return ""
}

func (os *OrderService) sendShipmentNotice(ctx context.Context, order *tables.Order) {
	if os.mailer == nil || order.AddressID == nil {
		return
	}
	address, err := os.orders.GetAddress(ctx, *order.AddressID)
	if err != nil {
		os.logger.Warn("Shipment notice skipped, address lookup failed",
			gecho.Field("order_id", order.ID),
			gecho.Field("error", err),
		)
		return
	}
	if err := os.mailer.SendShipmentNotice(ctx, order, address); err != nil {
		os.logger.Warn("Shipment notice failed", gecho.Field("order_id", order.ID), gecho.Field("error", err))
	}
}

func (os *OrderService) publish(ctx context.Context, id uuid.UUID) {
	os.publishTable(ctx, "orders", "update", id)
}

func (os *OrderService) publishTable(ctx context.Context, table, op string, id uuid.UUID) {
	notifyChange(ctx, os.notifier, table, op, id)
}

package services

import (
	"context"
	"errors"
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

// Steps of the replacement flow named by InconsistentStateError
const (
	StepOrderCreated  = "order_created"
	StepReturnUpdated = "return_updated"
)

const fallbackItemName = "Product"

type ReturnService struct {
	logger      *gecho.Logger
	returns     repository.ReturnRepository
	events      repository.ReturnEventRepository
	orders      repository.OrderRepository
	orderEvents repository.OrderEventRepository
	notifier    ChangeNotifier
	mailer      Mailer
	now         func() time.Time
}

// NewReturnService builds the return lifecycle. notifier and mailer may be nil.
func NewReturnService(
	logger *gecho.Logger,
	repos *repository.Repositories,
	notifier ChangeNotifier,
	mailer Mailer,
) *ReturnService {
	return &ReturnService{
		logger:      logger,
		returns:     repos.Returns,
		events:      repos.ReturnEvents,
		orders:      repos.Orders,
		orderEvents: repos.OrderEvents,
		notifier:    notifier,
		mailer:      mailer,
		now:         time.Now,
	}
}

func (rs *ReturnService) Get(ctx context.Context, id uuid.UUID) (*tables.Return, error) {
	return rs.returns.Get(ctx, id)
}

func (rs *ReturnService) Events(ctx context.Context, id uuid.UUID) ([]tables.ReturnEvent, error) {
	if _, err := rs.returns.Get(ctx, id); err != nil {
		return nil, err
	}
	return rs.events.List(ctx, id)
}

// Transition follows a plain edge. replacement_shipped is only reachable
// through ShipReplacement.
func (rs *ReturnService) Transition(ctx context.Context, id uuid.UUID, to string, note string, actor *uuid.UUID) (*structs.ReturnResult, error) {
	target, ok := ParseReturnStatus(to)
	if !ok {
		return nil, lib.NewInputError("unknown return status %q", to)
	}
	if target == tables.ReturnStatusReplacementShipped {
		return nil, lib.NewInputError("use the replacement flow to ship a replacement")
	}

	ret, err := rs.returns.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ret.Status == target {
		return &structs.ReturnResult{Return: ret}, nil
	}
	if err := CheckReturnTransition(ret.Status, target, ret.Resolution); err != nil {
		return nil, err
	}

	from := ret.Status
	updated, err := rs.returns.Update(ctx, id, structs.ReturnPatch{ExpectStatus: &from, Status: &target})
	if err != nil {
		return nil, fmt.Errorf("updating return %s: %w", id, err)
	}
	transitions.WithLabelValues("return", string(target)).Inc()
	rs.logger.Info("Return status changed",
		gecho.Field("return_id", id),
		gecho.Field("from", from),
		gecho.Field("to", target),
	)
	notifyChange(ctx, rs.notifier, "returns", "update", id)

	if note == "" {
		note = fmt.Sprintf("Status updated to %s", target)
	}
	warning := rs.appendEvent(ctx, id, string(target), note, actor)
	return &structs.ReturnResult{Return: updated, Warning: warning}, nil
}

// Refund marks a received return refunded. Moving money is not part of this.
func (rs *ReturnService) Refund(ctx context.Context, id uuid.UUID, note string, actor *uuid.UUID) (*structs.ReturnResult, error) {
	if note == "" {
		note = "Refund issued"
	}
	return rs.Transition(ctx, id, string(tables.ReturnStatusRefunded), note, actor)
}

type replacementLine struct {
	item      tables.ReturnItem
	orderItem tables.OrderItem
	qty       int
}

// ShipReplacement creates a replacement order for a received return and
// moves the return to replacement_shipped. Nothing is written until the
// selection and the address check out. Past order creation there is no
// rollback, a later failure comes back as *lib.InconsistentStateError.
func (rs *ReturnService) ShipReplacement(ctx context.Context, id uuid.UUID, in structs.ReplacementRequest, actor *uuid.UUID) (*structs.ReplacementResult, error) {
	ret, err := rs.returns.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ret.Status != tables.ReturnStatusReceived {
		return nil, lib.NewInputError("return is %s, a replacement ships only after it is received", ret.Status)
	}
	if err := CheckReturnTransition(ret.Status, tables.ReturnStatusReplacementShipped, ret.Resolution); err != nil {
		return nil, err
	}

	lines, err := rs.selectReplacement(ctx, ret, in.Items)
	if err != nil {
		return nil, err
	}

	parent, address, err := rs.resolveAddress(ctx, ret)
	if err != nil {
		return nil, err
	}

	order, items := rs.draftReplacement(ret, parent, lines, in)
	if err := rs.orders.CreateWithItems(ctx, order, items); err != nil {
		return nil, fmt.Errorf("creating replacement order for return %s: %w", id, err)
	}
	order.Items = items
	rs.logger.Info("Replacement order created",
		gecho.Field("return_id", id),
		gecho.Field("order_id", order.ID),
		gecho.Field("total_inr", order.TotalINR),
	)
	notifyChange(ctx, rs.notifier, "orders", "insert", order.ID)

	received := tables.ReturnStatusReceived
	shipped := tables.ReturnStatusReplacementShipped
	updated, err := rs.returns.Update(ctx, id, structs.ReturnPatch{ExpectStatus: &received, Status: &shipped})
	if err != nil {
		rs.logger.Error("Replacement order left without a return update",
			gecho.Field("return_id", id),
			gecho.Field("order_id", order.ID),
			gecho.Field("error", err),
		)
		return nil, &lib.InconsistentStateError{Step: StepOrderCreated, ReturnID: id, OrderID: order.ID, Err: err}
	}
	transitions.WithLabelValues("return", string(shipped)).Inc()
	notifyChange(ctx, rs.notifier, "returns", "update", id)

	// the ledger entry is the only link from the return to its replacement order
	note := fmt.Sprintf("Replacement order %s created", order.ID)
	if err := rs.events.Append(ctx, rs.newEvent(id, string(shipped), note, actor)); err != nil {
		ledgerFailures.WithLabelValues("return").Inc()
		rs.logger.Error("Replacement event append failed",
			gecho.Field("return_id", id),
			gecho.Field("order_id", order.ID),
			gecho.Field("error", err),
		)
		return nil, &lib.InconsistentStateError{Step: StepReturnUpdated, ReturnID: id, OrderID: order.ID, Err: err}
	}
	notifyChange(ctx, rs.notifier, "return_events", "insert", id)

	warning := ""
	orderNote := *order.Notes
	orderEvent := &tables.OrderEvent{
		OrderID:   order.ID,
		Status:    string(order.Status),
		Note:      &orderNote,
		CreatedAt: rs.now(),
		CreatedBy: actor,
	}
	if err := rs.orderEvents.Append(ctx, orderEvent); err != nil {
		ledgerFailures.WithLabelValues("order").Inc()
		rs.logger.Warn("Replacement order event append failed", gecho.Field("order_id", order.ID), gecho.Field("error", err))
		warning = fmt.Sprintf("replacement created but its order timeline entry could not be saved: %v", err)
	}

	if rs.mailer != nil {
		if err := rs.mailer.SendReplacementNotice(ctx, updated, order, address); err != nil {
			rs.logger.Warn("Replacement notice failed", gecho.Field("return_id", id), gecho.Field("error", err))
		}
	}

	return &structs.ReplacementResult{Return: updated, Order: order, Warning: warning}, nil
}

// selectReplacement checks every requested quantity against the return item
// and against what is left of the order item after other returns
func (rs *ReturnService) selectReplacement(ctx context.Context, ret *tables.Return, requested []structs.ReplacementItemRequest) ([]replacementLine, error) {
	byID := make(map[uuid.UUID]tables.ReturnItem, len(ret.Items))
	for _, item := range ret.Items {
		byID[item.ID] = item
	}

	qty := map[uuid.UUID]int{}
	var order []uuid.UUID
	for _, req := range requested {
		if req.Qty < 0 {
			return nil, lib.NewInputError("quantity for item %s cannot be negative", req.ReturnItemID)
		}
		if req.Qty == 0 {
			continue
		}
		if _, ok := byID[req.ReturnItemID]; !ok {
			return nil, lib.NewInputError("item %s is not part of this return", req.ReturnItemID)
		}
		if _, seen := qty[req.ReturnItemID]; !seen {
			order = append(order, req.ReturnItemID)
		}
		qty[req.ReturnItemID] += req.Qty
	}
	if len(order) == 0 {
		return nil, lib.NewInputError("select at least one item with a quantity above zero")
	}

	// several return items may point at one order item, the bound applies to their sum
	perOrderItem := map[uuid.UUID]int{}
	var orderItemIDs []uuid.UUID
	for _, id := range order {
		item := byID[id]
		if qty[id] > item.Qty {
			return nil, lib.NewInputError("only %d of item %s were returned", item.Qty, id)
		}
		if _, seen := perOrderItem[item.OrderItemID]; !seen {
			orderItemIDs = append(orderItemIDs, item.OrderItemID)
		}
		perOrderItem[item.OrderItemID] += qty[id]
	}

	orderItems, err := rs.orders.ItemsByIDs(ctx, orderItemIDs)
	if err != nil {
		return nil, fmt.Errorf("loading order items: %w", err)
	}
	orderItemByID := make(map[uuid.UUID]tables.OrderItem, len(orderItems))
	for _, oi := range orderItems {
		orderItemByID[oi.ID] = oi
	}
	elsewhere, err := rs.returns.ReturnedQty(ctx, orderItemIDs, ret.ID)
	if err != nil {
		return nil, fmt.Errorf("loading returned quantities: %w", err)
	}

	lines := make([]replacementLine, 0, len(order))
	for _, id := range order {
		item := byID[id]
		oi, ok := orderItemByID[item.OrderItemID]
		if !ok {
			return nil, lib.NewInputError("order item for return item %s no longer exists", id)
		}
		remaining := oi.Qty - elsewhere[oi.ID]
		if perOrderItem[oi.ID] > remaining {
			return nil, lib.NewInputError("only %d of order item %s remain on the order, %d requested", max(remaining, 0), oi.ID, perOrderItem[oi.ID])
		}
		lines = append(lines, replacementLine{item: item, orderItem: oi, qty: qty[id]})
	}
	return lines, nil
}

func (rs *ReturnService) resolveAddress(ctx context.Context, ret *tables.Return) (*tables.Order, *tables.Address, error) {
	parent, err := rs.orders.Get(ctx, ret.OrderID)
	if errors.Is(err, lib.ErrNotFound) {
		return nil, nil, lib.NewInputError("original order %s not found", ret.OrderID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading original order: %w", err)
	}
	if parent.AddressID == nil {
		return nil, nil, lib.NewInputError("original order has no shipping address")
	}
	address, err := rs.orders.GetAddress(ctx, *parent.AddressID)
	if errors.Is(err, lib.ErrNotFound) {
		return nil, nil, lib.NewInputError("shipping address of the original order not found")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading shipping address: %w", err)
	}
	return parent, address, nil
}

func (rs *ReturnService) draftReplacement(ret *tables.Return, parent *tables.Order, lines []replacementLine, in structs.ReplacementRequest) (*tables.Order, []tables.OrderItem) {
	items := make([]tables.OrderItem, 0, len(lines))
	var subtotal int64
	for _, l := range lines {
		name := fallbackItemName
		if l.orderItem.NameSnapshot != nil && strings.TrimSpace(*l.orderItem.NameSnapshot) != "" {
			name = *l.orderItem.NameSnapshot
		}
		items = append(items, tables.OrderItem{
			ProductID:    l.item.ProductID,
			Qty:          l.qty,
			PriceINR:     l.orderItem.PriceINR,
			NameSnapshot: &name,
		})
		subtotal += int64(l.qty) * l.orderItem.PriceINR
	}

	shipping := max(in.ShippingINR, 0)
	notes := strings.TrimSpace(in.Notes)
	if notes == "" {
		notes = fmt.Sprintf("Replacement for RMA %s", ret.DisplayCode())
	}

	userID := parent.UserID
	if userID == nil {
		userID = ret.UserID
	}

	order := &tables.Order{
		UserID:      userID,
		AddressID:   parent.AddressID,
		Status:      tables.OrderStatusProcessing,
		SubtotalINR: subtotal,
		ShippingINR: shipping,
		TotalINR:    subtotal + shipping,
		Notes:       &notes,
	}
	return order, items
}

// UpdateAdminNotes overwrites the internal notes, last write wins
func (rs *ReturnService) UpdateAdminNotes(ctx context.Context, id uuid.UUID, notes string) (*tables.Return, error) {
	updated, err := rs.returns.Update(ctx, id, structs.ReturnPatch{AdminNotes: &notes})
	if err != nil {
		return nil, err
	}
	notifyChange(ctx, rs.notifier, "returns", "update", id)
	return updated, nil
}

func (rs *ReturnService) newEvent(id uuid.UUID, status, note string, actor *uuid.UUID) *tables.ReturnEvent {
	return &tables.ReturnEvent{
		ReturnID:  id,
		Status:    status,
		Note:      &note,
		CreatedAt: rs.now(),
		CreatedBy: actor,
	}
}

func (rs *ReturnService) appendEvent(ctx context.Context, id uuid.UUID, status, note string, actor *uuid.UUID) string {
	if err := rs.events.Append(ctx, rs.newEvent(id, status, note, actor)); err != nil {
		ledgerFailures.WithLabelValues("return").Inc()
		rs.logger.Error("Return event append failed after committed update",
			gecho.Field("return_id", id),
			gecho.Field("status", status),
			gecho.Field("error", err),
		)
		return fmt.Sprintf("return updated but the timeline entry could not be saved: %v", err)
	}
	notifyChange(ctx, rs.notifier, "return_events", "insert", id)
	return ""
}

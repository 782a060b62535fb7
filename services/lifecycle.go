package services

import (
	"slices"
	"storeadmin_server/lib"
	"storeadmin_server/structs/tables"
)

var orderTransitions = map[tables.OrderStatus][]tables.OrderStatus{
	tables.OrderStatusPending:    {tables.OrderStatusPaid, tables.OrderStatusProcessing, tables.OrderStatusCancelled},
	tables.OrderStatusPaid:       {tables.OrderStatusProcessing, tables.OrderStatusCancelled},
	tables.OrderStatusProcessing: {tables.OrderStatusShipped, tables.OrderStatusCancelled},
	tables.OrderStatusShipped:    {tables.OrderStatusDelivered, tables.OrderStatusCancelled},
}

var returnTransitions = map[tables.ReturnStatus][]tables.ReturnStatus{
	tables.ReturnStatusRequested: {tables.ReturnStatusApproved, tables.ReturnStatusRejected},
	tables.ReturnStatusApproved:  {tables.ReturnStatusInTransit},
	tables.ReturnStatusInTransit: {tables.ReturnStatusReceived},
	tables.ReturnStatusReceived:  {tables.ReturnStatusRefunded, tables.ReturnStatusReplacementShipped},
}

var bookingTransitions = map[tables.BookingStatus][]tables.BookingStatus{
	tables.BookingStatusHold:      {tables.BookingStatusConfirmed, tables.BookingStatusCancelled},
	tables.BookingStatusConfirmed: {tables.BookingStatusCompleted, tables.BookingStatusCancelled},
}

func ParseOrderStatus(s string) (tables.OrderStatus, bool) {
	status := tables.OrderStatus(s)
	switch status {
	case tables.OrderStatusPending, tables.OrderStatusPaid, tables.OrderStatusProcessing,
		tables.OrderStatusShipped, tables.OrderStatusDelivered, tables.OrderStatusCancelled:
		return status, true
	}
	return "", false
}

func ParseReturnStatus(s string) (tables.ReturnStatus, bool) {
	status := tables.ReturnStatus(s)
	switch status {
	case tables.ReturnStatusRequested, tables.ReturnStatusApproved, tables.ReturnStatusInTransit,
		tables.ReturnStatusReceived, tables.ReturnStatusRefunded, tables.ReturnStatusReplacementShipped,
		tables.ReturnStatusRejected:
		return status, true
	}
	return "", false
}

func ParseBookingStatus(s string) (tables.BookingStatus, bool) {
	status := tables.BookingStatus(s)
	switch status {
	case tables.BookingStatusHold, tables.BookingStatusConfirmed,
		tables.BookingStatusCompleted, tables.BookingStatusCancelled:
		return status, true
	}
	return "", false
}

func CanTransitionBooking(from, to tables.BookingStatus) bool {
	return slices.Contains(bookingTransitions[from], to)
}

func CanTransitionOrder(from, to tables.OrderStatus) bool {
	return slices.Contains(orderTransitions[from], to)
}

// CheckReturnTransition validates the edge and the resolution gate on it
func CheckReturnTransition(from, to tables.ReturnStatus, resolution tables.ReturnResolution) error {
	if !slices.Contains(returnTransitions[from], to) {
		return lib.NewInputError("cannot move return from %s to %s", from, to)
	}
	switch to {
	case tables.ReturnStatusRefunded:
		if resolution != tables.ResolutionRefund && resolution != tables.ResolutionStoreCredit {
			return lib.NewInputError("return with resolution %s cannot be refunded", resolution)
		}
	case tables.ReturnStatusReplacementShipped:
		if resolution != tables.ResolutionReplacement {
			return lib.NewInputError("return with resolution %s cannot ship a replacement", resolution)
		}
	}
	return nil
}

// OrderTerminal reports whether no edge leaves status
func OrderTerminal(status tables.OrderStatus) bool {
	return len(orderTransitions[status]) == 0
}

func ReturnOpen(status tables.ReturnStatus) bool {
	switch status {
	case tables.ReturnStatusRequested, tables.ReturnStatusApproved,
		tables.ReturnStatusInTransit, tables.ReturnStatusReceived:
		return true
	}
	return false
}

package services

import (
	"storeadmin_server/structs"
	"storeadmin_server/structs/tables"
	"time"

	"github.com/google/uuid"
)

const unknownStatus = "unknown"

// StatsWindow is the clock snapshot a statistics run is computed against
type StatsWindow struct {
	Now      time.Time
	Midnight time.Time // start of today in the stats timezone
	Since30d time.Time
}

func NewStatsWindow(now time.Time, loc *time.Location) StatsWindow {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return StatsWindow{
		Now:      now,
		Midnight: time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc),
		Since30d: now.Add(-30 * 24 * time.Hour),
	}
}

func (w StatsWindow) today(t time.Time) bool {
	return !t.Before(w.Midnight)
}

func (w StatsWindow) within30d(t time.Time) bool {
	return !t.Before(w.Since30d)
}

var revenueOrderStatuses = map[tables.OrderStatus]bool{
	tables.OrderStatusPaid:       true,
	tables.OrderStatusProcessing: true,
	tables.OrderStatusShipped:    true,
	tables.OrderStatusDelivered:  true,
}

func statusKey(s string) string {
	if s == "" {
		return unknownStatus
	}
	return s
}

func AggregateOrders(orders []tables.Order, w StatsWindow) structs.OrderStats {
	stats := structs.OrderStats{ByStatus: map[string]int{}}
	for _, o := range orders {
		stats.Total++
		stats.ByStatus[statusKey(string(o.Status))]++
		if w.today(o.CreatedAt) {
			stats.Today++
		}
		if !revenueOrderStatuses[o.Status] {
			continue
		}
		stats.RevenueTotalINR += o.TotalINR
		if w.within30d(o.CreatedAt) {
			stats.Revenue30dINR += o.TotalINR
		}
	}
	return stats
}

// AggregateBookings counts revenue over every booking whatever its status
func AggregateBookings(bookings []tables.Booking, w StatsWindow) structs.BookingStats {
	stats := structs.BookingStats{ByStatus: map[string]int{}}
	for _, b := range bookings {
		stats.Total++
		stats.ByStatus[statusKey(string(b.Status))]++
		if w.today(b.CreatedAt) {
			stats.Today++
		}
		stats.RevenueTotalINR += b.TotalINR
		if w.within30d(b.CreatedAt) {
			stats.Revenue30dINR += b.TotalINR
		}
	}
	return stats
}

// AggregateReturns estimates refunds as returned quantity times the unit
// price of the order item, for refunded returns only. unitPrice is keyed by
// order item id; items without a known price contribute nothing.
func AggregateReturns(returns []tables.Return, items []tables.ReturnItem, unitPrice map[uuid.UUID]int64, w StatsWindow) structs.ReturnStats {
	stats := structs.ReturnStats{ByStatus: map[string]int{}}

	refunded := map[uuid.UUID]bool{}
	recent := map[uuid.UUID]bool{}
	for _, r := range returns {
		stats.Total++
		stats.ByStatus[statusKey(string(r.Status))]++
		if w.today(r.CreatedAt) {
			stats.Today++
		}
		if ReturnOpen(r.Status) {
			stats.Open++
		}
		if r.Status == tables.ReturnStatusRefunded {
			refunded[r.ID] = true
			if w.within30d(r.CreatedAt) {
				recent[r.ID] = true
			}
		}
	}

	for _, item := range items {
		if !refunded[item.ReturnID] {
			continue
		}
		amount := int64(item.Qty) * unitPrice[item.OrderItemID]
		stats.RefundEstimateINR += amount
		if recent[item.ReturnID] {
			stats.RefundEstimate30dINR += amount
		}
	}
	return stats
}

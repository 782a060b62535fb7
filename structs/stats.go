package structs

import "time"

type OrderStats struct {
	Total           int            `json:"total"`
	Today           int            `json:"today"`
	RevenueTotalINR int64          `json:"revenue_total_inr"`
	Revenue30dINR   int64          `json:"revenue_30d_inr"`
	ByStatus        map[string]int `json:"by_status"`
}

type BookingStats struct {
	Total           int            `json:"total"`
	Today           int            `json:"today"`
	RevenueTotalINR int64          `json:"revenue_total_inr"`
	Revenue30dINR   int64          `json:"revenue_30d_inr"`
	ByStatus        map[string]int `json:"by_status"`
}

type ReturnStats struct {
	Total                int            `json:"total"`
	Today                int            `json:"today"`
	Open                 int            `json:"open"`
	RefundEstimateINR    int64          `json:"refund_estimate_inr"`
	RefundEstimate30dINR int64          `json:"refund_estimate_30d_inr"`
	ByStatus             map[string]int `json:"by_status"`
}

type DashboardStats struct {
	Orders     OrderStats   `json:"orders"`
	Bookings   BookingStats `json:"bookings"`
	Returns    ReturnStats  `json:"returns"`
	ComputedAt time.Time    `json:"computed_at"`
}

// TableChange is one committed row mutation, as seen by the change feed
type TableChange struct {
	Table string `json:"table"`
	Op    string `json:"op"`
	ID    string `json:"id"`
}

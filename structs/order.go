package structs

import (
	"storeadmin_server/structs/tables"
	"time"
)

type TransitionRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"max=2000"`
}

type ShipmentRequest struct {
	Carrier        string `json:"carrier" validate:"required,max=100"`
	CourierName    string `json:"courier_name" validate:"max=100"`
	TrackingNumber string `json:"tracking_number" validate:"required,max=100"`
	TrackingURL    string `json:"tracking_url" validate:"omitempty,http_url"`
}

type TimelineEntryRequest struct {
	Status string `json:"status" validate:"max=64"`
	Note   string `json:"note" validate:"required,max=2000"`
}

type AdminNotesRequest struct {
	AdminNotes string `json:"admin_notes" validate:"max=10000"`
}

// OrderPatch is a partial single-row order update, nil fields are left untouched.
// ExpectStatus guards the update against a concurrent status change.
type OrderPatch struct {
	ExpectStatus   *tables.OrderStatus
	Status         *tables.OrderStatus
	Carrier        *string
	CourierName    *string
	TrackingNumber *string
	TrackingURL    *string
	ShippedAt      *time.Time
	DeliveredAt    *time.Time
	AdminNotes     *string
}

// OrderResult is a committed order mutation. Warning is set when the ledger
// append failed after the write.
type OrderResult struct {
	Order   *tables.Order `json:"order"`
	Warning string        `json:"warning,omitempty"`
}

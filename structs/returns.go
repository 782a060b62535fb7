package structs

import (
	"storeadmin_server/structs/tables"

	"github.com/google/uuid"
)

type RefundRequest struct {
	Note string `json:"note" validate:"max=2000"`
}

type ReplacementItemRequest struct {
	ReturnItemID uuid.UUID `json:"return_item_id" validate:"required"`
	Qty          int       `json:"qty" validate:"gte=0"`
}

type ReplacementRequest struct {
	Items       []ReplacementItemRequest `json:"items" validate:"required,dive"`
	ShippingINR int64                    `json:"shipping_inr"`
	Notes       string                   `json:"notes" validate:"max=2000"`
}

// ReturnPatch is a partial single-row return update
type ReturnPatch struct {
	ExpectStatus *tables.ReturnStatus
	Status       *tables.ReturnStatus
	AdminNotes   *string
}

type ReturnResult struct {
	Return  *tables.Return `json:"return"`
	Warning string         `json:"warning,omitempty"`
}

type ReplacementResult struct {
	Return  *tables.Return `json:"return"`
	Order   *tables.Order  `json:"order"`
	Warning string         `json:"warning,omitempty"`
}

// BookingPatch is a single-row booking status update
type BookingPatch struct {
	ExpectStatus *tables.BookingStatus
	Status       *tables.BookingStatus
}

type BookingResult struct {
	Booking *tables.Booking `json:"booking"`
	Warning string          `json:"warning,omitempty"`
}

package tables

import (
	"time"

	"github.com/google/uuid"
)

// Booking is a pandit booking. Admins only move its status; everything else is
// written by the storefront.
type Booking struct {
	tableName struct{}      `bun:"table:bookings,alias:b"`
	ID        uuid.UUID     `bun:"id,pk,type:uuid" json:"id"`
	CreatedAt time.Time     `bun:"created_at,notnull" json:"created_at"`
	StartsAt  *time.Time    `bun:"starts_at" json:"starts_at,omitempty"`
	EndsAt    *time.Time    `bun:"ends_at" json:"ends_at,omitempty"`
	Status    BookingStatus `bun:"status" json:"status"`
	TotalINR  int64         `bun:"total_inr" json:"total_inr"`
	Notes     *string       `bun:"notes" json:"notes,omitempty"`
}

// BookingEvent is one entry of a booking's timeline. Type carries the status
// the booking moved to.
type BookingEvent struct {
	tableName struct{}   `bun:"table:booking_events,alias:be"`
	ID        uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	Seq       int64      `bun:"seq,autoincrement" json:"seq"`
	BookingID uuid.UUID  `bun:"booking_id,notnull,type:uuid" json:"booking_id"`
	Type      string     `bun:"type,notnull" json:"type"`
	Message   *string    `bun:"message" json:"message,omitempty"`
	CreatedAt time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	ActorID   *uuid.UUID `bun:"actor_id,type:uuid" json:"actor_id,omitempty"`
}

type BookingStatus string

const (
	BookingStatusHold      BookingStatus = "hold"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

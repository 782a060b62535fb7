package tables

import (
	"time"

	"github.com/google/uuid"
)

type Order struct {
	// Table Name and identifiers
	tableName struct{}   `bun:"table:orders,alias:o"`
	ID        uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
	UserID    *uuid.UUID `bun:"user_id,type:uuid" json:"user_id,omitempty"`
	AddressID *uuid.UUID `bun:"address_id,type:uuid" json:"address_id,omitempty"`

	// Order Data
	Status      OrderStatus `bun:"status,notnull,default:'pending'" json:"status"`
	SubtotalINR int64       `bun:"subtotal_inr,notnull" json:"subtotal_inr"`
	ShippingINR int64       `bun:"shipping_inr,notnull" json:"shipping_inr"`
	TotalINR    int64       `bun:"total_inr,notnull" json:"total_inr"` // subtotal + shipping
	Notes       *string     `bun:"notes" json:"notes,omitempty"`       // Customer Note
	AdminNotes  *string     `bun:"admin_notes" json:"admin_notes,omitempty"`

	// Shipment
	Carrier        *string    `bun:"carrier" json:"carrier,omitempty"`
	CourierName    *string    `bun:"courier_name" json:"courier_name,omitempty"`
	TrackingNumber *string    `bun:"tracking_number" json:"tracking_number,omitempty"`
	TrackingURL    *string    `bun:"tracking_url" json:"tracking_url,omitempty"`
	ShippedAt      *time.Time `bun:"shipped_at,nullzero" json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time `bun:"delivered_at,nullzero" json:"delivered_at,omitempty"`

	Items []OrderItem `bun:"rel:has-many,join:id=order_id" json:"items,omitempty"`
}

// HasShipment reports whether carrier and tracking number are both present
func (o *Order) HasShipment() bool {
	return o.Carrier != nil && *o.Carrier != "" && o.TrackingNumber != nil && *o.TrackingNumber != ""
}

type OrderItem struct {
	tableName struct{}  `bun:"table:order_items,alias:oi"`
	ID        uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	OrderID   uuid.UUID `bun:"order_id,notnull,type:uuid" json:"order_id"`
	ProductID uuid.UUID `bun:"product_id,notnull,type:uuid" json:"product_id"`
	Qty       int       `bun:"qty,notnull" json:"qty"`

	// Snapshot at time of order
	PriceINR     int64   `bun:"price_inr,notnull" json:"price_inr"` // unit price
	NameSnapshot *string `bun:"name_snapshot" json:"name_snapshot,omitempty"`
}

// OrderEvent is an append-only ledger entry. Status is free text.
type OrderEvent struct {
	tableName struct{}   `bun:"table:order_events,alias:oe"`
	ID        uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	Seq       int64      `bun:"seq,autoincrement" json:"seq"`
	OrderID   uuid.UUID  `bun:"order_id,notnull,type:uuid" json:"order_id"`
	Status    string     `bun:"status,notnull" json:"status"`
	Note      *string    `bun:"note" json:"note,omitempty"`
	CreatedAt time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	CreatedBy *uuid.UUID `bun:"created_by,type:uuid" json:"created_by,omitempty"`
}

// Address is the shipping address snapshot referenced by orders
type Address struct {
	tableName struct{}   `bun:"table:addresses,alias:a"`
	ID        uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	UserID    *uuid.UUID `bun:"user_id,type:uuid" json:"user_id,omitempty"`
	Name      string     `bun:"name" json:"name"`
	Phone     string     `bun:"phone" json:"phone"`
	Email     string     `bun:"email" json:"email"`
	Line1     string     `bun:"line1" json:"line1"`
	Line2     string     `bun:"line2" json:"line2,omitempty"`
	City      string     `bun:"city" json:"city"`
	State     string     `bun:"state" json:"state"`
	Pincode   string     `bun:"pincode" json:"pincode"`
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid" // legacy, revenue bearing
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

package tables

import (
	"time"

	"github.com/google/uuid"
)

type Return struct {
	tableName  struct{}         `bun:"table:returns,alias:r"`
	ID         uuid.UUID        `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	RMACode    *string          `bun:"rma_code" json:"rma_code,omitempty"`
	UserID     *uuid.UUID       `bun:"user_id,type:uuid" json:"user_id,omitempty"`
	OrderID    uuid.UUID        `bun:"order_id,notnull,type:uuid" json:"order_id"`
	Status     ReturnStatus     `bun:"status,notnull,default:'requested'" json:"status"`
	Resolution ReturnResolution `bun:"resolution,notnull" json:"resolution"`
	Notes      *string          `bun:"notes" json:"notes,omitempty"`
	AdminNotes *string          `bun:"admin_notes" json:"admin_notes,omitempty"`
	CreatedAt  time.Time        `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time        `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`

	Items []ReturnItem `bun:"rel:has-many,join:id=return_id" json:"items,omitempty"`
}

// DisplayCode is the RMA code, or the last 8 characters of the id
func (r *Return) DisplayCode() string {
	if r.RMACode != nil && *r.RMACode != "" {
		return *r.RMACode
	}
	id := r.ID.String()
	return id[len(id)-8:]
}

type ReturnItem struct {
	tableName      struct{}  `bun:"table:return_items,alias:ri"`
	ID             uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	ReturnID       uuid.UUID `bun:"return_id,notnull,type:uuid" json:"return_id"`
	OrderItemID    uuid.UUID `bun:"order_item_id,notnull,type:uuid" json:"order_item_id"`
	ProductID      uuid.UUID `bun:"product_id,notnull,type:uuid" json:"product_id"`
	Qty            int       `bun:"qty,notnull" json:"qty"`
	ReasonCode     *string   `bun:"reason_code" json:"reason_code,omitempty"`
	ConditionNote  *string   `bun:"condition_note" json:"condition_note,omitempty"`
	EvidenceImages []string  `bun:"evidence_images,array" json:"evidence_images,omitempty"`
}

// ReturnEvent mirrors OrderEvent, scoped to a return
type ReturnEvent struct {
	tableName struct{}   `bun:"table:return_events,alias:re"`
	ID        uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	Seq       int64      `bun:"seq,autoincrement" json:"seq"`
	ReturnID  uuid.UUID  `bun:"return_id,notnull,type:uuid" json:"return_id"`
	Status    string     `bun:"status,notnull" json:"status"`
	Note      *string    `bun:"note" json:"note,omitempty"`
	CreatedAt time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	CreatedBy *uuid.UUID `bun:"created_by,type:uuid" json:"created_by,omitempty"`
}

type ReturnStatus string

const (
	ReturnStatusRequested          ReturnStatus = "requested"
	ReturnStatusApproved           ReturnStatus = "approved"
	ReturnStatusInTransit          ReturnStatus = "in_transit"
	ReturnStatusReceived           ReturnStatus = "received"
	ReturnStatusRefunded           ReturnStatus = "refunded"
	ReturnStatusReplacementShipped ReturnStatus = "replacement_shipped"
	ReturnStatusRejected           ReturnStatus = "rejected"
)

type ReturnResolution string

const (
	ResolutionRefund      ReturnResolution = "refund"
	ResolutionReplacement ReturnResolution = "replacement"
	ResolutionStoreCredit ReturnResolution = "store_credit"
)

package tables

import (
	"time"

	"github.com/google/uuid"
)

type Collection struct {
	tableName      struct{}  `bun:"table:collections,alias:c"`
	ID             uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	Name           string    `bun:"name,notnull" json:"name"`
	Slug           string    `bun:"slug,notnull,unique" json:"slug"`
	DepartmentSlug *string   `bun:"department_slug" json:"department_slug,omitempty"`
	ImagePath      *string   `bun:"image_path" json:"image_path,omitempty"` // storage object path
	ImageURL       *string   `bun:"image_url" json:"image_url,omitempty"`   // public URL
	Description    *string   `bun:"description" json:"description,omitempty"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt      time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

type Product struct {
	tableName         struct{}  `bun:"table:products,alias:p"`
	ID                uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	Name              string    `bun:"name,notnull" json:"name"`
	Slug              string    `bun:"slug,notnull,unique" json:"slug"`
	Description       *string   `bun:"description" json:"description,omitempty"`
	PriceINR          int64     `bun:"price_inr,notnull" json:"price_inr"`
	CompareAtPriceINR *int64    `bun:"compare_at_price_inr" json:"compare_at_price_inr,omitempty"`
	Stock             int       `bun:"stock,notnull" json:"stock"`
	IsActive          bool      `bun:"is_active,notnull" json:"is_active"`
	Tags              *string   `bun:"tags" json:"tags,omitempty"` // raw comma separated text
	ImageURL          *string   `bun:"image_url" json:"image_url,omitempty"`
	CreatedAt         time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt         time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// ProductCollection is the membership join, existence = membership
type ProductCollection struct {
	tableName    struct{}  `bun:"table:product_collections,alias:pc"`
	ProductID    uuid.UUID `bun:"product_id,pk,type:uuid" json:"product_id"`
	CollectionID uuid.UUID `bun:"collection_id,pk,type:uuid" json:"collection_id"`
}

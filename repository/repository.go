// Package repository holds one interface per entity the services persist, plus
// the bun backed implementations.
package repository

import (
	"context"
	"storeadmin_server/structs"
	"storeadmin_server/structs/tables"

	"github.com/google/uuid"
)

type CollectionRepository interface {
	FindBySlugs(ctx context.Context, slugs []string) ([]tables.Collection, error)
	// FindSuffixed returns rows whose slug is one of bases followed by "-" and suffixLen characters
	FindSuffixed(ctx context.Context, bases []string, suffixLen int) ([]tables.Collection, error)
	Create(ctx context.Context, collection *tables.Collection) error
	Update(ctx context.Context, collection *tables.Collection) error
}

type ProductRepository interface {
	FindBySlugs(ctx context.Context, slugs []string) ([]tables.Product, error)
	FindSuffixed(ctx context.Context, bases []string, suffixLen int) ([]tables.Product, error)
	Create(ctx context.Context, product *tables.Product) error
	Update(ctx context.Context, product *tables.Product) error
}

type ProductCollectionRepository interface {
	ListForProducts(ctx context.Context, productIDs []uuid.UUID) ([]tables.ProductCollection, error)
	// AddLinks inserts links, ignoring ones that already exist, and returns how many were new
	AddLinks(ctx context.Context, links []tables.ProductCollection) (int, error)
}

type OrderRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*tables.Order, error)
	// Update applies patch in a single row update and returns the order as stored
	Update(ctx context.Context, id uuid.UUID, patch structs.OrderPatch) (*tables.Order, error)
	// CreateWithItems inserts the order and its items in one transaction
	CreateWithItems(ctx context.Context, order *tables.Order, items []tables.OrderItem) error
	ListForStats(ctx context.Context) ([]tables.Order, error)
	ItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]tables.OrderItem, error)
	GetAddress(ctx context.Context, id uuid.UUID) (*tables.Address, error)
}

type OrderEventRepository interface {
	Append(ctx context.Context, event *tables.OrderEvent) error
	List(ctx context.Context, orderID uuid.UUID) ([]tables.OrderEvent, error)
}

type ReturnRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*tables.Return, error)
	Update(ctx context.Context, id uuid.UUID, patch structs.ReturnPatch) (*tables.Return, error)
	ListForStats(ctx context.Context) ([]tables.Return, error)
	ItemsForStats(ctx context.Context) ([]tables.ReturnItem, error)
	// ReturnedQty sums return item quantities per order item across every
	// non-rejected return except excludeReturnID
	ReturnedQty(ctx context.Context, orderItemIDs []uuid.UUID, excludeReturnID uuid.UUID) (map[uuid.UUID]int, error)
}

type ReturnEventRepository interface {
	Append(ctx context.Context, event *tables.ReturnEvent) error
	List(ctx context.Context, returnID uuid.UUID) ([]tables.ReturnEvent, error)
}

type BookingRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*tables.Booking, error)
	// Update applies patch in a single row update, ErrConflict when ExpectStatus no longer holds
	Update(ctx context.Context, id uuid.UUID, patch structs.BookingPatch) (*tables.Booking, error)
	ListForStats(ctx context.Context) ([]tables.Booking, error)
}

type BookingEventRepository interface {
	Append(ctx context.Context, event *tables.BookingEvent) error
	List(ctx context.Context, bookingID uuid.UUID) ([]tables.BookingEvent, error)
}

// Repositories bundles every repository the services need
type Repositories struct {
	Collections        CollectionRepository
	Products           ProductRepository
	ProductCollections ProductCollectionRepository
	Orders             OrderRepository
	OrderEvents        OrderEventRepository
	Returns            ReturnRepository
	ReturnEvents       ReturnEventRepository
	Bookings           BookingRepository
	BookingEvents      BookingEventRepository
}

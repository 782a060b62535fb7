// Package memstore is an in-memory twin of the row store, used to exercise the
// services without PostgreSQL. Every operation can be made to fail via Fail.
package memstore

import (
	"context"
	"sort"
	"storeadmin_server/lib"
	"storeadmin_server/repository"
	"storeadmin_server/structs"
	"storeadmin_server/structs/tables"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Operation names accepted by Fail
const (
	OpCollectionCreate   = "collections.create"
	OpCollectionUpdate   = "collections.update"
	OpProductCreate      = "products.create"
	OpProductUpdate      = "products.update"
	OpLinkAdd            = "links.add"
	OpOrderGet           = "orders.get"
	OpOrderUpdate        = "orders.update"
	OpOrderCreate        = "orders.create"
	OpOrderEventAppend   = "order_events.append"
	OpReturnUpdate       = "returns.update"
	OpReturnEventAppend  = "return_events.append"
	OpAddressGet         = "addresses.get"
	OpBookingUpdate      = "bookings.update"
	OpBookingEventAppend = "booking_events.append"
)

type Store struct {
	mu sync.Mutex

	Collections        map[uuid.UUID]tables.Collection
	Products           map[uuid.UUID]tables.Product
	ProductCollections map[tables.ProductCollection]struct{}
	Orders             map[uuid.UUID]tables.Order
	OrderItems         map[uuid.UUID]tables.OrderItem
	OrderEvents        []tables.OrderEvent
	Addresses          map[uuid.UUID]tables.Address
	Returns            map[uuid.UUID]tables.Return
	ReturnItems        map[uuid.UUID]tables.ReturnItem
	ReturnEvents       []tables.ReturnEvent
	Bookings           map[uuid.UUID]tables.Booking
	BookingEvents      []tables.BookingEvent

	failures map[string]error
	seq      int64
	now      func() time.Time
}

func New() *Store {
	return &Store{
		Collections:        map[uuid.UUID]tables.Collection{},
		Products:           map[uuid.UUID]tables.Product{},
		ProductCollections: map[tables.ProductCollection]struct{}{},
		Orders:             map[uuid.UUID]tables.Order{},
		OrderItems:         map[uuid.UUID]tables.OrderItem{},
		Addresses:          map[uuid.UUID]tables.Address{},
		Returns:            map[uuid.UUID]tables.Return{},
		ReturnItems:        map[uuid.UUID]tables.ReturnItem{},
		Bookings:           map[uuid.UUID]tables.Booking{},
		failures:           map[string]error{},
		now:                time.Now,
	}
}

// Repositories exposes the store through the repository interfaces
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Collections:        collections{s},
		Products:           products{s},
		ProductCollections: links{s},
		Orders:             orders{s},
		OrderEvents:        orderEvents{s},
		Returns:            returns{s},
		ReturnEvents:       returnEvents{s},
		Bookings:           bookings{s},
		BookingEvents:      bookingEvents{s},
	}
}

// Fail makes op return err until cleared with a nil err
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// SetClock replaces the store's clock
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Lock and Unlock let tests read the maps consistently
func (s *Store) Lock()   { s.mu.Lock() }
func (s *Store) Unlock() { s.mu.Unlock() }

func (s *Store) failure(op string) error {
	return s.failures[op]
}

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

// Seed helpers

func (s *Store) AddCollection(c tables.Collection) tables.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	s.Collections[c.ID] = c
	return c
}

func (s *Store) AddProduct(p tables.Product) tables.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.Products[p.ID] = p
	return p
}

func (s *Store) AddLink(productID, collectionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ProductCollections[tables.ProductCollection{ProductID: productID, CollectionID: collectionID}] = struct{}{}
}

func (s *Store) AddAddress(a tables.Address) tables.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	s.Addresses[a.ID] = a
	return a
}

// AddOrder stores o and its Items
func (s *Store) AddOrder(o tables.Order) tables.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = s.now()
	}
	for i := range o.Items {
		if o.Items[i].ID == uuid.Nil {
			o.Items[i].ID = uuid.New()
		}
		o.Items[i].OrderID = o.ID
		s.OrderItems[o.Items[i].ID] = o.Items[i]
	}
	items := o.Items
	o.Items = nil
	s.Orders[o.ID] = o
	o.Items = items
	return o
}

// AddReturn stores r and its Items
func (s *Store) AddReturn(r tables.Return) tables.Return {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	for i := range r.Items {
		if r.Items[i].ID == uuid.Nil {
			r.Items[i].ID = uuid.New()
		}
		r.Items[i].ReturnID = r.ID
		s.ReturnItems[r.Items[i].ID] = r.Items[i]
	}
	items := r.Items
	r.Items = nil
	s.Returns[r.ID] = r
	r.Items = items
	return r
}

func (s *Store) AddBooking(b tables.Booking) tables.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now()
	}
	s.Bookings[b.ID] = b
	return b
}

// Snapshot readers used by tests

func (s *Store) CollectionBySlug(slug string) (tables.Collection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.Collections {
		if c.Slug == slug {
			return c, true
		}
	}
	return tables.Collection{}, false
}

func (s *Store) ProductBySlug(slug string) (tables.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.Products {
		if p.Slug == slug {
			return p, true
		}
	}
	return tables.Product{}, false
}

func (s *Store) LinkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ProductCollections)
}

func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Orders)
}

func (s *Store) orderWithItems(id uuid.UUID) (*tables.Order, bool) {
	o, ok := s.Orders[id]
	if !ok {
		return nil, false
	}
	o.Items = nil
	for _, item := range s.OrderItems {
		if item.OrderID == id {
			o.Items = append(o.Items, item)
		}
	}
	sort.Slice(o.Items, func(i, j int) bool { return o.Items[i].ID.String() < o.Items[j].ID.String() })
	return &o, true
}

func (s *Store) returnWithItems(id uuid.UUID) (*tables.Return, bool) {
	r, ok := s.Returns[id]
	if !ok {
		return nil, false
	}
	r.Items = nil
	for _, item := range s.ReturnItems {
		if item.ReturnID == id {
			r.Items = append(r.Items, item)
		}
	}
	sort.Slice(r.Items, func(i, j int) bool { return r.Items[i].ID.String() < r.Items[j].ID.String() })
	return &r, true
}

type collections struct{ s *Store }

func (r collections) FindBySlugs(ctx context.Context, slugs []string) ([]tables.Collection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := toSet(slugs)
	var out []tables.Collection
	for _, c := range r.s.Collections {
		if want[c.Slug] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r collections) FindSuffixed(ctx context.Context, bases []string, suffixLen int) ([]tables.Collection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []tables.Collection
	for _, c := range r.s.Collections {
		if suffixedFrom(c.Slug, bases, suffixLen) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r collections) Create(ctx context.Context, c *tables.Collection) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(OpCollectionCreate); err != nil {
		return err
	}
	for _, existing := range r.s.Collections {
		if existing.Slug == c.Slug {
			return lib.ErrConflict
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt, c.UpdatedAt = r.s.now(), r.s.now()
	r.s.Collections[c.ID] = *c
	return nil
}

func (r collections) Update(ctx context.Context, c *tables.Collection) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(OpCollectionUpdate); err != nil {
		return err
	}
	if _, ok := r.s.Collections[c.ID]; !ok {
		return lib.ErrNotFound
	}
	c.UpdatedAt = r.s.now()
	r.s.Collections[c.ID] = *c
	return nil
}

type products struct{ s *Store }

func (r products) FindBySlugs(ctx context.Context, slugs []string) ([]tables.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := toSet(slugs)
	var out []tables.Product
	for _, p := range r.s.Products {
		if want[p.Slug] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r products) FindSuffixed(ctx context.Context, bases []string, suffixLen int) ([]tables.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []tables.Product
	for _, p := range r.s.Products {
		if suffixedFrom(p.Slug, bases, suffixLen) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r products) Create(ctx context.Context, p *tables.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(OpProductCreate); err != nil {
		return err
	}
	for _, existing := range r.s.Products {
		if existing.Slug == p.Slug {
			return lib.ErrConflict
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt, p.UpdatedAt = r.s.now(), r.s.now()
	r.s.Products[p.ID] = *p
	return nil
}

func (r products) Update(ctx context.Context, p *tables.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(OpProductUpdate); err != nil {
		return err
	}
	if _, ok := r.s.Products[p.ID]; !ok {
		return lib.ErrNotFound
	}
	p.UpdatedAt = r.s.now()
	r.s.Products[p.ID] = *p
	return nil
}

type links struct{ s *Store }

func (r links) ListForProducts(ctx context.Context, productIDs []uuid.UUID) ([]tables.ProductCollection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := map[uuid.UUID]bool{}
	for _, id := range productIDs {
		want[id] = true
	}
	var out []tables.ProductCollection
	for link := range r.s.ProductCollections {
		if want[link.ProductID] {
			out = append(out, link)
		}
	}
	return out, nil
}

func (r links) AddLinks(ctx context.Context, add []tables.ProductCollection) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(OpLinkAdd); err != nil {
		return 0, err
	}
	n := 0
	for _, link := range add {
		if _, ok := r.s.ProductCollections[link]; ok {
			continue
		}
		r.s.ProductCollections[link] = struct{}{}
		n++
	}
	return n, nil
}

type orders struct{ s *Store }

func (r orders) Get(ctx context.Context, id uuid.UUID) (*tables.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(OpOrderGet); err != nil {
		return nil, err
	}
	o, ok := r.s.orderWithItems(id)
	if !ok {
		return nil, lib.ErrNotFound
	}
	return o, nil
}

func (r orders) Update(ctx context.Context, id uuid.UUID, patch structs.OrderPatch) (*tables.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(OpOrderUpdate); err != nil {
		return nil, err
	}
	o, ok := r.s.Orders[id]
	if !ok {
		return nil, lib.ErrNotFound
	}
	if patch.ExpectStatus != nil && o.Status != *patch.ExpectStatus {
		return nil, lib.ErrConflict
	}

	if patch.Status != nil {
		o.Status = *patch.Status
	}
	if patch.Carrier != nil {
		o.Carrier = ptr(*patch.Carrier)
	}
	if patch.CourierName != nil {
		o.CourierName = ptr(*patch.CourierName)
	}
	if patch.TrackingNumber != nil {
		o.TrackingNumber = ptr(*patch.TrackingNumber)
	}
	if patch.TrackingURL != nil {
		if *patch.TrackingURL == "" {
			o.TrackingURL = nil
		} else {
			o.TrackingURL = ptr(*patch.TrackingURL)
		}
	}
	if patch.ShippedAt != nil {
		o.ShippedAt = ptr(*patch.ShippedAt)
	}
	if patch.DeliveredAt != nil {
		o.DeliveredAt = ptr(*patch.DeliveredAt)
	}
	if patch.AdminNotes != nil {
		o.AdminNotes = ptr(*patch.AdminNotes)
	}
	o.UpdatedAt = r.s.now()
	r.s.Orders[id] = o

	out, _ := r.s.orderWithItems(id)
	return out, nil
}

func (r orders) CreateWithItems(ctx context.Context, order *tables.Order, items []tables.OrderItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(OpOrderCreate); err != nil {
		return err
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedAt, order.UpdatedAt = r.s.now(), r.s.now()
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		items[i].OrderID = order.ID
		r.s.OrderItems[items[i].ID] = items[i]
	}
	stored := *order
	stored.Items = nil
	r.s.Orders[order.ID] = stored
	order.Items = items
	return nil
}

func (r orders) ListForStats(ctx context.Context) ([]tables.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]tables.Order, 0, len(r.s.Orders))
	for _, o := range r.s.Orders {
		out = append(out, o)
	}
	return out, nil
}

func (r orders) ItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]tables.OrderItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []tables.OrderItem
	for _, id := range ids {
		if item, ok := r.s.OrderItems[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r orders) GetAddress(ctx context.Context, id uuid.UUID) (*tables.Address, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(OpAddressGet); err != nil {
		return nil, err
	}
	a, ok := r.s.Addresses[id]
	if !ok {
		return nil, lib.ErrNotFound
	}
	return &a, nil
}

type orderEvents struct{ s *Store }

func (r orderEvents) Append(ctx context.Context, event *tables.OrderEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(OpOrderEventAppend); err != nil {
		return err
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = r.s.now()
	}
	event.Seq = r.s.nextSeq()
	r.s.OrderEvents = append(r.s.OrderEvents, *event)
	return nil
}

func (r orderEvents) List(ctx context.Context, orderID uuid.UUID) ([]tables.OrderEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []tables.OrderEvent
	for _, e := range r.s.OrderEvents {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

type returns struct{ s *Store }

func (r returns) Get(ctx context.Context, id uuid.UUID) (*tables.Return, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ret, ok := r.s.returnWithItems(id)
	if !ok {
		return nil, lib.ErrNotFound
	}
	return ret, nil
}

func (r returns) Update(ctx context.Context, id uuid.UUID, patch structs.ReturnPatch) (*tables.Return, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(OpReturnUpdate); err != nil {
		return nil, err
	}
	ret, ok := r.s.Returns[id]
	if !ok {
		return nil, lib.ErrNotFound
	}
	if patch.ExpectStatus != nil && ret.Status != *patch.ExpectStatus {
		return nil, lib.ErrConflict
	}
	if patch.Status != nil {
		ret.Status = *patch.Status
	}
	if patch.AdminNotes != nil {
		ret.AdminNotes = ptr(*patch.AdminNotes)
	}
	ret.UpdatedAt = r.s.now()
	r.s.Returns[id] = ret

	out, _ := r.s.returnWithItems(id)
	return out, nil
}

func (r returns) ListForStats(ctx context.Context) ([]tables.Return, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]tables.Return, 0, len(r.s.Returns))
	for _, ret := range r.s.Returns {
		out = append(out, ret)
	}
	return out, nil
}

func (r returns) ItemsForStats(ctx context.Context) ([]tables.ReturnItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]tables.ReturnItem, 0, len(r.s.ReturnItems))
	for _, item := range r.s.ReturnItems {
		out = append(out, item)
	}
	return out, nil
}

func (r returns) ReturnedQty(ctx context.Context, orderItemIDs []uuid.UUID, excludeReturnID uuid.UUID) (map[uuid.UUID]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := map[uuid.UUID]bool{}
	for _, id := range orderItemIDs {
		want[id] = true
	}
	out := map[uuid.UUID]int{}
	for _, item := range r.s.ReturnItems {
		if !want[item.OrderItemID] || item.ReturnID == excludeReturnID {
			continue
		}
		if ret, ok := r.s.Returns[item.ReturnID]; ok && ret.Status == tables.ReturnStatusRejected {
			continue
		}
		out[item.OrderItemID] += item.Qty
	}
	return out, nil
}

type returnEvents struct{ s *Store }

func (r returnEvents) Append(ctx context.Context, event *tables.ReturnEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(OpReturnEventAppend); err != nil {
		return err
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = r.s.now()
	}
	event.Seq = r.s.nextSeq()
	r.s.ReturnEvents = append(r.s.ReturnEvents, *event)
	return nil
}

func (r returnEvents) List(ctx context.Context, returnID uuid.UUID) ([]tables.ReturnEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []tables.ReturnEvent
	for _, e := range r.s.ReturnEvents {
		if e.ReturnID == returnID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

type bookings struct{ s *Store }

func (r bookings) Get(ctx context.Context, id uuid.UUID) (*tables.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.Bookings[id]
	if !ok {
		return nil, lib.ErrNotFound
	}
	return &b, nil
}

func (r bookings) Update(ctx context.Context, id uuid.UUID, patch structs.BookingPatch) (*tables.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(OpBookingUpdate); err != nil {
		return nil, err
	}
	b, ok := r.s.Bookings[id]
	if !ok {
		return nil, lib.ErrNotFound
	}
	if patch.ExpectStatus != nil && b.Status != *patch.ExpectStatus {
		return nil, lib.ErrConflict
	}
	if patch.Status != nil {
		b.Status = *patch.Status
	}
	r.s.Bookings[id] = b
	return &b, nil
}

func (r bookings) ListForStats(ctx context.Context) ([]tables.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]tables.Booking, 0, len(r.s.Bookings))
	for _, b := range r.s.Bookings {
		out = append(out, b)
	}
	return out, nil
}

type bookingEvents struct{ s *Store }

func (r bookingEvents) Append(ctx context.Context, event *tables.BookingEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(OpBookingEventAppend); err != nil {
		return err
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = r.s.now()
	}
	event.Seq = r.s.nextSeq()
	r.s.BookingEvents = append(r.s.BookingEvents, *event)
	return nil
}

func (r bookingEvents) List(ctx context.Context, bookingID uuid.UUID) ([]tables.BookingEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []tables.BookingEvent
	for _, e := range r.s.BookingEvents {
		if e.BookingID == bookingID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

func suffixedFrom(slug string, bases []string, suffixLen int) bool {
	for _, base := range bases {
		if len(slug) == len(base)+1+suffixLen && strings.HasPrefix(slug, base+"-") {
			return true
		}
	}
	return false
}

func toSet(values []string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		out[v] = true
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}

package repository

import (
	"context"
	"storeadmin_server/database"
	"storeadmin_server/lib"
	"storeadmin_server/structs"
	"storeadmin_server/structs/tables"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type returnRepo struct {
	db *database.DB
}

func NewReturnRepo(db *database.DB) ReturnRepository {
	return &returnRepo{db}
}

func (r *returnRepo) Get(ctx context.Context, id uuid.UUID) (*tables.Return, error) {
	ret, err := database.Query[tables.Return](r.db).Where("r.id", id).With("Items").First(ctx)
	if err != nil {
		return nil, lib.MapPgError(err)
	}
	if ret == nil {
		return nil, lib.ErrNotFound
	}
	return ret, nil
}

func (r *returnRepo) Update(ctx context.Context, id uuid.UUID, patch structs.ReturnPatch) (*tables.Return, error) {
	data := map[string]any{"updated_at": time.Now()}

	if patch.Status != nil {
		data["status"] = *patch.Status
	}
	if patch.AdminNotes != nil {
		data["admin_notes"] = *patch.AdminNotes
	}

	q := database.Query[tables.Return](r.db).Where("id", id)
	if patch.ExpectStatus != nil {
		q = q.Where("status", *patch.ExpectStatus)
	}

	n, err := q.Update(ctx, data)
	if err != nil {
		return nil, lib.MapPgError(err)
	}
	if n == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, lib.ErrConflict
	}

	return r.Get(ctx, id)
}

func (r *returnRepo) ListForStats(ctx context.Context) ([]tables.Return, error) {
	var out []tables.Return
	q := database.Query[tables.Return](r.db).
		Select("id", "created_at", "status").
		OrderBy("r.created_at", database.ASC).
		OrderBy("r.id", database.ASC)

	err := database.Chunk(ctx, q, statsChunkSize, func(rows []tables.Return, _ int) error {
		out = append(out, rows...)
		return nil
	})
	return out, lib.MapPgError(err)
}

func (r *returnRepo) ItemsForStats(ctx context.Context) ([]tables.ReturnItem, error) {
	var out []tables.ReturnItem
	q := database.Query[tables.ReturnItem](r.db).
		Select("id", "return_id", "order_item_id", "qty").
		OrderBy("ri.id", database.ASC)

	err := database.Chunk(ctx, q, statsChunkSize, func(rows []tables.ReturnItem, _ int) error {
		out = append(out, rows...)
		return nil
	})
	return out, lib.MapPgError(err)
}

type returnedQtyRow struct {
	OrderItemID uuid.UUID `bun:"order_item_id"`
	Qty         int       `bun:"qty"`
}

func (r *returnRepo) ReturnedQty(ctx context.Context, orderItemIDs []uuid.UUID, excludeReturnID uuid.UUID) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(orderItemIDs))
	if len(orderItemIDs) == 0 {
		return out, nil
	}

	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var rows []returnedQtyRow
	err := database.WithRetry(ctx, func() error {
		rows = nil
		return r.db.NewSelect().
			TableExpr("return_items AS ri").
			Join("JOIN returns AS r ON r.id = ri.return_id").
			ColumnExpr("ri.order_item_id, SUM(ri.qty) AS qty").
			Where("ri.order_item_id IN (?)", bun.In(orderItemIDs)).
			Where("r.id <> ?", excludeReturnID).
			Where("r.status <> ?", tables.ReturnStatusRejected).
			Group("ri.order_item_id").
			Scan(ctx, &rows)
	})
	if err != nil {
		return nil, lib.MapPgError(err)
	}

	for _, row := range rows {
		out[row.OrderItemID] = row.Qty
	}
	return out, nil
}

type returnEventRepo struct {
	db *database.DB
}

func NewReturnEventRepo(db *database.DB) ReturnEventRepository {
	return &returnEventRepo{db}
}

func (r *returnEventRepo) Append(ctx context.Context, event *tables.ReturnEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	_, err := database.Query[tables.ReturnEvent](r.db).Insert(ctx, event)
	return lib.MapPgError(err)
}

func (r *returnEventRepo) List(ctx context.Context, returnID uuid.UUID) ([]tables.ReturnEvent, error) {
	rows, err := database.Query[tables.ReturnEvent](r.db).
		Where("re.return_id", returnID).
		OrderBy("re.created_at", database.ASC).
		OrderBy("re.seq", database.ASC).
		All(ctx)
	return rows, lib.MapPgError(err)
}

type bookingRepo struct {
	db *database.DB
}

func NewBookingRepo(db *database.DB) BookingRepository {
	return &bookingRepo{db}
}

func (r *bookingRepo) Get(ctx context.Context, id uuid.UUID) (*tables.Booking, error) {
	booking, err := database.FindByID[tables.Booking](r.db, ctx, id)
	if err != nil {
		return nil, lib.MapPgError(err)
	}
	if booking == nil {
		return nil, lib.ErrNotFound
	}
	return booking, nil
}

func (r *bookingRepo) Update(ctx context.Context, id uuid.UUID, patch structs.BookingPatch) (*tables.Booking, error) {
	if patch.Status == nil {
		return r.Get(ctx, id)
	}

	q := database.Query[tables.Booking](r.db).Where("id", id)
	if patch.ExpectStatus != nil {
		q = q.Where("status", *patch.ExpectStatus)
	}

	n, err := q.Update(ctx, map[string]any{"status": *patch.Status})
	if err != nil {
		return nil, lib.MapPgError(err)
	}
	if n == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, lib.ErrConflict
	}

	return r.Get(ctx, id)
}

func (r *bookingRepo) ListForStats(ctx context.Context) ([]tables.Booking, error) {
	var out []tables.Booking
	q := database.Query[tables.Booking](r.db).
		Select("id", "created_at", "status", "total_inr").
		OrderBy("b.created_at", database.ASC).
		OrderBy("b.id", database.ASC)

	err := database.Chunk(ctx, q, statsChunkSize, func(rows []tables.Booking, _ int) error {
		out = append(out, rows...)
		return nil
	})
	return out, lib.MapPgError(err)
}

type bookingEventRepo struct {
	db *database.DB
}

func NewBookingEventRepo(db *database.DB) BookingEventRepository {
	return &bookingEventRepo{db}
}

func (r *bookingEventRepo) Append(ctx context.Context, event *tables.BookingEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	_, err := database.Query[tables.BookingEvent](r.db).Insert(ctx, event)
	return lib.MapPgError(err)
}

func (r *bookingEventRepo) List(ctx context.Context, bookingID uuid.UUID) ([]tables.BookingEvent, error) {
	rows, err := database.Query[tables.BookingEvent](r.db).
		Where("be.booking_id", bookingID).
		OrderBy("be.created_at", database.ASC).
		OrderBy("be.seq", database.ASC).
		All(ctx)
	return rows, lib.MapPgError(err)
}

// NewRepositories wires every bun backed repository onto db
func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Collections:        NewCollectionRepo(db),
		Products:           NewProductRepo(db),
		ProductCollections: NewProductCollectionRepo(db),
		Orders:             NewOrderRepo(db),
		OrderEvents:        NewOrderEventRepo(db),
		Returns:            NewReturnRepo(db),
		ReturnEvents:       NewReturnEventRepo(db),
		Bookings:           NewBookingRepo(db),
		BookingEvents:      NewBookingEventRepo(db),
	}
}

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

const statsChunkSize = 1000

type orderRepo struct {
	db *database.DB
}

func NewOrderRepo(db *database.DB) OrderRepository {
	return &orderRepo{db}
}

func (r *orderRepo) Get(ctx context.Context, id uuid.UUID) (*tables.Order, error) {
	order, err := database.Query[tables.Order](r.db).Where("o.id", id).With("Items").First(ctx)
	if err != nil {
		return nil, lib.MapPgError(err)
	}
	if order == nil {
		return nil, lib.ErrNotFound
	}
	return order, nil
}

func (r *orderRepo) Update(ctx context.Context, id uuid.UUID, patch structs.OrderPatch) (*tables.Order, error) {
	data := map[string]any{"updated_at": time.Now()}

	if patch.Status != nil {
		data["status"] = *patch.Status
	}
	if patch.Carrier != nil {
		data["carrier"] = *patch.Carrier
	}
	if patch.CourierName != nil {
		data["courier_name"] = *patch.CourierName
	}
	if patch.TrackingNumber != nil {
		data["tracking_number"] = *patch.TrackingNumber
	}
	if patch.TrackingURL != nil {
		data["tracking_url"] = nullable(*patch.TrackingURL)
	}
	if patch.ShippedAt != nil {
		data["shipped_at"] = *patch.ShippedAt
	}
	if patch.DeliveredAt != nil {
		data["delivered_at"] = *patch.DeliveredAt
	}
	if patch.AdminNotes != nil {
		data["admin_notes"] = *patch.AdminNotes
	}

	q := database.Query[tables.Order](r.db).Where("id", id)
	if patch.ExpectStatus != nil {
		q = q.Where("status", *patch.ExpectStatus)
	}

	n, err := q.Update(ctx, data)
	if err != nil {
		return nil, lib.MapPgError(err)
	}
	if n == 0 {
		// either gone or moved underneath us
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, lib.ErrConflict
	}

	return r.Get(ctx, id)
}

func (r *orderRepo) CreateWithItems(ctx context.Context, order *tables.Order, items []tables.OrderItem) error {
	now := time.Now()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedAt, order.UpdatedAt = now, now

	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		items[i].OrderID = order.ID
	}

	err := database.Transaction(ctx, r.db, func(ctx context.Context, tx bun.Tx) error {
		if _, err := database.Query[tables.Order](r.db).Tx(tx).Insert(ctx, order); err != nil {
			return err
		}
		if _, err := database.Query[tables.OrderItem](r.db).Tx(tx).InsertMany(ctx, items); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return lib.MapPgError(err)
	}

	order.Items = items
	return nil
}

func (r *orderRepo) ListForStats(ctx context.Context) ([]tables.Order, error) {
	var out []tables.Order
	q := database.Query[tables.Order](r.db).
		Select("id", "created_at", "status", "total_inr").
		OrderBy("o.created_at", database.ASC).
		OrderBy("o.id", database.ASC)

	err := database.Chunk(ctx, q, statsChunkSize, func(rows []tables.Order, _ int) error {
		out = append(out, rows...)
		return nil
	})
	return out, lib.MapPgError(err)
}

func (r *orderRepo) ItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]tables.OrderItem, error) {
	rows, err := database.FindByIDs[tables.OrderItem](r.db, ctx, ids)
	return rows, lib.MapPgError(err)
}

func (r *orderRepo) GetAddress(ctx context.Context, id uuid.UUID) (*tables.Address, error) {
	addr, err := database.FindByID[tables.Address](r.db, ctx, id)
	if err != nil {
		return nil, lib.MapPgError(err)
	}
	if addr == nil {
		return nil, lib.ErrNotFound
	}
	return addr, nil
}

type orderEventRepo struct {
	db *database.DB
}

func NewOrderEventRepo(db *database.DB) OrderEventRepository {
	return &orderEventRepo{db}
}

func (r *orderEventRepo) Append(ctx context.Context, event *tables.OrderEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	_, err := database.Query[tables.OrderEvent](r.db).Insert(ctx, event)
	return lib.MapPgError(err)
}

func (r *orderEventRepo) List(ctx context.Context, orderID uuid.UUID) ([]tables.OrderEvent, error) {
	rows, err := database.Query[tables.OrderEvent](r.db).
		Where("oe.order_id", orderID).
		OrderBy("oe.created_at", database.ASC).
		OrderBy("oe.seq", database.ASC).
		All(ctx)
	return rows, lib.MapPgError(err)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

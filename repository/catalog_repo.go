package repository

import (
	"context"
	"storeadmin_server/database"
	"storeadmin_server/lib"
	"storeadmin_server/structs/tables"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun/dialect/pgdialect"
)

type collectionRepo struct {
	db *database.DB
}

func NewCollectionRepo(db *database.DB) CollectionRepository {
	return &collectionRepo{db}
}

func (r *collectionRepo) FindBySlugs(ctx context.Context, slugs []string) ([]tables.Collection, error) {
	if len(slugs) == 0 {
		return nil, nil
	}
	rows, err := database.Query[tables.Collection](r.db).WhereIn("c.slug", slugs).All(ctx)
	return rows, lib.MapPgError(err)
}

func (r *collectionRepo) FindSuffixed(ctx context.Context, bases []string, suffixLen int) ([]tables.Collection, error) {
	if len(bases) == 0 {
		return nil, nil
	}
	rows, err := database.Query[tables.Collection](r.db).
		WhereRaw("c.slug LIKE ANY (?)", pgdialect.Array(suffixPatterns(bases, suffixLen))).
		All(ctx)
	return rows, lib.MapPgError(err)
}

func (r *collectionRepo) Create(ctx context.Context, collection *tables.Collection) error {
	now := time.Now()
	if collection.ID == uuid.Nil {
		collection.ID = uuid.New()
	}
	collection.CreatedAt, collection.UpdatedAt = now, now

	_, err := database.Query[tables.Collection](r.db).Insert(ctx, collection)
	return lib.MapPgError(err)
}

func (r *collectionRepo) Update(ctx context.Context, collection *tables.Collection) error {
	collection.UpdatedAt = time.Now()

	n, err := database.UpdateByID[tables.Collection](r.db, ctx, collection.ID, map[string]any{
		"name":            collection.Name,
		"description":     collection.Description,
		"department_slug": collection.DepartmentSlug,
		"image_url":       collection.ImageURL,
		"updated_at":      collection.UpdatedAt,
	})
	if err != nil {
		return lib.MapPgError(err)
	}
	if n == 0 {
		return lib.ErrNotFound
	}
	return nil
}

type productRepo struct {
	db *database.DB
}

func NewProductRepo(db *database.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) FindBySlugs(ctx context.Context, slugs []string) ([]tables.Product, error) {
	if len(slugs) == 0 {
		return nil, nil
	}
	rows, err := database.Query[tables.Product](r.db).WhereIn("p.slug", slugs).All(ctx)
	return rows, lib.MapPgError(err)
}

func (r *productRepo) FindSuffixed(ctx context.Context, bases []string, suffixLen int) ([]tables.Product, error) {
	if len(bases) == 0 {
		return nil, nil
	}
	rows, err := database.Query[tables.Product](r.db).
		WhereRaw("p.slug LIKE ANY (?)", pgdialect.Array(suffixPatterns(bases, suffixLen))).
		All(ctx)
	return rows, lib.MapPgError(err)
}

func (r *productRepo) Create(ctx context.Context, product *tables.Product) error {
	now := time.Now()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	product.CreatedAt, product.UpdatedAt = now, now

	_, err := database.Query[tables.Product](r.db).Insert(ctx, product)
	return lib.MapPgError(err)
}

func (r *productRepo) Update(ctx context.Context, product *tables.Product) error {
	product.UpdatedAt = time.Now()

	n, err := database.UpdateByID[tables.Product](r.db, ctx, product.ID, map[string]any{
		"name":                 product.Name,
		"description":          product.Description,
		"price_inr":            product.PriceINR,
		"compare_at_price_inr": product.CompareAtPriceINR,
		"stock":                product.Stock,
		"is_active":            product.IsActive,
		"tags":                 product.Tags,
		"image_url":            product.ImageURL,
		"updated_at":           product.UpdatedAt,
	})
	if err != nil {
		return lib.MapPgError(err)
	}
	if n == 0 {
		return lib.ErrNotFound
	}
	return nil
}

type productCollectionRepo struct {
	db *database.DB
}

func NewProductCollectionRepo(db *database.DB) ProductCollectionRepository {
	return &productCollectionRepo{db}
}

func (r *productCollectionRepo) ListForProducts(ctx context.Context, productIDs []uuid.UUID) ([]tables.ProductCollection, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	rows, err := database.Query[tables.ProductCollection](r.db).WhereIn("pc.product_id", productIDs).All(ctx)
	return rows, lib.MapPgError(err)
}

func (r *productCollectionRepo) AddLinks(ctx context.Context, links []tables.ProductCollection) (int, error) {
	n, err := database.Query[tables.ProductCollection](r.db).InsertIgnore(ctx, links)
	return n, lib.MapPgError(err)
}

// suffixPatterns builds LIKE patterns matching base-<suffixLen chars>. Slugs
// only hold [a-z0-9-] so nothing needs escaping.
func suffixPatterns(bases []string, suffixLen int) []string {
	out := make([]string, len(bases))
	for i, base := range bases {
		out[i] = base + "-" + strings.Repeat("_", suffixLen)
	}
	return out
}

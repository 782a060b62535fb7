package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// Transaction executes fn within a database transaction bounded by the pool timeout
func Transaction(ctx context.Context, db *DB, fn func(ctx context.Context, tx bun.Tx) error) error {
	if db == nil {
		return fmt.Errorf("database instance not initialized")
	}

	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	return db.RunInTx(ctx, nil, fn)
}

// FindByID is a helper to find a record by ID, nil when absent
func FindByID[T any](db *DB, ctx context.Context, id any) (*T, error) {
	return Query[T](db).Where("id", id).First(ctx)
}

// FindByIDs is a helper to find multiple records by IDs
func FindByIDs[T any, ID any](db *DB, ctx context.Context, ids []ID) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return Query[T](db).WhereIn("id", ids).All(ctx)
}

// UpdateByID is a helper to update a record by ID
func UpdateByID[T any](db *DB, ctx context.Context, id any, data map[string]any) (int, error) {
	return Query[T](db).Where("id", id).Update(ctx, data)
}

// Chunk executes a callback for each chunk of results. The query needs a
// stable ORDER BY for the offsets to be meaningful.
func Chunk[T any](ctx context.Context, query *QueryBuilder[T], chunkSize int, fn func([]T, int) error) error {
	if chunkSize < 1 {
		chunkSize = 100
	}

	offset := 0
	chunkNumber := 0

	for {
		chunk, err := query.Limit(chunkSize).Offset(offset).All(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch chunk at offset %d: %w", offset, err)
		}

		if len(chunk) == 0 {
			break
		}

		if err := fn(chunk, chunkNumber); err != nil {
			return fmt.Errorf("chunk processing failed at chunk %d: %w", chunkNumber, err)
		}

		if len(chunk) < chunkSize {
			break
		}

		offset += chunkSize
		chunkNumber++
	}

	return nil
}

package database

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// QueryBuilder provides a fluent, type-safe API for building database queries
type QueryBuilder[T any] struct {
	idb bun.IDB

	// Query clauses
	selectCols []string
	wheres     []*WhereClause
	orders     []*OrderClause
	limitVal   *int
	offsetVal  *int

	// Relations to preload
	relations []string

	inTx bool

	// Timeout
	timeout time.Duration
}

// WhereClause represents a WHERE condition
type WhereClause struct {
	Column   string
	Operator string
	Value    any
	IsRaw    bool
	RawSQL   string
	RawArgs  []any
}

// OrderClause represents an ORDER BY clause
type OrderClause struct {
	Column    string
	Direction OrderDirection
}

// OrderDirection represents sort direction
type OrderDirection string

const (
	ASC  OrderDirection = "ASC"
	DESC OrderDirection = "DESC"
)

// Query creates a new QueryBuilder bound to the pool, with the pool's default timeout
func Query[T any](db *DB) *QueryBuilder[T] {
	return &QueryBuilder[T]{
		idb:     db.DB,
		timeout: db.QueryTimeout,
	}
}

// Tx runs the query inside tx instead of on the pool
func (q *QueryBuilder[T]) Tx(tx bun.Tx) *QueryBuilder[T] {
	q.idb = tx
	q.inTx = true
	return q
}

// Select specifies the columns to select
func (q *QueryBuilder[T]) Select(columns ...string) *QueryBuilder[T] {
	q.selectCols = append(q.selectCols, columns...)
	return q
}

// Where adds a simple WHERE condition (column = value)
func (q *QueryBuilder[T]) Where(column string, value any) *QueryBuilder[T] {
	return q.WhereOp(column, "=", value)
}

// WhereOp adds a WHERE condition with a custom operator
func (q *QueryBuilder[T]) WhereOp(column, operator string, value any) *QueryBuilder[T] {
	q.wheres = append(q.wheres, &WhereClause{
		Column:   column,
		Operator: operator,
		Value:    value,
	})
	return q
}

// WhereIn adds a WHERE IN condition. values must be a slice.
func (q *QueryBuilder[T]) WhereIn(column string, values any) *QueryBuilder[T] {
	q.wheres = append(q.wheres, &WhereClause{
		Column:   column,
		Operator: "IN",
		Value:    values,
	})
	return q
}

// WhereRaw adds a raw WHERE condition
func (q *QueryBuilder[T]) WhereRaw(sql string, args ...any) *QueryBuilder[T] {
	q.wheres = append(q.wheres, &WhereClause{
		IsRaw:   true,
		RawSQL:  sql,
		RawArgs: args,
	})
	return q
}

// OrderBy adds an ORDER BY clause
func (q *QueryBuilder[T]) OrderBy(column string, direction OrderDirection) *QueryBuilder[T] {
	q.orders = append(q.orders, &OrderClause{
		Column:    column,
		Direction: direction,
	})
	return q
}

// Limit sets the LIMIT clause
func (q *QueryBuilder[T]) Limit(limit int) *QueryBuilder[T] {
	q.limitVal = &limit
	return q
}

// Offset sets the OFFSET clause
func (q *QueryBuilder[T]) Offset(offset int) *QueryBuilder[T] {
	q.offsetVal = &offset
	return q
}

// With specifies a relation to preload
func (q *QueryBuilder[T]) With(relation string) *QueryBuilder[T] {
	q.relations = append(q.relations, relation)
	return q
}

// retry skips the backoff loop inside a transaction, an aborted tx never recovers
func (q *QueryBuilder[T]) retry(ctx context.Context, fn func() error) error {
	if q.inTx {
		return fn()
	}
	return WithRetry(ctx, fn)
}

func (q *QueryBuilder[T]) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if q.timeout > 0 {
		return context.WithTimeout(ctx, q.timeout)
	}
	return ctx, func() {}
}

// buildSelect renders the builder state onto a bun select with dest as model
func (q *QueryBuilder[T]) buildSelect(dest any) *bun.SelectQuery {
	query := q.idb.NewSelect().Model(dest)

	if len(q.selectCols) > 0 {
		query = query.Column(q.selectCols...)
	}

	query = applyWheres(query, q.wheres)

	for _, rel := range q.relations {
		query = query.Relation(rel)
	}

	for _, order := range q.orders {
		if order.Direction == DESC {
			query = query.OrderExpr("? DESC", bun.Ident(order.Column))
		} else {
			query = query.OrderExpr("? ASC", bun.Ident(order.Column))
		}
	}

	if q.limitVal != nil {
		query = query.Limit(*q.limitVal)
	}

	if q.offsetVal != nil {
		query = query.Offset(*q.offsetVal)
	}

	return query
}

// whereable is satisfied by bun's select and update queries
type whereable[Q any] interface {
	Where(query string, args ...any) Q
}

func applyWheres[Q whereable[Q]](query Q, wheres []*WhereClause) Q {
	for _, where := range wheres {
		if where.IsRaw {
			query = query.Where(where.RawSQL, where.RawArgs...)
			continue
		}

		if where.Operator == "IN" {
			query = query.Where("? IN (?)", bun.Ident(where.Column), bun.In(where.Value))
		} else {
			query = query.Where("? "+where.Operator+" ?", bun.Ident(where.Column), where.Value)
		}
	}
	return query
}

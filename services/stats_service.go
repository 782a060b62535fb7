package services

import (
	"context"
	"fmt"
	"storeadmin_server/repository"
	"storeadmin_server/structs"
	"storeadmin_server/structs/tables"
	"sync"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/google/uuid"
)

// StatsCache holds the last computed dashboard. CacheService implements it.
type StatsCache interface {
	GetDashboardStats(ctx context.Context) (*structs.DashboardStats, error)
	SetDashboardStats(ctx context.Context, stats *structs.DashboardStats, ttl time.Duration) error
	InvalidateDashboardStats(ctx context.Context) error
}

type StatsService struct {
	logger *gecho.Logger
	repos  *repository.Repositories
	cache  StatsCache
	loc    *time.Location
	ttl    time.Duration
	now    func() time.Time
}

// NewStatsService builds the aggregator. cache may be nil.
func NewStatsService(logger *gecho.Logger, repos *repository.Repositories, cache StatsCache, cfg *structs.StatsConfig) *StatsService {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("Unknown stats timezone, using UTC", gecho.Field("timezone", cfg.Timezone), gecho.Field("error", err))
		loc = time.UTC
	}
	return &StatsService{
		logger: logger,
		repos:  repos,
		cache:  cache,
		loc:    loc,
		ttl:    cfg.CacheTTL,
		now:    time.Now,
	}
}

// Dashboard returns the cached snapshot when there is one. A snapshot may
// trail the latest commits by up to the cache TTL.
func (ss *StatsService) Dashboard(ctx context.Context) (*structs.DashboardStats, error) {
	if ss.cache != nil {
		cached, err := ss.cache.GetDashboardStats(ctx)
		if err != nil {
			ss.logger.Warn("Stats cache read failed", gecho.Field("error", err))
		} else if cached != nil {
			return cached, nil
		}
	}
	return ss.Refresh(ctx)
}

// Refresh recomputes the dashboard from the row store and caches it
func (ss *StatsService) Refresh(ctx context.Context) (*structs.DashboardStats, error) {
	stats, err := ss.compute(ctx)
	if err != nil {
		return nil, err
	}
	if ss.cache != nil && ss.ttl > 0 {
		if err := ss.cache.SetDashboardStats(ctx, stats, ss.ttl); err != nil {
			ss.logger.Warn("Stats cache write failed", gecho.Field("error", err))
		}
	}
	return stats, nil
}

// Invalidate drops the cached snapshot
func (ss *StatsService) Invalidate(ctx context.Context) {
	if ss.cache == nil {
		return
	}
	if err := ss.cache.InvalidateDashboardStats(ctx); err != nil {
		ss.logger.Warn("Stats cache invalidation failed", gecho.Field("error", err))
	}
}

func (ss *StatsService) Orders(ctx context.Context) (structs.OrderStats, error) {
	d, err := ss.Dashboard(ctx)
	if err != nil {
		return structs.OrderStats{}, err
	}
	return d.Orders, nil
}

func (ss *StatsService) Bookings(ctx context.Context) (structs.BookingStats, error) {
	d, err := ss.Dashboard(ctx)
	if err != nil {
		return structs.BookingStats{}, err
	}
	return d.Bookings, nil
}

func (ss *StatsService) Returns(ctx context.Context) (structs.ReturnStats, error) {
	d, err := ss.Dashboard(ctx)
	if err != nil {
		return structs.ReturnStats{}, err
	}
	return d.Returns, nil
}

func (ss *StatsService) compute(ctx context.Context) (*structs.DashboardStats, error) {
	window := NewStatsWindow(ss.now(), ss.loc)

	orders, err := ss.repos.Orders.ListForStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading orders: %w", err)
	}
	bookings, err := ss.repos.Bookings.ListForStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading bookings: %w", err)
	}
	returns, err := ss.repos.Returns.ListForStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading returns: %w", err)
	}
	items, err := ss.repos.Returns.ItemsForStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading return items: %w", err)
	}

	prices, err := ss.unitPrices(ctx, returns, items)
	if err != nil {
		return nil, err
	}

	return &structs.DashboardStats{
		Orders:     AggregateOrders(orders, window),
		Bookings:   AggregateBookings(bookings, window),
		Returns:    AggregateReturns(returns, items, prices, window),
		ComputedAt: window.Now,
	}, nil
}

// unitPrices loads the order item prices the refund estimate needs
func (ss *StatsService) unitPrices(ctx context.Context, returns []tables.Return, items []tables.ReturnItem) (map[uuid.UUID]int64, error) {
	refunded := map[uuid.UUID]bool{}
	for _, r := range returns {
		if r.Status == tables.ReturnStatusRefunded {
			refunded[r.ID] = true
		}
	}
	var ids []uuid.UUID
	seen := map[uuid.UUID]bool{}
	for _, item := range items {
		if refunded[item.ReturnID] && !seen[item.OrderItemID] {
			seen[item.OrderItemID] = true
			ids = append(ids, item.OrderItemID)
		}
	}
	prices := make(map[uuid.UUID]int64, len(ids))
	if len(ids) == 0 {
		return prices, nil
	}

	orderItems, err := ss.repos.Orders.ItemsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading order item prices: %w", err)
	}
	for _, oi := range orderItems {
		prices[oi.ID] = oi.PriceINR
	}
	return prices, nil
}

var statsTables = map[string]bool{
	"orders":       true,
	"order_items":  true,
	"bookings":     true,
	"returns":      true,
	"return_items": true,
}

// StatsRefresher drops and recomputes the dashboard after changes to the
// tables it reads. Bursts of changes collapse into one recompute.
type StatsRefresher struct {
	logger   *gecho.Logger
	stats    *StatsService
	feed     *ChangeFeed
	debounce time.Duration

	mu        sync.Mutex
	refreshes int
}

func NewStatsRefresher(logger *gecho.Logger, stats *StatsService, feed *ChangeFeed, debounce time.Duration) *StatsRefresher {
	return &StatsRefresher{
		logger:   logger,
		stats:    stats,
		feed:     feed,
		debounce: debounce,
	}
}

// Refreshes reports how many recomputes have run
func (sr *StatsRefresher) Refreshes() int {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return sr.refreshes
}

// Run consumes the feed until ctx is done or the feed closes
func (sr *StatsRefresher) Run(ctx context.Context) {
	changes, cancel := sr.feed.Subscribe()
	defer cancel()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			if !statsTables[change.Table] {
				continue
			}
			sr.stats.Invalidate(ctx)
			if timer == nil {
				timer = time.NewTimer(sr.debounce)
			} else {
				timer.Reset(sr.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			if _, err := sr.stats.Refresh(ctx); err != nil {
				sr.logger.Warn("Stats refresh failed", gecho.Field("error", err))
				continue
			}
			sr.mu.Lock()
			sr.refreshes++
			sr.mu.Unlock()
		}
	}
}

package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"storeadmin_server/repository/memstore"
	"storeadmin_server/structs"
	"storeadmin_server/structs/tables"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatsCache struct {
	mu          sync.Mutex
	stats       *structs.DashboardStats
	invalidated int
}

func (c *fakeStatsCache) GetDashboardStats(context.Context) (*structs.DashboardStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats, nil
}

func (c *fakeStatsCache) SetDashboardStats(_ context.Context, stats *structs.DashboardStats, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = stats
	return nil
}

func (c *fakeStatsCache) InvalidateDashboardStats(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = nil
	c.invalidated++
	return nil
}

func (c *fakeStatsCache) cachedOrders() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stats == nil {
		return -1
	}
	return c.stats.Orders.Total
}

func newStatsFixture(t *testing.T, tz string) (*StatsService, *memstore.Store, *fakeStatsCache) {
	t.Helper()
	store := memstore.New()
	cache := &fakeStatsCache{}
	svc := NewStatsService(testLogger(), store.Repositories(), cache, &structs.StatsConfig{
		Timezone: tz,
		CacheTTL: time.Minute,
	})
	svc.now = func() time.Time { return fixedNow }
	return svc, store, cache
}

func TestStatsDashboardUsesCache(t *testing.T) {
	svc, store, cache := newStatsFixture(t, "Asia/Kolkata")
	ctx := context.Background()
	store.AddOrder(tables.Order{Status: tables.OrderStatusDelivered, TotalINR: 1000, CreatedAt: fixedNow})

	first, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Orders.Total)
	assert.True(t, first.ComputedAt.Equal(fixedNow))
	assert.Equal(t, 1, cache.cachedOrders())

	store.AddOrder(tables.Order{Status: tables.OrderStatusPending, TotalINR: 300, CreatedAt: fixedNow})
	stale, err := svc.Orders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stale.Total)

	svc.Invalidate(ctx)
	fresh, err := svc.Orders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Total)
	assert.Equal(t, int64(1000), fresh.RevenueTotalINR)
}

func TestStatsRefundEstimateUsesOrderItemPrices(t *testing.T) {
	svc, store, _ := newStatsFixture(t, "Asia/Kolkata")
	order := store.AddOrder(tables.Order{
		Status:    tables.OrderStatusDelivered,
		TotalINR:  998,
		CreatedAt: fixedNow,
		Items:     []tables.OrderItem{{Qty: 2, PriceINR: 499}},
	})
	store.AddReturn(tables.Return{
		OrderID:   order.ID,
		Status:    tables.ReturnStatusRefunded,
		CreatedAt: fixedNow,
		Items:     []tables.ReturnItem{{OrderItemID: order.Items[0].ID, Qty: 1}},
	})
	store.AddBooking(tables.Booking{Status: tables.BookingStatusConfirmed, TotalINR: 2500, CreatedAt: fixedNow})

	returns, err := svc.Returns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(499), returns.RefundEstimateINR)
	assert.Equal(t, 0, returns.Open)

	bookings, err := svc.Bookings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2500), bookings.RevenueTotalINR)
}

func TestStatsUnknownTimezoneFallsBackToUTC(t *testing.T) {
	svc, _, _ := newStatsFixture(t, "Mars/Olympus_Mons")
	assert.Equal(t, time.UTC, svc.loc)
}

func TestStatsRefresherRecomputesAfterChanges(t *testing.T) {
	svc, store, cache := newStatsFixture(t, "UTC")
	feed := NewChangeFeed()
	refresher := NewStatsRefresher(testLogger(), svc, feed, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		refresher.Run(ctx)
		close(done)
	}()

	store.AddOrder(tables.Order{Status: tables.OrderStatusPaid, TotalINR: 100, CreatedAt: fixedNow})
	store.AddOrder(tables.Order{Status: tables.OrderStatusPaid, TotalINR: 200, CreatedAt: fixedNow})

	require.Eventually(t, func() bool {
		feed.Publish(structs.TableChange{Table: "orders", Op: "insert"})
		return refresher.Refreshes() > 0 && cache.cachedOrders() == 2
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	<-done
}

func TestStatsRefresherStopsWhenFeedCloses(t *testing.T) {
	svc, _, _ := newStatsFixture(t, "UTC")
	feed := NewChangeFeed()
	refresher := NewStatsRefresher(testLogger(), svc, feed, time.Millisecond)

	done := make(chan struct{})
	go func() {
		refresher.Run(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool {
		feed.Close()
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

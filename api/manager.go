package api

import (
	"storeadmin_server/api/admin"
	"storeadmin_server/api/catalog"
	"storeadmin_server/api/debug"
	"storeadmin_server/api/health"
	"storeadmin_server/api/middleware"
	"storeadmin_server/services"
	"storeadmin_server/structs"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

type routerManager struct {
	healthRoutes  *health.HealthRoutesManager
	adminRoutes   *admin.AdminRoutesManager
	catalogRoutes *catalog.CatalogRoutesManager
	debugRoutes   *debug.DebugRoutesManager
}

func NewRouterManager(logger *gecho.Logger, cfg *structs.Config, sm *services.ServiceManager, mw *middleware.Middleware) *routerManager {
	var pool debug.PoolStats
	if sm.CacheService != nil {
		pool = sm.CacheService
	}

	return &routerManager{
		healthRoutes:  health.NewHealthRoutesManager(sm.HealthService),
		adminRoutes:   admin.NewAdminRoutesManager(logger, sm.OrderService, sm.ReturnService, sm.BookingService, sm.StatsService, mw),
		catalogRoutes: catalog.NewCatalogRoutesManager(logger, sm.ImportService, mw, cfg.Import.MaxUploadBytes),
		debugRoutes:   debug.NewDebugRoutesManager(sm.StatsService, pool, cfg.Server.Environment != "production"),
	}
}

func (rm *routerManager) RegisterRoutes(r chi.Router) {
	rm.healthRoutes.RegisterRoutes(r)
	rm.adminRoutes.RegisterRoutes(r)
	rm.catalogRoutes.RegisterRoutes(r)
	rm.debugRoutes.RegisterRoutes(r)
}

package debug

import (
	"storeadmin_server/services"

	"github.com/go-chi/chi/v5"
)

// PoolStats reports cache connection pool counters
type PoolStats interface {
	GetConnectionStats() map[string]any
}

type DebugRoutesManager struct {
	statsService *services.StatsService
	cache        PoolStats
	enabled      bool
}

// NewDebugRoutesManager builds the debug routes. They are only mounted when
// enabled, which the router ties to a non-production environment.
func NewDebugRoutesManager(statsService *services.StatsService, cache PoolStats, enabled bool) *DebugRoutesManager {
	return &DebugRoutesManager{
		statsService: statsService,
		cache:        cache,
		enabled:      enabled,
	}
}

func (drm *DebugRoutesManager) RegisterRoutes(r chi.Router) {
	if !drm.enabled {
		return
	}
	r.Route("/debug", func(r chi.Router) {
		r.Get("/cache", drm.CacheStats)
		r.Post("/stats/refresh", drm.RefreshStats)
	})
}

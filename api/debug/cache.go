package debug

import (
	"net/http"

	"github.com/MonkyMars/gecho"
)

func (drm *DebugRoutesManager) CacheStats(w http.ResponseWriter, r *http.Request) {
	if drm.cache == nil {
		gecho.ServiceUnavailable(w, gecho.WithMessage("Cache not configured"), gecho.Send())
		return
	}
	gecho.Success(w,
		gecho.WithData(drm.cache.GetConnectionStats()),
		gecho.Send(),
	)
}

// RefreshStats drops the cached dashboard and recomputes it
func (drm *DebugRoutesManager) RefreshStats(w http.ResponseWriter, r *http.Request) {
	drm.statsService.Invalidate(r.Context())
	stats, err := drm.statsService.Refresh(r.Context())
	if err != nil {
		gecho.InternalServerError(w,
			gecho.WithMessage("Stats refresh failed"),
			gecho.Send(),
		)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("Stats refreshed"),
		gecho.WithData(stats),
		gecho.Send(),
	)
}

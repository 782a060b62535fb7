package api

import (
	"net/http"
	"storeadmin_server/api/middleware"
	"storeadmin_server/config"
	"storeadmin_server/services"
	"storeadmin_server/structs"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
	chiware "github.com/go-chi/chi/v5/middleware"
)

// jsonBodyLimit caps non multipart bodies, the import route sets its own cap
const jsonBodyLimit = 1 << 20

func App(cfg *structs.Config, sm *services.ServiceManager) chi.Router {
	r := chi.NewRouter()

	// create loggers
	mwLogger := config.NewLogger(false)
	standardLogger := config.NewLogger(true)

	var limiter middleware.RateLimiter
	if sm.CacheService != nil {
		limiter = sm.CacheService
	}
	mw := middleware.NewMiddleware(cfg, mwLogger, limiter)

	// Core infra
	r.Use(chiware.RequestID)
	r.Use(chiware.RealIP)
	r.Use(chiware.Recoverer)

	// Limits & security
	r.Use(bodyLimit(mw, cfg))
	r.Use(mw.SecurityHeaders())

	// Observability
	r.Use(mw.SetupLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware)

	// CORS (must be before auth)
	r.Use(mw.SetupCORS().Handler)
	r.Use(mw.RateLimitMiddleware())

	NewRouterManager(standardLogger, cfg, sm, mw).RegisterRoutes(r)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		gecho.Success(w,
			gecho.WithMessage("Welcome to the "+cfg.Server.AppName+" API"),
			gecho.Send(),
		)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		gecho.NotFound(w,
			gecho.Send(),
		)
	})

	return r
}

// bodyLimit applies the JSON cap everywhere except the import upload
func bodyLimit(mw *middleware.Middleware, cfg *structs.Config) func(http.Handler) http.Handler {
	jsonLimit := mw.BodyLimit(jsonBodyLimit)
	return func(next http.Handler) http.Handler {
		limited := jsonLimit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/bulk-import" && cfg.Import.MaxUploadBytes > 0 {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

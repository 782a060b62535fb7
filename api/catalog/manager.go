package catalog

import (
	"storeadmin_server/api/middleware"
	"storeadmin_server/services"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

type CatalogRoutesManager struct {
	logger         *gecho.Logger
	importService  *services.ImportService
	mw             *middleware.Middleware
	maxUploadBytes int64
}

func NewCatalogRoutesManager(
	logger *gecho.Logger,
	importService *services.ImportService,
	mw *middleware.Middleware,
	maxUploadBytes int64,
) *CatalogRoutesManager {
	return &CatalogRoutesManager{
		logger:         logger,
		importService:  importService,
		mw:             mw,
		maxUploadBytes: maxUploadBytes,
	}
}

func (cr *CatalogRoutesManager) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(cr.mw.AdminAuthMiddleware)
		r.Post("/bulk-import", cr.BulkImport)
	})
}

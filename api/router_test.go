package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"storeadmin_server/config"
	"storeadmin_server/repository/memstore"
	"storeadmin_server/services"

	"github.com/MonkyMars/gecho"
	"github.com/stretchr/testify/assert"
)

func TestAppRoutes(t *testing.T) {
	cfg := config.Load()
	cfg.RateLimit.Enabled = false
	sm := services.NewServiceManagerWithRepositories(gecho.NewDefaultLogger(), cfg, memstore.New().Repositories())
	t.Cleanup(func() { _ = sm.CacheService.Close() })

	app := App(cfg, sm)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{method: http.MethodGet, path: "/", want: http.StatusOK},
		{method: http.MethodGet, path: "/health/server", want: http.StatusOK},
		{method: http.MethodGet, path: "/metrics", want: http.StatusOK},
		{method: http.MethodGet, path: "/admin/stats", want: http.StatusUnauthorized},
		{method: http.MethodPost, path: "/bulk-import", want: http.StatusUnauthorized},
		{method: http.MethodGet, path: "/products", want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			app.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		})
	}
}

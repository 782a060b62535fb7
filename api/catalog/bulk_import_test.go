package catalog

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"storeadmin_server/api/middleware"
	"storeadmin_server/lib"
	"storeadmin_server/repository/memstore"
	"storeadmin_server/services"
	"storeadmin_server/structs"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "catalog-test-secret"

const (
	collectionsCSV = "name,slug\nDaily Pooja,daily-pooja\n"
	productsCSV    = "name,price,stock,collection_slugs\nBrass Diya,499,10,daily-pooja\n"
)

type part struct {
	field       string
	contentType string
	body        string
}

func newRouter(t *testing.T, store *memstore.Store, maxUpload int64) http.Handler {
	t.Helper()
	logger := gecho.NewDefaultLogger()
	cfg := &structs.Config{Auth: &structs.AuthConfig{AccessTokenSecret: testSecret}}
	importService := services.NewImportService(logger, store.Repositories(), nil, nil, time.Second)

	r := chi.NewRouter()
	NewCatalogRoutesManager(logger, importService, middleware.NewMiddleware(cfg, logger, nil), maxUpload).RegisterRoutes(r)
	return r
}

func adminToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  uuid.NewString(),
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func uploadRequest(t *testing.T, dryRun *string, parts ...part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.field+`.csv"`)
		if p.contentType != "" {
			header.Set("Content-Type", p.contentType)
		}
		w, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = w.Write([]byte(p.body))
		require.NoError(t, err)
	}
	if dryRun != nil {
		require.NoError(t, mw.WriteField("dry_run", *dryRun))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/bulk-import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func strPtr(s string) *string { return &s }

func TestBulkImportDefaultsToDryRun(t *testing.T) {
	store := memstore.New()
	router := newRouter(t, store, 0)

	rec := serve(router, uploadRequest(t, nil,
		part{field: "collections", contentType: "text/csv", body: collectionsCSV},
		part{field: "products", contentType: "text/csv", body: productsCSV},
	))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result structs.ImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.OK)
	assert.Equal(t, 1, result.CollectionsCreated)
	assert.Equal(t, 1, result.ProductsCreated)
	assert.Equal(t, 1, result.LinksCreated)

	_, written := store.CollectionBySlug("daily-pooja")
	assert.False(t, written)
}

func TestBulkImportApplies(t *testing.T) {
	store := memstore.New()
	router := newRouter(t, store, 0)

	rec := serve(router, uploadRequest(t, strPtr("false"),
		part{field: "collections", body: collectionsCSV},
		part{field: "products", contentType: "application/vnd.ms-excel", body: productsCSV},
	))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, ok := store.CollectionBySlug("daily-pooja")
	assert.True(t, ok)
	_, ok = store.ProductBySlug("brass-diya")
	assert.True(t, ok)
	assert.Equal(t, 1, store.LinkCount())
}

func TestBulkImportRejections(t *testing.T) {
	tests := []struct {
		name   string
		dryRun *string
		parts  []part
	}{
		{name: "no parts", parts: nil},
		{name: "bad dry_run", dryRun: strPtr("maybe"), parts: []part{{field: "collections", body: collectionsCSV}}},
		{name: "image upload", parts: []part{{field: "products", contentType: "image/png", body: productsCSV}}},
		{name: "missing name header", parts: []part{{field: "collections", body: "title,slug\nDaily Pooja,daily-pooja\n"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memstore.New()
			rec := serve(newRouter(t, store, 0), uploadRequest(t, tt.dryRun, tt.parts...))
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var failure structs.ImportFailure
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &failure))
			assert.False(t, failure.OK)
			require.Len(t, failure.Logs, 1)
			assert.NotEmpty(t, failure.Logs[0])
		})
	}
}

func TestBulkImportNotMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/bulk-import", bytes.NewBufferString(`{"products":[]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminToken(t))

	rec := serve(newRouter(t, memstore.New(), 0), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBulkImportTooLarge(t *testing.T) {
	big := part{field: "products", body: productsCSV + string(bytes.Repeat([]byte("Camphor,120,5,\n"), 200))}
	rec := serve(newRouter(t, memstore.New(), 512), uploadRequest(t, nil, big))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestBulkImportRowWriteFailure(t *testing.T) {
	store := memstore.New()
	store.Fail(memstore.OpCollectionCreate, lib.ErrTransient)
	rec := serve(newRouter(t, store, 0), uploadRequest(t, strPtr("false"), part{field: "collections", body: collectionsCSV}))

	// write failures are per row, the request still succeeds
	require.Equal(t, http.StatusOK, rec.Code)
	var result structs.ImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.OK)
	assert.Zero(t, result.CollectionsCreated)
}

func TestBulkImportRequiresAdmin(t *testing.T) {
	req := uploadRequest(t, nil, part{field: "collections", body: collectionsCSV})
	req.Header.Del("Authorization")
	assert.Equal(t, http.StatusUnauthorized, serve(newRouter(t, memstore.New(), 0), req).Code)
}

func TestParseDryRun(t *testing.T) {
	for raw, want := range map[string]bool{"": true, " ": true, "true": true, "1": true, "false": false, "0": false} {
		got, err := parseDryRun(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := parseDryRun("yes")
	assert.Error(t, err)
}

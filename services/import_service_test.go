package services

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"storeadmin_server/lib"
	"storeadmin_server/repository/memstore"
	"storeadmin_server/structs"
	"storeadmin_server/structs/tables"

	"github.com/MonkyMars/gecho"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *gecho.Logger {
	return gecho.NewDefaultLogger()
}

type fakeVerifier struct {
	ok    bool
	calls []string
}

func (f *fakeVerifier) Verify(_ context.Context, src string) (bool, []string) {
	f.calls = append(f.calls, src)
	if f.ok {
		return true, []string{"[image:url] ok (HEAD) " + src + " (ct=image/png)"}
	}
	return false, []string{"[image:url] GET " + src + " -> 404"}
}

type recordingNotifier struct {
	changes []structs.TableChange
}

func (r *recordingNotifier) NotifyChange(_ context.Context, c structs.TableChange) {
	r.changes = append(r.changes, c)
}

func newImportFixture(t *testing.T) (*ImportService, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	svc := NewImportService(testLogger(), store.Repositories(), nil, nil, time.Second)
	return svc, store
}

func hasLog(logs []string, want string) bool {
	return slices.ContainsFunc(logs, func(l string) bool { return strings.Contains(l, want) })
}

func TestImportBrassDiyaUnresolvedCollection(t *testing.T) {
	svc, store := newImportFixture(t)

	res, err := svc.Import(context.Background(), ImportInput{
		Products: []byte("name,price,stock,collection_slugs\nBrass Diya,499,10,daily-pooja\n"),
	})
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.Equal(t, 1, res.ProductsCreated)
	assert.Equal(t, 0, res.LinksCreated)
	assert.True(t, hasLog(res.Logs, "[link] missing collection for label='daily-pooja' -> slug='daily-pooja'"))
	assert.True(t, strings.HasPrefix(res.Logs[len(res.Logs)-1], "[summary]"))

	p, ok := store.ProductBySlug("brass-diya")
	require.True(t, ok)
	assert.Equal(t, "Brass Diya", p.Name)
	assert.Equal(t, int64(499), p.PriceINR)
	assert.Equal(t, 10, p.Stock)
	assert.True(t, p.IsActive)
	assert.Equal(t, 0, store.LinkCount())
}

const (
	catalogCollections = "name,slug,description,image_url\n" +
		"Daily Pooja,,Everyday essentials,https://cdn.example.com/daily.png\n" +
		"Festive,festive,,\n"
	catalogProducts = "title,price_inr,stock,is_active,collections,tags,compare_at_price\n" +
		"Brass Diya,499.00,10,yes,Daily Pooja|festive,brass;lamp,599\n" +
		"Camphor Tablets,120,50,no,daily-pooja,,\n"
)

func TestImportIsIdempotent(t *testing.T) {
	svc, store := newImportFixture(t)
	in := ImportInput{Collections: []byte(catalogCollections), Products: []byte(catalogProducts)}

	first, err := svc.Import(context.Background(), in)
	require.NoError(t, err)
	require.True(t, first.OK, first.Logs)
	assert.Equal(t, 2, first.CollectionsCreated)
	assert.Equal(t, 2, first.ProductsCreated)
	assert.Equal(t, 3, first.LinksCreated)
	assert.Equal(t, 3, store.LinkCount())

	camphor, ok := store.ProductBySlug("camphor-tablets")
	require.True(t, ok)
	assert.False(t, camphor.IsActive)
	diya, _ := store.ProductBySlug("brass-diya")
	require.NotNil(t, diya.CompareAtPriceINR)
	assert.Equal(t, int64(599), *diya.CompareAtPriceINR)
	require.NotNil(t, diya.Tags)
	assert.Equal(t, "brass;lamp", *diya.Tags)

	second, err := svc.Import(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, second.OK)
	assert.Zero(t, second.CollectionsCreated)
	assert.Zero(t, second.CollectionsUpdated)
	assert.Zero(t, second.ProductsCreated)
	assert.Zero(t, second.ProductsUpdated)
	assert.Zero(t, second.LinksCreated)
	assert.True(t, hasLog(second.Logs, "[coll] unchanged: daily-pooja"))
	assert.True(t, hasLog(second.Logs, "[prod] unchanged: brass-diya"))
	assert.Equal(t, 3, store.LinkCount())
}

func TestImportDryRunMatchesPlanAndWritesNothing(t *testing.T) {
	svc, store := newImportFixture(t)
	store.AddCollection(tables.Collection{Name: "Festive", Slug: "festive"})
	ctx := context.Background()

	in := ImportInput{Collections: []byte(catalogCollections), Products: []byte(catalogProducts), DryRun: true}
	dry, err := svc.Import(ctx, in)
	require.NoError(t, err)

	store.Lock()
	assert.Len(t, store.Collections, 1)
	assert.Empty(t, store.Products)
	assert.Empty(t, store.ProductCollections)
	store.Unlock()
	assert.True(t, hasLog(dry.Logs, "[dry-run]"))

	in.DryRun = false
	applied, err := svc.Import(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, dry.OK, applied.OK)
	assert.Equal(t, dry.CollectionsCreated, applied.CollectionsCreated)
	assert.Equal(t, dry.CollectionsUpdated, applied.CollectionsUpdated)
	assert.Equal(t, dry.ProductsCreated, applied.ProductsCreated)
	assert.Equal(t, dry.ProductsUpdated, applied.ProductsUpdated)
	assert.Equal(t, dry.LinksCreated, applied.LinksCreated)
	assert.Equal(t, 1, applied.CollectionsCreated)
	assert.Equal(t, 3, applied.LinksCreated)

	for _, line := range dry.Logs {
		if strings.HasPrefix(line, "[dry-run]") || strings.HasPrefix(line, "[summary]") {
			continue
		}
		assert.Contains(t, applied.Logs, line)
	}
}

func TestImportGeneratedSlugCollision(t *testing.T) {
	svc, store := newImportFixture(t)
	existing := store.AddProduct(tables.Product{Name: "Brass-Diya", Slug: "brass-diya", PriceINR: 100, Stock: 1, IsActive: true})
	in := ImportInput{Products: []byte("name,price,stock\nBrass Diya,499,10\n")}

	first, err := svc.Import(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, first.OK)
	assert.Equal(t, 1, first.ProductsCreated)
	assert.True(t, hasLog(first.Logs, "slug collision"))

	var suffixed tables.Product
	store.Lock()
	for _, p := range store.Products {
		if p.ID != existing.ID {
			suffixed = p
		}
	}
	store.Unlock()
	assert.True(t, hasRandomSuffix(suffixed.Slug, "brass-diya", 4), suffixed.Slug)
	assert.Equal(t, "Brass Diya", suffixed.Name)

	untouched, _ := store.ProductBySlug("brass-diya")
	assert.Equal(t, int64(100), untouched.PriceINR)

	second, err := svc.Import(context.Background(), in)
	require.NoError(t, err)
	assert.Zero(t, second.ProductsCreated)
	assert.Zero(t, second.ProductsUpdated)
	assert.False(t, hasLog(second.Logs, "slug collision"))
	assert.True(t, hasLog(second.Logs, "[prod] unchanged: "+suffixed.Slug))
}

func TestImportReusesTwinAcrossUnicodeCase(t *testing.T) {
	svc, store := newImportFixture(t)
	store.AddProduct(tables.Product{Name: "Eclat Candle", Slug: "eclat", PriceINR: 100, Stock: 1, IsActive: true})
	twin := store.AddProduct(tables.Product{Name: "ÉCLAT", Slug: "eclat-k3m9", PriceINR: 250, Stock: 4, IsActive: true})

	res, err := svc.Import(context.Background(), ImportInput{
		Products: []byte("name,price,stock\néclat,250,4\n"),
	})
	require.NoError(t, err)
	require.True(t, res.OK, res.Logs)
	assert.Zero(t, res.ProductsCreated)
	assert.False(t, hasLog(res.Logs, "slug collision"))

	store.Lock()
	assert.Len(t, store.Products, 2)
	assert.Equal(t, "éclat", store.Products[twin.ID].Name)
	store.Unlock()
}

func TestImportExplicitSlugIsIdentity(t *testing.T) {
	svc, store := newImportFixture(t)
	store.AddProduct(tables.Product{Name: "Old Name", Slug: "brass-diya", PriceINR: 100, Stock: 1, IsActive: true})

	res, err := svc.Import(context.Background(), ImportInput{
		Products: []byte("name,slug,price,stock\nBrass Diya,Brass Diya,499,3\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ProductsCreated)
	assert.Equal(t, 1, res.ProductsUpdated)
	assert.True(t, hasLog(res.Logs, "[prod] update: brass-diya (name, price_inr, stock)"))

	p, _ := store.ProductBySlug("brass-diya")
	assert.Equal(t, "Brass Diya", p.Name)
	assert.Equal(t, int64(499), p.PriceINR)
}

func TestImportRowErrorsSkipRowsOnly(t *testing.T) {
	svc, store := newImportFixture(t)

	res, err := svc.Import(context.Background(), ImportInput{
		Products: []byte("name,price,stock\n" +
			"Good One,10,1\n" +
			"No Price,,1\n" +
			"Bad Stock,10,-2\n" +
			"Fractional,12.5,1\n" +
			",10,1\n" +
			"Good Two,20,2\n"),
	})
	require.NoError(t, err)

	assert.False(t, res.OK)
	assert.Equal(t, 2, res.ProductsCreated)
	assert.True(t, hasLog(res.Logs, "[prod] line 3: missing price"))
	assert.True(t, hasLog(res.Logs, "[prod] line 4: invalid stock"))
	assert.True(t, hasLog(res.Logs, "[prod] line 5: invalid price"))
	assert.True(t, hasLog(res.Logs, "[prod] line 6: missing name"))

	_, ok := store.ProductBySlug("good-two")
	assert.True(t, ok)
	_, ok = store.ProductBySlug("bad-stock")
	assert.False(t, ok)
}

func TestImportFatalInput(t *testing.T) {
	svc, store := newImportFixture(t)

	_, err := svc.Import(context.Background(), ImportInput{
		Collections: []byte("title,slug\nDaily Pooja,daily-pooja\n"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, lib.ErrValidation))

	_, err = svc.Import(context.Background(), ImportInput{
		Collections: []byte("name\nDaily Pooja\n"),
		Products:    []byte("name,price\n\"Brass Diya,499\n"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, lib.ErrValidation))

	store.Lock()
	assert.Empty(t, store.Collections)
	store.Unlock()
}

func TestImportWriteFailureIsReportedPerRow(t *testing.T) {
	svc, store := newImportFixture(t)
	store.Fail(memstore.OpProductCreate, lib.ErrTransient)

	res, err := svc.Import(context.Background(), ImportInput{
		Collections: []byte("name\nDaily Pooja\n"),
		Products:    []byte("name,price,stock,collection_slugs\nBrass Diya,499,10,daily-pooja\n"),
	})
	require.NoError(t, err)

	assert.False(t, res.OK)
	assert.Equal(t, 1, res.CollectionsCreated)
	assert.Equal(t, 0, res.ProductsCreated)
	assert.Equal(t, 0, res.LinksCreated)
	assert.True(t, hasLog(res.Logs, "[prod] failed to create brass-diya (line 2)"))
	assert.True(t, hasLog(res.Logs, "(retryable)"))
	assert.True(t, hasLog(res.Logs, "[link] skipped brass-diya -> daily-pooja: product was not written"))

	_, ok := store.CollectionBySlug("daily-pooja")
	assert.True(t, ok)
}

func TestImportLinksToStagedAndExistingCollections(t *testing.T) {
	svc, store := newImportFixture(t)
	festive := store.AddCollection(tables.Collection{Name: "Festive", Slug: "festive"})
	diya := store.AddProduct(tables.Product{Name: "Brass Diya", Slug: "brass-diya", PriceINR: 499, Stock: 10, IsActive: true})
	store.AddLink(diya.ID, festive.ID)

	res, err := svc.Import(context.Background(), ImportInput{
		Collections: []byte("name\nDaily Pooja\n"),
		Products:    []byte("name,price,stock,collection_slugs\nBrass Diya,499,10,\"Daily Pooja, Festive, Unknown One\"\n"),
	})
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.Equal(t, 0, res.ProductsUpdated)
	assert.Equal(t, 1, res.LinksCreated)
	assert.True(t, hasLog(res.Logs, "[link] missing collection for label='Unknown One' -> slug='unknown-one'"))
	assert.Equal(t, 2, store.LinkCount())
}

func TestImportLaterRowsSeeStagedEntities(t *testing.T) {
	svc, store := newImportFixture(t)

	res, err := svc.Import(context.Background(), ImportInput{
		Products: []byte("name,price,stock\nBrass Diya,499,10\nBrass Diya,549,10\nBRASS DIYA!,100,1\n"),
	})
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.Equal(t, 2, res.ProductsCreated)
	assert.Equal(t, 0, res.ProductsUpdated)

	p, _ := store.ProductBySlug("brass-diya")
	assert.Equal(t, int64(549), p.PriceINR)
	store.Lock()
	assert.Len(t, store.Products, 2)
	store.Unlock()
}

func TestImportImageCheckIsAdvisory(t *testing.T) {
	store := memstore.New()
	verifier := &fakeVerifier{ok: false}
	notifier := &recordingNotifier{}
	svc := NewImportService(testLogger(), store.Repositories(), verifier, notifier, time.Second)

	res, err := svc.Import(context.Background(), ImportInput{
		Products: []byte("name,price,stock,image\nBrass Diya,499,10,'https://cdn.example.com/diya.png'\n"),
	})
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.Equal(t, []string{"https://cdn.example.com/diya.png"}, verifier.calls)
	assert.True(t, hasLog(res.Logs, "[image:url] validation failed, keeping original URL as-is: https://cdn.example.com/diya.png"))

	p, _ := store.ProductBySlug("brass-diya")
	require.NotNil(t, p.ImageURL)
	assert.Equal(t, "https://cdn.example.com/diya.png", *p.ImageURL)
	assert.Contains(t, notifier.changes, structs.TableChange{Table: "products", Op: "import"})

	again, err := svc.Import(context.Background(), ImportInput{
		Products: []byte("name,price,stock,image\nBrass Diya,499,10,https://cdn.example.com/diya.png\n"),
	})
	require.NoError(t, err)
	assert.Zero(t, again.ProductsUpdated)
	assert.Len(t, verifier.calls, 1)
}

func TestImportDryRunSkipsImageCheck(t *testing.T) {
	store := memstore.New()
	verifier := &fakeVerifier{ok: true}
	svc := NewImportService(testLogger(), store.Repositories(), verifier, nil, time.Second)

	res, err := svc.Import(context.Background(), ImportInput{
		Collections: []byte("name,image_url\nDaily Pooja,https://cdn.example.com/daily.png\n"),
		DryRun:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.CollectionsCreated)
	assert.Empty(t, verifier.calls)
}

func TestImportLinkLookupFailureFlipsOK(t *testing.T) {
	svc, _ := newImportFixture(t)
	run := svc.newRun(false)
	run.collections.find = func(context.Context, []string) ([]tables.Collection, error) {
		return nil, lib.ErrTransient
	}
	product := run.products.stageCreate("brass-diya", 2, tables.Product{Name: "Brass Diya", Slug: "brass-diya"}, "")
	run.rowLinks = []productLinks{{product: product, slug: "brass-diya", labels: []string{"Daily Pooja"}}}

	require.NoError(t, run.planLinks(context.Background()))
	assert.False(t, run.result.OK)
	assert.True(t, hasLog(run.result.Logs, "[link] lookup of collection 'daily-pooja' failed for 'brass-diya'"))
	assert.True(t, hasLog(run.result.Logs, "(retryable)"))
	assert.Empty(t, run.links)
}

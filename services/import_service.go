package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"storeadmin_server/lib"
	"storeadmin_server/repository"
	"storeadmin_server/structs"
	"storeadmin_server/structs/tables"
	"strings"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/google/uuid"
)

const (
	suffixLength      = 4
	maxSuffixAttempts = 16
)

// ImportInput holds the raw CSV parts. A nil part was not uploaded.
type ImportInput struct {
	Collections []byte
	Products    []byte
	DryRun      bool
}

type ImportService struct {
	logger     *gecho.Logger
	repos      *repository.Repositories
	images     ImageVerifier
	notifier   ChangeNotifier
	rowTimeout time.Duration
}

// NewImportService builds the reconciler. images and notifier may be nil.
func NewImportService(
	logger *gecho.Logger,
	repos *repository.Repositories,
	images ImageVerifier,
	notifier ChangeNotifier,
	rowTimeout time.Duration,
) *ImportService {
	return &ImportService{
		logger:     logger,
		repos:      repos,
		images:     images,
		notifier:   notifier,
		rowTimeout: rowTimeout,
	}
}

type productLinks struct {
	product *planned[tables.Product]
	slug    string
	labels  []string
}

type plannedLink struct {
	product    *planned[tables.Product]
	collection *planned[tables.Collection]
	pslug      string
	cslug      string
}

// importRun is the state of one Import call
type importRun struct {
	svc    *ImportService
	dryRun bool
	result structs.ImportResult

	collections *catalogIndex[tables.Collection]
	products    *catalogIndex[tables.Product]
	rowLinks    []productLinks
	links       []plannedLink
}

// Import reconciles the CSV parts against the catalog. Input that cannot be
// read at all is returned as an error; everything else lands in the log.
func (s *ImportService) Import(ctx context.Context, in ImportInput) (*structs.ImportResult, error) {
	var ctab, ptab *csvTable
	var err error

	if in.Collections != nil {
		if ctab, err = parseCSV("collections", in.Collections); err != nil {
			return nil, err
		}
		if !ctab.hasHeader("name") {
			return nil, lib.NewInputError("collections: missing required column 'name'")
		}
	}
	if in.Products != nil {
		if ptab, err = parseCSV("products", in.Products); err != nil {
			return nil, err
		}
		if !ptab.hasHeader("name", "title") {
			return nil, lib.NewInputError("products: missing required column 'name'")
		}
	}

	run := s.newRun(in.DryRun)
	if in.DryRun {
		run.logf("[dry-run] previewing changes, nothing will be written")
	}
	if ctab != nil {
		run.logf("collections rows: %d", len(ctab.Rows))
	}
	if ptab != nil {
		run.logf("products rows: %d", len(ptab.Rows))
	}

	if err := run.preload(ctx, ctab, ptab); err != nil {
		s.logger.Error("Bulk import could not load the catalog", gecho.Field("error", err))
		return nil, err
	}

	if ctab != nil {
		run.planCollections(ctx, ctab)
	}
	if ptab != nil {
		run.planProducts(ctx, ptab)
	}
	if err := run.planLinks(ctx); err != nil {
		s.logger.Error("Bulk import could not load existing links", gecho.Field("error", err))
		return nil, err
	}

	if in.DryRun {
		run.countPlan()
	} else {
		run.applyCollections(ctx)
		run.applyProducts(ctx)
		run.applyLinks(ctx)
		run.notify(ctx)
	}

	r := &run.result
	run.logf("[summary] collections created=%d, updated=%d; products created=%d, updated=%d, links_added=%d",
		r.CollectionsCreated, r.CollectionsUpdated, r.ProductsCreated, r.ProductsUpdated, r.LinksCreated)

	s.logger.Info("Bulk import finished",
		gecho.Field("dry_run", in.DryRun),
		gecho.Field("ok", r.OK),
		gecho.Field("collections_created", r.CollectionsCreated),
		gecho.Field("collections_updated", r.CollectionsUpdated),
		gecho.Field("products_created", r.ProductsCreated),
		gecho.Field("products_updated", r.ProductsUpdated),
		gecho.Field("links_created", r.LinksCreated),
	)
	importRuns.WithLabelValues(outcomeLabel(r.OK), fmt.Sprint(in.DryRun)).Inc()

	return r, nil
}

func (s *ImportService) newRun(dryRun bool) *importRun {
	return &importRun{
		svc:    s,
		dryRun: dryRun,
		result: structs.ImportResult{OK: true, Logs: []string{}},
		collections: &catalogIndex[tables.Collection]{
			kind:     "coll",
			bySlug:   map[string]*planned[tables.Collection]{},
			absent:   map[string]bool{},
			find:     s.repos.Collections.FindBySlugs,
			suffixed: s.repos.Collections.FindSuffixed,
			slugOf:   func(c *tables.Collection) string { return c.Slug },
			nameOf:   func(c *tables.Collection) string { return c.Name },
			idOf:     func(c *tables.Collection) uuid.UUID { return c.ID },
		},
		products: &catalogIndex[tables.Product]{
			kind:     "prod",
			bySlug:   map[string]*planned[tables.Product]{},
			absent:   map[string]bool{},
			find:     s.repos.Products.FindBySlugs,
			suffixed: s.repos.Products.FindSuffixed,
			slugOf:   func(p *tables.Product) string { return p.Slug },
			nameOf:   func(p *tables.Product) string { return p.Name },
			idOf:     func(p *tables.Product) uuid.UUID { return p.ID },
		},
	}
}

func (run *importRun) logf(format string, args ...any) {
	run.result.Logs = append(run.result.Logs, fmt.Sprintf(format, args...))
}

// rowError records a hard per-row failure, which flips ok
func (run *importRun) rowError(kind string, line int, format string, args ...any) {
	run.result.OK = false
	run.logf("[%s] line %d: %s", kind, line, fmt.Sprintf(format, args...))
	importRows.WithLabelValues(kind, "error").Inc()
}

func (run *importRun) preload(ctx context.Context, ctab, ptab *csvTable) error {
	var collSlugs, collGenerated, prodSlugs, prodGenerated []string

	if ctab != nil {
		for _, row := range ctab.Rows {
			name := row.get("name")
			if explicit := row.get("slug"); explicit != "" {
				collSlugs = append(collSlugs, Slugify(explicit))
				continue
			}
			collSlugs = append(collSlugs, Slugify(name))
			collGenerated = append(collGenerated, Slugify(name))
		}
	}
	if ptab != nil {
		for _, row := range ptab.Rows {
			name := row.get("name", "title")
			if explicit := row.get("slug"); explicit != "" {
				prodSlugs = append(prodSlugs, Slugify(explicit))
			} else {
				prodSlugs = append(prodSlugs, Slugify(name))
				prodGenerated = append(prodGenerated, Slugify(name))
			}
			for _, label := range splitLabels(row.get(collectionColumns...)) {
				collSlugs = append(collSlugs, Slugify(label))
			}
		}
	}

	ctx, cancel := run.svc.rowContext(ctx)
	defer cancel()

	if err := run.collections.preload(ctx, collSlugs, collGenerated); err != nil {
		return err
	}
	return run.products.preload(ctx, prodSlugs, prodGenerated)
}

// resolveSlug normalizes an explicit slug, or derives one from name
func resolveSlug[T any](ctx context.Context, run *importRun, ix *catalogIndex[T], row csvRow, name string) (string, bool) {
	if explicit := row.get("slug"); explicit != "" {
		slug := Slugify(explicit)
		if slug == "" {
			run.rowError(ix.kind, row.Line, "slug %q has no usable characters, row skipped", explicit)
			return "", false
		}
		return slug, true
	}

	base := Slugify(name)
	if base == "" {
		run.rowError(ix.kind, row.Line, "name %q has no usable characters for a slug, row skipped", name)
		return "", false
	}
	slug, warning, err := ix.resolveGenerated(ctx, base, name)
	if err != nil {
		run.rowError(ix.kind, row.Line, "could not resolve slug for %q: %v%s", name, err, retryHint(err))
		return "", false
	}
	if warning != "" {
		run.logf("%s", warning)
	}
	return slug, true
}

var (
	imageColumns      = []string{"image_url", "image", "image_origin_url"}
	collectionColumns = []string{"collection_slugs", "collections", "collection", "product_type"}
)

func (run *importRun) planCollections(ctx context.Context, table *csvTable) {
	ix := run.collections
	for _, row := range table.Rows {
		name := row.get("name")
		if name == "" {
			run.rowError(ix.kind, row.Line, "missing name, row skipped")
			continue
		}
		slug, ok := resolveSlug(ctx, run, ix, row, name)
		if !ok {
			continue
		}

		image := cleanImageSource(row.get(imageColumns...))
		fields := tables.Collection{
			Name:           name,
			Slug:           slug,
			Description:    optional(row.get("description")),
			DepartmentSlug: optional(row.get("department_slug")),
		}

		e, err := ix.lookup(ctx, slug)
		if err != nil {
			run.rowError(ix.kind, row.Line, "lookup of %s failed: %v%s", slug, err, retryHint(err))
			continue
		}
		if e == nil {
			fields.ImageURL = optional(image)
			ix.stageCreate(slug, row.Line, fields, image)
			run.logf("[coll] create: %s", slug)
			continue
		}

		next, changed := diffCollection(e.Row, fields, image)
		if len(changed) == 0 {
			run.logf("[coll] unchanged: %s", slug)
			importRows.WithLabelValues(ix.kind, "unchanged").Inc()
			continue
		}
		changedImage := ""
		if slices.Contains(changed, "image_url") {
			changedImage = image
		}
		ix.stageChange(e, row.Line, next, changed, changedImage)
		run.logf("[coll] update: %s (%s)", slug, strings.Join(changed, ", "))
	}
}

func diffCollection(cur, in tables.Collection, image string) (tables.Collection, []string) {
	next := cur
	var changed []string
	if cur.Name != in.Name {
		next.Name = in.Name
		changed = append(changed, "name")
	}
	if !equalPtr(cur.Description, in.Description) {
		next.Description = in.Description
		changed = append(changed, "description")
	}
	if !equalPtr(cur.DepartmentSlug, in.DepartmentSlug) {
		next.DepartmentSlug = in.DepartmentSlug
		changed = append(changed, "department_slug")
	}
	if image != "" && !equalPtr(cur.ImageURL, &image) {
		next.ImageURL = optional(image)
		changed = append(changed, "image_url")
	}
	return next, changed
}

// productInput is a parsed product row. CompareAt is nil when not supplied.
type productInput struct {
	tables.Product
	image string
}

func (run *importRun) parseProduct(row csvRow, name string) (productInput, bool) {
	kind := run.products.kind

	rawPrice := row.get("price", "price_inr")
	if rawPrice == "" {
		run.rowError(kind, row.Line, "missing price, row skipped")
		return productInput{}, false
	}
	price, ok := parseWhole(rawPrice)
	if !ok {
		run.rowError(kind, row.Line, "invalid price %q, must be a non-negative integer, row skipped", rawPrice)
		return productInput{}, false
	}

	rawStock := row.get("stock")
	if rawStock == "" {
		run.rowError(kind, row.Line, "missing stock, row skipped")
		return productInput{}, false
	}
	stock, ok := parseWhole(rawStock)
	if !ok {
		run.rowError(kind, row.Line, "invalid stock %q, must be a non-negative integer, row skipped", rawStock)
		return productInput{}, false
	}

	var compareAt *int64
	if raw := row.get("compare_at_price", "compare_at_price_inr"); raw != "" {
		v, ok := parseWhole(raw)
		if !ok {
			run.rowError(kind, row.Line, "invalid compare_at_price %q, row skipped", raw)
			return productInput{}, false
		}
		compareAt = &v
	}

	active := true
	if raw := row.get("active", "is_active", "available_any"); raw != "" {
		active = parseTruthy(raw)
	}

	return productInput{
		Product: tables.Product{
			Name:              name,
			Description:       optional(row.get("description", "body_html")),
			PriceINR:          price,
			CompareAtPriceINR: compareAt,
			Stock:             int(stock),
			IsActive:          active,
			Tags:              optional(row.get("tags")),
		},
		image: cleanImageSource(row.get(imageColumns...)),
	}, true
}

func (run *importRun) planProducts(ctx context.Context, table *csvTable) {
	ix := run.products
	for _, row := range table.Rows {
		name := row.get("name", "title")
		if name == "" {
			run.rowError(ix.kind, row.Line, "missing name, row skipped")
			continue
		}
		in, ok := run.parseProduct(row, name)
		if !ok {
			continue
		}
		slug, ok := resolveSlug(ctx, run, ix, row, name)
		if !ok {
			continue
		}
		in.Slug = slug

		e, err := ix.lookup(ctx, slug)
		if err != nil {
			run.rowError(ix.kind, row.Line, "lookup of %s failed: %v%s", slug, err, retryHint(err))
			continue
		}

		if e == nil {
			create := in.Product
			create.ImageURL = optional(in.image)
			e = ix.stageCreate(slug, row.Line, create, in.image)
			run.logf("[prod] create: %s", slug)
		} else {
			next, changed := diffProduct(e.Row, in)
			if len(changed) == 0 {
				run.logf("[prod] unchanged: %s", slug)
				importRows.WithLabelValues(ix.kind, "unchanged").Inc()
			} else {
				changedImage := ""
				if slices.Contains(changed, "image_url") {
					changedImage = in.image
				}
				ix.stageChange(e, row.Line, next, changed, changedImage)
				run.logf("[prod] update: %s (%s)", slug, strings.Join(changed, ", "))
			}
		}

		if labels := splitLabels(row.get(collectionColumns...)); len(labels) > 0 {
			run.rowLinks = append(run.rowLinks, productLinks{product: e, slug: slug, labels: labels})
		}
	}
}

func diffProduct(cur tables.Product, in productInput) (tables.Product, []string) {
	next := cur
	var changed []string
	if cur.Name != in.Name {
		next.Name = in.Name
		changed = append(changed, "name")
	}
	if !equalPtr(cur.Description, in.Description) {
		next.Description = in.Description
		changed = append(changed, "description")
	}
	if cur.PriceINR != in.PriceINR {
		next.PriceINR = in.PriceINR
		changed = append(changed, "price_inr")
	}
	if cur.Stock != in.Stock {
		next.Stock = in.Stock
		changed = append(changed, "stock")
	}
	if cur.IsActive != in.IsActive {
		next.IsActive = in.IsActive
		changed = append(changed, "is_active")
	}
	if !equalPtr(cur.Tags, in.Tags) {
		next.Tags = in.Tags
		changed = append(changed, "tags")
	}
	if in.CompareAtPriceINR != nil && !equalPtr(cur.CompareAtPriceINR, in.CompareAtPriceINR) {
		next.CompareAtPriceINR = in.CompareAtPriceINR
		changed = append(changed, "compare_at_price_inr")
	}
	if in.image != "" && !equalPtr(cur.ImageURL, &in.image) {
		next.ImageURL = optional(in.image)
		changed = append(changed, "image_url")
	}
	return next, changed
}

// planLinks resolves every label against stored and staged collections.
// Unresolved labels are warnings only, a failed lookup fails the row.
func (run *importRun) planLinks(ctx context.Context) error {
	if len(run.rowLinks) == 0 {
		return nil
	}

	var storedProducts []uuid.UUID
	for _, pl := range run.rowLinks {
		if id, ok := run.products.storedID(pl.product); ok {
			storedProducts = append(storedProducts, id)
		}
	}

	existing := map[tables.ProductCollection]bool{}
	if len(storedProducts) > 0 {
		lctx, cancel := run.svc.rowContext(ctx)
		rows, err := run.svc.repos.ProductCollections.ListForProducts(lctx, storedProducts)
		cancel()
		if err != nil {
			return fmt.Errorf("loading product links: %w", lib.MapPgError(err))
		}
		for _, l := range rows {
			existing[tables.ProductCollection{ProductID: l.ProductID, CollectionID: l.CollectionID}] = true
		}
	}

	type pair struct{ product, collection string }
	seen := map[pair]bool{}

	for _, pl := range run.rowLinks {
		added := 0
		for _, label := range pl.labels {
			cslug := Slugify(label)
			if cslug == "" {
				run.logf("[link] missing collection for label='%s' -> slug='%s'", label, cslug)
				continue
			}
			coll, err := run.collections.lookup(ctx, cslug)
			if err != nil {
				run.result.OK = false
				run.logf("[link] lookup of collection '%s' failed for '%s': %v%s", cslug, pl.slug, err, retryHint(err))
				importRows.WithLabelValues("link", "failed").Inc()
				continue
			}
			if coll == nil {
				run.logf("[link] missing collection for label='%s' -> slug='%s'", label, cslug)
				continue
			}
			if seen[pair{pl.slug, cslug}] {
				continue
			}
			seen[pair{pl.slug, cslug}] = true

			pid, pStored := run.products.storedID(pl.product)
			cid, cStored := run.collections.storedID(coll)
			if pStored && cStored && existing[tables.ProductCollection{ProductID: pid, CollectionID: cid}] {
				continue
			}
			run.links = append(run.links, plannedLink{product: pl.product, collection: coll, pslug: pl.slug, cslug: cslug})
			run.logf("[link] add: %s -> %s", pl.slug, cslug)
			added++
		}
		if added == 0 {
			run.logf("[link] no new links for '%s'", pl.slug)
		}
	}
	return nil
}

// countPlan fills the counters from the plan alone
func (run *importRun) countPlan() {
	for _, e := range run.collections.order {
		switch e.Action {
		case actionCreate:
			run.result.CollectionsCreated++
		case actionUpdate:
			run.result.CollectionsUpdated++
		}
	}
	for _, e := range run.products.order {
		switch e.Action {
		case actionCreate:
			run.result.ProductsCreated++
		case actionUpdate:
			run.result.ProductsUpdated++
		}
	}
	run.result.LinksCreated = len(run.links)
}

func (run *importRun) checkImage(ctx context.Context, src string) {
	if src == "" || run.svc.images == nil {
		return
	}
	ok, lines := run.svc.images.Verify(ctx, src)
	run.result.Logs = append(run.result.Logs, lines...)
	if !ok {
		run.logf("[image:url] validation failed, keeping original URL as-is: %s", src)
	}
}

// writeFailed logs a failed write. The row is skipped and ok flips.
func (run *importRun) writeFailed(kind, verb, slug string, line int, err error) {
	err = lib.MapPgError(err)
	run.result.OK = false
	run.logf("[%s] failed to %s %s (line %d): %v%s", kind, verb, slug, line, err, retryHint(err))
	importRows.WithLabelValues(kind, "failed").Inc()
	run.svc.logger.Warn("Bulk import write failed",
		gecho.Field("kind", kind),
		gecho.Field("slug", slug),
		gecho.Field("line", line),
		gecho.Field("error", err),
	)
}

func (run *importRun) applyCollections(ctx context.Context) {
	repo := run.svc.repos.Collections
	for _, e := range run.collections.order {
		if e.Action == actionUnchanged {
			continue
		}
		run.checkImage(ctx, e.Image)

		wctx, cancel := run.svc.rowContext(ctx)
		var err error
		if e.Action == actionCreate {
			err = repo.Create(wctx, &e.Row)
		} else {
			err = repo.Update(wctx, &e.Row)
		}
		cancel()

		if err != nil {
			e.failed = true
			run.writeFailed("coll", verbFor(e.Action), e.Row.Slug, e.Line, err)
			continue
		}
		e.stored = true
		if e.Action == actionCreate {
			run.result.CollectionsCreated++
			run.logf("[coll] created: %s (id=%s)", e.Row.Slug, e.Row.ID)
		} else {
			run.result.CollectionsUpdated++
			run.logf("[coll] updated: %s (id=%s)", e.Row.Slug, e.Row.ID)
		}
		importRows.WithLabelValues("coll", verbFor(e.Action)).Inc()
	}
}

func (run *importRun) applyProducts(ctx context.Context) {
	repo := run.svc.repos.Products
	for _, e := range run.products.order {
		if e.Action == actionUnchanged {
			continue
		}
		run.checkImage(ctx, e.Image)

		wctx, cancel := run.svc.rowContext(ctx)
		var err error
		if e.Action == actionCreate {
			err = repo.Create(wctx, &e.Row)
		} else {
			err = repo.Update(wctx, &e.Row)
		}
		cancel()

		if err != nil {
			e.failed = true
			run.writeFailed("prod", verbFor(e.Action), e.Row.Slug, e.Line, err)
			continue
		}
		e.stored = true
		if e.Action == actionCreate {
			run.result.ProductsCreated++
			run.logf("[prod] created: %s (id=%s)", e.Row.Slug, e.Row.ID)
		} else {
			run.result.ProductsUpdated++
			run.logf("[prod] updated: %s (id=%s)", e.Row.Slug, e.Row.ID)
		}
		importRows.WithLabelValues("prod", verbFor(e.Action)).Inc()
	}
}

// applyLinks writes links per product so one failure leaves the others intact
func (run *importRun) applyLinks(ctx context.Context) {
	var order []string
	batches := map[string][]tables.ProductCollection{}

	for _, l := range run.links {
		if !l.product.stored || !l.collection.stored {
			run.logf("[link] skipped %s -> %s: %s was not written", l.pslug, l.cslug, missingSide(l))
			continue
		}
		if _, ok := batches[l.pslug]; !ok {
			order = append(order, l.pslug)
		}
		batches[l.pslug] = append(batches[l.pslug], tables.ProductCollection{
			ProductID:    l.product.Row.ID,
			CollectionID: l.collection.Row.ID,
		})
	}

	for _, slug := range order {
		wctx, cancel := run.svc.rowContext(ctx)
		n, err := run.svc.repos.ProductCollections.AddLinks(wctx, batches[slug])
		cancel()
		if err != nil {
			err = lib.MapPgError(err)
			run.result.OK = false
			run.logf("[link] failed for '%s': %v%s", slug, err, retryHint(err))
			continue
		}
		run.result.LinksCreated += n
		if n == 0 {
			run.logf("[link] no new links (already linked) for '%s'", slug)
		} else {
			run.logf("[link] added %d link(s) for '%s'", n, slug)
		}
	}
}

func (run *importRun) notify(ctx context.Context) {
	if run.svc.notifier == nil {
		return
	}
	r := run.result
	if r.CollectionsCreated+r.CollectionsUpdated > 0 {
		run.svc.notifier.NotifyChange(ctx, structs.TableChange{Table: "collections", Op: "import"})
	}
	if r.ProductsCreated+r.ProductsUpdated > 0 {
		run.svc.notifier.NotifyChange(ctx, structs.TableChange{Table: "products", Op: "import"})
	}
	if r.LinksCreated > 0 {
		run.svc.notifier.NotifyChange(ctx, structs.TableChange{Table: "product_collections", Op: "import"})
	}
}

func (s *ImportService) rowContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.rowTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.rowTimeout)
}

func missingSide(l plannedLink) string {
	if !l.product.stored {
		return "product"
	}
	return "collection"
}

func verbFor(a planAction) string {
	if a == actionCreate {
		return "create"
	}
	return "update"
}

func retryHint(err error) string {
	if lib.IsTransient(err) || errors.Is(err, context.DeadlineExceeded) {
		return " (retryable)"
	}
	return ""
}

func outcomeLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "partial"
}

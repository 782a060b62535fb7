package services

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"storeadmin_server/lib"
	"strings"

	"github.com/google/uuid"
)

type planAction int

const (
	actionUnchanged planAction = iota
	actionCreate
	actionUpdate
)

// planned is one catalog entity as the run sees it. Row is the desired
// state; it carries the stored ID once the entity exists.
type planned[T any] struct {
	Line    int
	Action  planAction
	Row     T
	Changed []string
	Image   string // image URL this action writes, checked before apply
	stored  bool
	failed  bool
	queued  bool
}

// catalogIndex tracks every entity of one kind the run has looked at, keyed by slug
type catalogIndex[T any] struct {
	kind   string
	bySlug map[string]*planned[T]
	absent map[string]bool
	order  []*planned[T]

	find     func(ctx context.Context, slugs []string) ([]T, error)
	suffixed func(ctx context.Context, bases []string, suffixLen int) ([]T, error)
	slugOf   func(*T) string
	nameOf   func(*T) string
	idOf     func(*T) uuid.UUID
}

func (ix *catalogIndex[T]) load(rows []T) {
	for i := range rows {
		slug := ix.slugOf(&rows[i])
		if _, ok := ix.bySlug[slug]; ok {
			continue
		}
		ix.bySlug[slug] = &planned[T]{Row: rows[i], stored: true}
		delete(ix.absent, slug)
	}
}

// preload fetches every entity the input could refer to in two round trips:
// the slugs themselves and the suffixed twins of generated slugs
func (ix *catalogIndex[T]) preload(ctx context.Context, slugs, generated []string) error {
	slugs = uniqueStrings(slugs)
	if len(slugs) > 0 {
		rows, err := ix.find(ctx, slugs)
		if err != nil {
			return fmt.Errorf("loading %s by slug: %w", ix.kind, lib.MapPgError(err))
		}
		ix.load(rows)
		for _, s := range slugs {
			if _, ok := ix.bySlug[s]; !ok {
				ix.absent[s] = true
			}
		}
	}

	generated = uniqueStrings(generated)
	if len(generated) > 0 {
		rows, err := ix.suffixed(ctx, generated, suffixLength)
		if err != nil {
			return fmt.Errorf("loading suffixed %s: %w", ix.kind, lib.MapPgError(err))
		}
		ix.load(rows)
	}
	return nil
}

func (ix *catalogIndex[T]) lookup(ctx context.Context, slug string) (*planned[T], error) {
	if e, ok := ix.bySlug[slug]; ok {
		return e, nil
	}
	if ix.absent[slug] {
		return nil, nil
	}
	rows, err := ix.find(ctx, []string{slug})
	if err != nil {
		return nil, lib.MapPgError(err)
	}
	ix.load(rows)
	if e, ok := ix.bySlug[slug]; ok {
		return e, nil
	}
	ix.absent[slug] = true
	return nil, nil
}

// resolveGenerated picks the slug for a row that did not name one. The row's
// name is its identity: a holder of base with a different name is unrelated,
// so the row reuses a previous suffixed twin or gets a fresh random suffix.
func (ix *catalogIndex[T]) resolveGenerated(ctx context.Context, base, name string) (string, string, error) {
	holder, err := ix.lookup(ctx, base)
	if err != nil {
		return "", "", err
	}
	if holder == nil || strings.EqualFold(ix.nameOf(&holder.Row), name) {
		return base, "", nil
	}

	var twins []string
	for slug, e := range ix.bySlug {
		if hasRandomSuffix(slug, base, suffixLength) && strings.EqualFold(ix.nameOf(&e.Row), name) {
			twins = append(twins, slug)
		}
	}
	if len(twins) > 0 {
		sort.Strings(twins)
		return twins[0], "", nil
	}

	for range maxSuffixAttempts {
		suffix, err := lib.RandomSuffix(suffixLength)
		if err != nil {
			return "", "", err
		}
		candidate := base + "-" + suffix
		e, err := ix.lookup(ctx, candidate)
		if err != nil {
			return "", "", err
		}
		if e == nil {
			warning := fmt.Sprintf("[%s] slug collision: '%s' belongs to '%s', using '%s' for '%s'",
				ix.kind, base, ix.nameOf(&holder.Row), candidate, name)
			return candidate, warning, nil
		}
	}
	return "", "", fmt.Errorf("no free slug found for %q", base)
}

// stageCreate registers a new entity under slug
func (ix *catalogIndex[T]) stageCreate(slug string, line int, row T, image string) *planned[T] {
	e := &planned[T]{Line: line, Action: actionCreate, Row: row, Image: image, queued: true}
	ix.bySlug[slug] = e
	delete(ix.absent, slug)
	ix.order = append(ix.order, e)
	return e
}

// stageChange moves e to row. A staged create absorbs the change, it is
// still written once.
func (ix *catalogIndex[T]) stageChange(e *planned[T], line int, row T, changed []string, image string) {
	e.Row = row
	e.Changed = mergeFields(e.Changed, changed)
	if image != "" {
		e.Image = image
	}
	if e.Action == actionUnchanged {
		e.Action = actionUpdate
		e.Line = line
	}
	if !e.queued {
		e.queued = true
		ix.order = append(ix.order, e)
	}
}

// storedID returns the ID of e when it exists in the store
func (ix *catalogIndex[T]) storedID(e *planned[T]) (uuid.UUID, bool) {
	if !e.stored {
		return uuid.Nil, false
	}
	return ix.idOf(&e.Row), true
}

func mergeFields(have, add []string) []string {
	for _, f := range add {
		if !slices.Contains(have, f) {
			have = append(have, f)
		}
	}
	return have
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

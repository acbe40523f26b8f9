package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/erazemk/opname/internal/auth"
	"github.com/erazemk/opname/internal/model"
)

// CategoryStore persists categories. *store.Records implements it.
type CategoryStore interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	AddCategory(ctx context.Context, c model.Category) error
}

// Registry is the append-only set of category names.
type Registry struct {
	store CategoryStore
	auth  auth.Provider
	log   *slog.Logger
	now   func() time.Time

	addMu sync.Mutex

	mu         sync.Mutex
	categories []model.Category
}

// NewRegistry creates an empty registry. It loads itself on first lookup.
func NewRegistry(s CategoryStore, p auth.Provider, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{store: s, auth: p, log: logger, now: time.Now}
}

// List fetches the categories, keeping the first of any repeated name.
func (g *Registry) List(ctx context.Context) ([]model.Category, error) {
	stored, err := g.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	seen := make(map[string]bool, len(stored))
	categories := make([]model.Category, 0, len(stored))
	for _, c := range stored {
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		categories = append(categories, c)
	}

	g.mu.Lock()
	g.categories = categories
	g.mu.Unlock()

	out := make([]model.Category, len(categories))
	copy(out, categories)
	return out, nil
}

// Add registers a new category name.
func (g *Registry) Add(ctx context.Context, name string) (model.Category, error) {
	principal, err := auth.Require(ctx, g.auth)
	if err != nil {
		return model.Category{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return model.Category{}, &model.ValidationError{Errors: []model.FieldError{{Field: "name", Rule: "required"}}}
	}

	g.addMu.Lock()
	defer g.addMu.Unlock()

	ok, err := g.Has(ctx, name)
	if err != nil {
		return model.Category{}, err
	}
	if ok {
		return model.Category{}, fmt.Errorf("category %q: %w", name, model.ErrDuplicate)
	}

	c := model.Category{Name: name, CreatedAt: g.now().UTC().Truncate(time.Millisecond)}
	if err := g.store.AddCategory(ctx, c); err != nil {
		return model.Category{}, fmt.Errorf("adding category: %w", err)
	}

	g.mu.Lock()
	g.categories = append(g.categories, c)
	g.mu.Unlock()

	g.log.Info("category added", "category", name, "user", principal.Username)
	return c, nil
}

// Has reports whether name is registered, matching case exactly. A name
// missing from the cache triggers a reload, so categories added by other
// clients of the same store are seen.
func (g *Registry) Has(ctx context.Context, name string) (bool, error) {
	if g.cached(name) {
		return true, nil
	}
	if _, err := g.List(ctx); err != nil {
		return false, err
	}
	return g.cached(name), nil
}

func (g *Registry) cached(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.categories {
		if c.Name == name {
			return true
		}
	}
	return false
}

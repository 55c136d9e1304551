package schedule

import (
	"context"
	"sort"
	"sync"
	"time"

	"schedgrid/internal/model"
	"schedgrid/internal/resource"
)

// Provider answers use-block queries for one resource kind.
//
// GetAllBlocks returns, per sub-id, the blocks in [t1, t2] ordered by start
// time. Sub-ids without blocks may be omitted or map to an empty slice. The
// meaning of inc (which boundary-crossing blocks to leave out) is up to the
// provider.
type Provider interface {
	GetAllBlocks(ctx context.Context, subIDs []string, t1, t2 time.Time, inc model.Inc) (map[string][]*model.Block, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, subIDs []string, t1, t2 time.Time, inc model.Inc) (map[string][]*model.Block, error)

func (f ProviderFunc) GetAllBlocks(ctx context.Context, subIDs []string, t1, t2 time.Time, inc model.Inc) (map[string][]*model.Block, error) {
	return f(ctx, subIDs, t1, t2, inc)
}

// Decorator sets display metadata on a resource handle. It runs once per
// handle while a Config is loaded.
type Decorator interface {
	Decorate(ctx context.Context, r *resource.Resource) error
}

// DecoratorFunc adapts a function to Decorator.
type DecoratorFunc func(ctx context.Context, r *resource.Resource) error

func (f DecoratorFunc) Decorate(ctx context.Context, r *resource.Resource) error {
	return f(ctx, r)
}

// Catalog is the lookup table from provider id to Provider, and from kind to
// Decorator, filled in by the application before any Config is loaded.
type Catalog struct {
	mu         sync.RWMutex
	providers  map[string]Provider
	decorators map[string]Decorator
}

func NewCatalog() *Catalog {
	return &Catalog{
		providers:  make(map[string]Provider),
		decorators: make(map[string]Decorator),
	}
}

// RegisterProvider binds a provider id (the value side of ResourceKinds).
func (c *Catalog) RegisterProvider(id string, p Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[id] = p
}

// RegisterDecorator binds a decorator to a resource kind. It takes precedence
// over a provider that implements Decorator itself.
func (c *Catalog) RegisterDecorator(kind string, d Decorator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decorators[kind] = d
}

// Provider returns the provider registered under id.
func (c *Catalog) Provider(id string) (Provider, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.providers[id]
	return p, ok
}

// decoratorFor resolves the decoration hook for kind, or nil.
func (c *Catalog) decoratorFor(kind string, p Provider) Decorator {
	c.mu.RLock()
	d, ok := c.decorators[kind]
	c.mu.RUnlock()
	if ok {
		return d
	}
	if d, ok := p.(Decorator); ok {
		return d
	}
	return nil
}

// ProviderIDs lists registered ids, sorted.
func (c *Catalog) ProviderIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.providers))
	for id := range c.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

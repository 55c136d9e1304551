package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	appLog "schedgrid/internal/log"
	"schedgrid/internal/resource"
)

const (
	DefaultVisibleTime = 3 * time.Hour
	defaultRangeSpan   = 7 * 24 * time.Hour
)

// Config is a loaded schedule configuration: the ordered resource list, the
// provider for each kind and the time window settings. It owns the Registry
// that every handle of this configuration comes from.
//
// A Config is read-only after Load/Restore except for Registry growth, so one
// Config may serve concurrent queries.
type Config struct {
	registry *resource.Registry

	resources []*resource.Resource
	kindOrder []string

	providerIDs map[string]string
	providers   map[string]Provider

	visibleTime  time.Duration
	timeRangeMin time.Time
	timeRangeMax time.Time
}

// LoadOptions tunes Load.
type LoadOptions struct {
	// Now is the reference instant for "now" expressions. Defaults to time.Now.
	Now func() time.Time
}

// KindGroup is one entry of the ordered kind -> resources view.
type KindGroup struct {
	Kind      string
	Resources []*resource.Resource
}

// Load builds a Config from a decoded manifest. Providers are resolved from
// catalog, and each resource is passed to its kind's decorator. Any failure
// yields an error matching ErrConfiguration and no Config.
func Load(ctx context.Context, m *Manifest, catalog *Catalog, opts LoadOptions) (*Config, error) {
	if m == nil {
		return nil, configErrorf("", "manifest is nil")
	}
	if catalog == nil {
		return nil, configErrorf("", "provider catalog is nil")
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	c, err := newConfig(m.ResourceKinds, catalog)
	if err != nil {
		return nil, err
	}

	groups, err := m.Groups()
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		if _, ok := c.providerIDs[g.Kind]; !ok {
			return nil, configErrorf("Resources", "unknown resource kind %q", g.Kind)
		}
		for _, subID := range g.SubIDs {
			c.addResource(c.registry.GetOrCreate(g.Kind, subID))
		}
	}

	t0 := now()
	c.visibleTime = DefaultVisibleTime
	if m.VisibleTime != "" {
		if c.visibleTime, err = ParseDuration(m.VisibleTime); err != nil {
			return nil, &ConfigError{Field: "visibleTime", Err: err}
		}
	}
	c.timeRangeMin = t0.Add(-defaultRangeSpan)
	if m.TimeRangeMin != "" {
		if c.timeRangeMin, err = ParseInstant(m.TimeRangeMin, t0); err != nil {
			return nil, &ConfigError{Field: "timeRangeMin", Err: err}
		}
	}
	c.timeRangeMax = t0.Add(defaultRangeSpan)
	if m.TimeRangeMax != "" {
		if c.timeRangeMax, err = ParseInstant(m.TimeRangeMax, t0); err != nil {
			return nil, &ConfigError{Field: "timeRangeMax", Err: err}
		}
	}

	if err := c.decorate(ctx, catalog); err != nil {
		return nil, err
	}

	appLog.Info("schedule config loaded",
		"resource_count", len(c.resources),
		"kind_count", len(c.kindOrder),
		"visible_time", c.visibleTime,
	)
	return c, nil
}

func newConfig(kinds map[string]string, catalog *Catalog) (*Config, error) {
	c := &Config{
		registry:    resource.NewRegistry(),
		providerIDs: make(map[string]string, len(kinds)),
		providers:   make(map[string]Provider, len(kinds)),
	}
	for kind, id := range kinds {
		if kind == "" {
			return nil, configErrorf("ResourceKinds", "empty kind name")
		}
		p, ok := catalog.Provider(id)
		if !ok {
			return nil, configErrorf("ResourceKinds", "kind %q: no provider registered as %q", kind, id)
		}
		c.providerIDs[kind] = id
		c.providers[kind] = p
	}
	return c, nil
}

// addResource appends r unless its tag is already listed.
func (c *Config) addResource(r *resource.Resource) {
	for _, have := range c.resources {
		if have == r {
			return
		}
	}
	c.resources = append(c.resources, r)

	for _, k := range c.kindOrder {
		if k == r.Kind() {
			return
		}
	}
	c.kindOrder = append(c.kindOrder, r.Kind())
}

func (c *Config) decorate(ctx context.Context, catalog *Catalog) error {
	for _, g := range c.ResourcesByKind() {
		d := catalog.decoratorFor(g.Kind, c.providers[g.Kind])
		if d == nil {
			continue
		}
		for _, r := range g.Resources {
			if err := d.Decorate(ctx, r); err != nil {
				return &ConfigError{Field: g.Kind, Err: fmt.Errorf("decorate %s: %w", r.Tag(), err)}
			}
		}
	}
	return nil
}

// Registry is the handle registry owned by this configuration.
func (c *Config) Registry() *resource.Registry { return c.registry }

// Resources returns the resource list in display order.
func (c *Config) Resources() []*resource.Resource {
	out := make([]*resource.Resource, len(c.resources))
	copy(out, c.resources)
	return out
}

// ResourcesByKind groups the resource list by kind, keeping the first-seen
// order of kinds and the list order within each kind.
func (c *Config) ResourcesByKind() []KindGroup {
	groups := make([]KindGroup, 0, len(c.kindOrder))
	idx := make(map[string]int, len(c.kindOrder))
	for _, k := range c.kindOrder {
		idx[k] = len(groups)
		groups = append(groups, KindGroup{Kind: k})
	}
	for _, r := range c.resources {
		i := idx[r.Kind()]
		groups[i].Resources = append(groups[i].Resources, r)
	}
	return groups
}

var errUnknownKind = errors.New("unknown resource kind")

// ProviderFor returns the provider for kind.
func (c *Config) ProviderFor(kind string) (Provider, error) {
	p, ok := c.providers[kind]
	if !ok || p == nil {
		return nil, &ConfigError{Field: kind, Err: errUnknownKind}
	}
	return p, nil
}

// ProviderID returns the manifest provider id bound to kind.
func (c *Config) ProviderID(kind string) string { return c.providerIDs[kind] }

func (c *Config) VisibleTime() time.Duration { return c.visibleTime }
func (c *Config) TimeRangeMin() time.Time    { return c.timeRangeMin }
func (c *Config) TimeRangeMax() time.Time    { return c.timeRangeMax }

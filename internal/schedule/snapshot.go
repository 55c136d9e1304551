package schedule

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Snapshot is the serializable form of a Config. Handle identity does not
// survive a round trip; tags, labels and titles do.
type Snapshot struct {
	Kinds        map[string]string  `msgpack:"kinds" yaml:"resource_kinds"`
	Resources    []ResourceSnapshot `msgpack:"resources" yaml:"resources"`
	VisibleTime  time.Duration      `msgpack:"visible_time" yaml:"visible_time"`
	TimeRangeMin time.Time          `msgpack:"time_range_min" yaml:"time_range_min"`
	TimeRangeMax time.Time          `msgpack:"time_range_max" yaml:"time_range_max"`
}

type ResourceSnapshot struct {
	Kind  string `msgpack:"kind" yaml:"kind"`
	SubID string `msgpack:"sub_id" yaml:"sub_id"`
	Label string `msgpack:"label,omitempty" yaml:"label,omitempty"`
	Title string `msgpack:"title,omitempty" yaml:"title,omitempty"`
}

// Snapshot captures c.
func (c *Config) Snapshot() Snapshot {
	s := Snapshot{
		Kinds:        make(map[string]string, len(c.providerIDs)),
		Resources:    make([]ResourceSnapshot, 0, len(c.resources)),
		VisibleTime:  c.visibleTime,
		TimeRangeMin: c.timeRangeMin,
		TimeRangeMax: c.timeRangeMax,
	}
	for k, id := range c.providerIDs {
		s.Kinds[k] = id
	}
	for _, r := range c.resources {
		rs := ResourceSnapshot{Kind: r.Kind(), SubID: r.SubID()}
		if l := r.Label(); l != r.Tag() {
			rs.Label = l
		}
		if t := r.Title(); t != r.Tag() {
			rs.Title = t
		}
		s.Resources = append(s.Resources, rs)
	}
	return s
}

// Restore rebuilds a Config from s with a fresh Registry. Providers are
// resolved again from catalog; decorators are not re-run.
func Restore(s Snapshot, catalog *Catalog) (*Config, error) {
	if catalog == nil {
		return nil, configErrorf("", "provider catalog is nil")
	}
	c, err := newConfig(s.Kinds, catalog)
	if err != nil {
		return nil, err
	}
	for _, rs := range s.Resources {
		if _, ok := c.providerIDs[rs.Kind]; !ok {
			return nil, configErrorf("resources", "unknown resource kind %q", rs.Kind)
		}
		r := c.registry.GetOrCreate(rs.Kind, rs.SubID)
		r.SetLabel(rs.Label)
		r.SetTitle(rs.Title)
		c.addResource(r)
	}
	c.visibleTime = s.VisibleTime
	c.timeRangeMin = s.TimeRangeMin
	c.timeRangeMax = s.TimeRangeMax
	return c, nil
}

// MarshalSnapshot encodes c for session storage.
func MarshalSnapshot(c *Config) ([]byte, error) {
	data, err := msgpack.Marshal(c.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("schedule: encode snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot decodes data produced by MarshalSnapshot and restores it.
func UnmarshalSnapshot(data []byte, catalog *Catalog) (*Config, error) {
	var s Snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return nil, &ConfigError{Field: "snapshot", Err: err}
	}
	return Restore(s, catalog)
}

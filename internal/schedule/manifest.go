package schedule

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format selects the manifest serialization.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatForPath picks the format from a file extension; YAML is the default.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	default:
		return FormatYAML
	}
}

// Manifest is the declarative resource description, e.g.
//
//	ResourceKinds:
//	  Channel: Program
//	  TimeheaderHour: TimeLabelHour
//	Resources:
//	  - TimeheaderHour Hour0
//	  - Channel 702, 703 704
//	visibleTime: 3 hours
//	timeRangeMin: now - 1 week
//	timeRangeMax: now + 1 week
type Manifest struct {
	// ResourceKinds maps a resource kind to the provider id that answers
	// use-block queries for it.
	ResourceKinds map[string]string `yaml:"ResourceKinds"`

	// Resources lists groups in display order; each group is a kind followed
	// by sub-ids separated by whitespace and/or commas.
	Resources []string `yaml:"Resources"`

	VisibleTime  string `yaml:"visibleTime,omitempty"`
	TimeRangeMin string `yaml:"timeRangeMin,omitempty"`
	TimeRangeMax string `yaml:"timeRangeMax,omitempty"`
}

// tomlManifest mirrors Manifest for TOML, where a bare number of seconds
// arrives as an integer rather than a string.
type tomlManifest struct {
	ResourceKinds map[string]string `toml:"ResourceKinds"`
	Resources     []string          `toml:"Resources"`
	VisibleTime   any               `toml:"visibleTime"`
	TimeRangeMin  any               `toml:"timeRangeMin"`
	TimeRangeMax  any               `toml:"timeRangeMax"`
}

func (t *tomlManifest) manifest() (*Manifest, error) {
	m := &Manifest{ResourceKinds: t.ResourceKinds, Resources: t.Resources}
	var err error
	if m.VisibleTime, err = tomlScalar("visibleTime", t.VisibleTime); err != nil {
		return nil, err
	}
	if m.TimeRangeMin, err = tomlScalar("timeRangeMin", t.TimeRangeMin); err != nil {
		return nil, err
	}
	if m.TimeRangeMax, err = tomlScalar("timeRangeMax", t.TimeRangeMax); err != nil {
		return nil, err
	}
	return m, nil
}

func tomlScalar(field string, v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	default:
		return "", configErrorf(field, "want a string or integer, got %T", v)
	}
}

var groupSplitRe = regexp.MustCompile(`[,\s]+`)

// ResourceGroup is one parsed entry of Manifest.Resources.
type ResourceGroup struct {
	Kind   string
	SubIDs []string
}

// Groups splits Resources into kind + sub-id groups.
func (m *Manifest) Groups() ([]ResourceGroup, error) {
	groups := make([]ResourceGroup, 0, len(m.Resources))
	for i, line := range m.Resources {
		fields := groupSplitRe.Split(strings.TrimSpace(line), -1)
		if len(fields) == 0 || fields[0] == "" {
			return nil, configErrorf("Resources", "group %d is empty", i)
		}
		groups = append(groups, ResourceGroup{Kind: fields[0], SubIDs: fields[1:]})
	}
	return groups, nil
}

// ParseManifest decodes manifest bytes. Decoding failures are configuration
// errors.
func ParseManifest(data []byte, format Format) (*Manifest, error) {
	var m Manifest
	switch format {
	case FormatTOML:
		var tm tomlManifest
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&tm); err != nil {
			return nil, &ConfigError{Err: fmt.Errorf("decode toml manifest: %w", err)}
		}
		decoded, err := tm.manifest()
		if err != nil {
			return nil, err
		}
		m = *decoded
	case FormatYAML, "":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil {
			return nil, &ConfigError{Err: fmt.Errorf("decode yaml manifest: %w", err)}
		}
	default:
		return nil, configErrorf("", "unsupported manifest format %q", format)
	}

	if len(m.ResourceKinds) == 0 {
		return nil, configErrorf("ResourceKinds", "missing or empty")
	}
	return &m, nil
}

// ReadManifest reads and decodes the manifest file at path.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("read manifest: %w", err)}
	}
	return ParseManifest(data, FormatForPath(path))
}

package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ICSConfig describes one ICS feed served by the calendar provider.
type ICSConfig struct {
	// ID is the feed id; manifests list it as the resource sub-id.
	ID string `yaml:"id" json:"id"`
	// Name is shown as the resource label.
	Name string `yaml:"name" json:"name"`
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the application configuration. The schedule itself (resources,
// kinds, time window) lives in the manifest file it points to.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used for time labels and calendar expansion.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Manifest is the path of the resource manifest (.yml/.yaml or .toml).
	Manifest string `yaml:"manifest" json:"manifest"`

	// RefreshCron is the cron schedule for re-fetching ICS feeds.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Database is the SQLite file backing the rooms provider. Empty disables it.
	Database string `yaml:"database" json:"database"`

	// CacheDir holds the ICS disk cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// FetchRatePerMinute limits outgoing ICS requests; 0 means unlimited.
	FetchRatePerMinute int `yaml:"fetch_rate_per_minute" json:"fetch_rate_per_minute"`

	// SessionTTLMinutes evicts idle client sessions.
	SessionTTLMinutes int `yaml:"session_ttl_minutes" json:"session_ttl_minutes"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// ICS is the list of feeds.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if set, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:            "127.0.0.1:8080",
		Timezone:          "UTC",
		Manifest:          "./config/resource_schedule.yml",
		RefreshCron:       "*/15 * * * *",
		Database:          "",
		CacheDir:          "./var/ics-cache",
		SessionTTLMinutes: 120,
		LogLevel:          "info",
		ICS:               []ICSConfig{},
	}
}

// Normalize fills in missing values so partially written files still work.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.Manifest == "" {
		c.Manifest = def.Manifest
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	if c.FetchRatePerMinute < 0 {
		c.FetchRatePerMinute = 0
	}
	if c.SessionTTLMinutes <= 0 {
		c.SessionTTLMinutes = def.SessionTTLMinutes
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
}

// SessionTTL is SessionTTLMinutes as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// ManifestPath resolves Manifest relative to the directory of configPath.
func (c *Config) ManifestPath(configPath string) string {
	if filepath.IsAbs(c.Manifest) {
		return c.Manifest
	}
	return filepath.Join(filepath.Dir(configPath), c.Manifest)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written there (0600)
//     and returned.
//   - Otherwise the YAML is decoded and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	if cfg == nil {
		return errors.New("config: nil config")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".schedgrid-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

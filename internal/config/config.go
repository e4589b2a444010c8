// Package config holds the importer's tunables: Overpass endpoint and retry
// policy, traversal bounds, pacing, and tag projection.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// DefaultOverpassURL is the public Overpass API interpreter endpoint.
const DefaultOverpassURL = "https://overpass-api.de/api/interpreter"

var (
	ErrMissingOverpassURL = errors.New("overpass_url must not be empty")
	ErrBadLevelRange      = errors.New("max_level must not be below start_level")
	ErrBadRetries         = errors.New("max_retries must be at least 1")
)

// Config is loaded from an optional YAML file with environment overrides.
// Durations are plain integers with the unit in the field name so the file
// reads the same across tooling.
type Config struct {
	// Overpass endpoint and per-query behavior.
	OverpassURL    string `yaml:"overpass_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"` // HTTP timeout and the [timeout:] budget sent to the server
	MaxRetries     int    `yaml:"max_retries"`
	RetryBaseMs    int    `yaml:"retry_base_ms"` // first backoff wait; doubles per attempt

	// Pacing between requests, outside the retry loop.
	NodePauseMs    int `yaml:"node_pause_ms"`    // between consecutive frontier nodes
	CountryPauseMs int `yaml:"country_pause_ms"` // between countries

	// Traversal bounds. Countries sit at admin_level 2 in OSM; levels beyond
	// 10 are rare and usually noise.
	StartLevel int `yaml:"start_level"`
	MaxLevel   int `yaml:"max_level"`

	// Name resolution and tag projection.
	Languages []string `yaml:"languages"` // preferred name:<lang> tags, in order
	TagKeys   []string `yaml:"tag_keys"`  // tags copied onto imported regions

	// Overpass response cache, used only when REDIS_ADDR is set.
	CacheTTLHours int `yaml:"cache_ttl_hours"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		OverpassURL:    DefaultOverpassURL,
		TimeoutSeconds: 180,
		MaxRetries:     5,
		RetryBaseMs:    1000,
		NodePauseMs:    1000,
		CountryPauseMs: 5000,
		StartLevel:     2,
		MaxLevel:       10,
		Languages:      []string{"en"},
		TagKeys:        []string{"population", "ISO3166-2", "wikidata", "wikipedia"},
		CacheTTLHours:  24,
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides and validates the result. An empty path skips the
// file layer.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("OVERPASS_URL")); v != "" {
		cfg.OverpassURL = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the ranges the traversal depends on.
func (c Config) Validate() error {
	if c.OverpassURL == "" {
		return ErrMissingOverpassURL
	}
	if c.MaxRetries < 1 {
		return ErrBadRetries
	}
	if c.MaxLevel < c.StartLevel {
		return ErrBadLevelRange
	}
	return nil
}

func (c Config) Timeout() time.Duration      { return time.Duration(c.TimeoutSeconds) * time.Second }
func (c Config) RetryBase() time.Duration    { return time.Duration(c.RetryBaseMs) * time.Millisecond }
func (c Config) NodePause() time.Duration    { return time.Duration(c.NodePauseMs) * time.Millisecond }
func (c Config) CountryPause() time.Duration { return time.Duration(c.CountryPauseMs) * time.Millisecond }
func (c Config) CacheTTL() time.Duration     { return time.Duration(c.CacheTTLHours) * time.Hour }

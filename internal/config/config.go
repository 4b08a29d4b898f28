// Package config loads, merges and persists freightfocus configuration: the
// defaults shipped with the binary, the global file under ~/.freightfocus,
// optional project-local overlays and environment overrides, in that
// precedence order (CLI flags are applied on top by the cli package).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/rshade/freightfocus/internal/emission"
	"github.com/rshade/freightfocus/internal/engine/cache"
)

// Output format names accepted by the "output.default_format" key and the
// --output flag.
const (
	OutputFormatTable  = "table"
	OutputFormatJSON   = "json"
	OutputFormatNDJSON = "ndjson"
)

// Log format and output type names used by the logging section.
const (
	logFormatConsole = "console"
	logFormatJSON    = "json"
	outputTypeFile   = "file"
)

// Environment variables applied as overrides in New. The cache family lives
// in the cache package (cache.EnvTTLSeconds and friends) so there is a single
// source for the names.
const (
	EnvLogLevel  = "FREIGHTFOCUS_LOG_LEVEL"
	EnvLogFormat = "FREIGHTFOCUS_LOG_FORMAT"
)

// DefaultPublishTopic is the Kafka topic shipment results are published to
// when the publish section enables publishing without naming one.
const DefaultPublishTopic = "freightfocus.results"

// Config is the root configuration object. Field names map 1:1 onto the
// top-level YAML keys of ~/.freightfocus/config.yaml.
type Config struct {
	Output    OutputConfig    `yaml:"output"              json:"output"`
	Logging   LoggingConfig   `yaml:"logging"             json:"logging"`
	Emissions EmissionsConfig `yaml:"emissions"           json:"emissions"`
	Routing   *RoutingConfig  `yaml:"routing,omitempty"   json:"routing,omitempty"`
	Resolver  ResolverConfig  `yaml:"resolver"            json:"resolver"`
	Gazetteer GazetteerConfig `yaml:"gazetteer,omitempty" json:"gazetteer,omitempty"`
	Publish   PublishConfig   `yaml:"publish,omitempty"   json:"publish,omitempty"`

	// configPath overrides where Save writes. Empty means the global file.
	configPath string
}

// OutputConfig controls how command results are rendered.
type OutputConfig struct {
	// DefaultFormat is used when --output is not given: table, json or ndjson.
	DefaultFormat string `yaml:"default_format" json:"default_format"`
}

// LoggingConfig controls the global logger.
type LoggingConfig struct {
	// Level is a zerolog level name (trace, debug, info, warn, error).
	Level string `yaml:"level" json:"level"`

	// Format selects console (human-readable) or json output.
	Format string `yaml:"format" json:"format"`

	// File, when set, additionally writes logs to this path.
	File string `yaml:"file,omitempty" json:"file,omitempty"`

	// Audit configures the JSONL command audit trail.
	Audit AuditConfig `yaml:"audit,omitempty" json:"audit,omitempty"`
}

// AuditConfig controls the append-only JSONL audit trail of command
// invocations.
type AuditConfig struct {
	// Enabled turns the audit trail on.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// File is the audit log path. Empty uses audit.jsonl under the config
	// directory.
	File string `yaml:"file,omitempty" json:"file,omitempty"`
}

// EmissionsConfig holds the estimation model settings.
type EmissionsConfig struct {
	// DefaultCargoMassKg substitutes for shipments that carry no cargo mass.
	DefaultCargoMassKg float64 `yaml:"default_cargo_mass_kg" json:"default_cargo_mass_kg"`

	// AirShortHaulMaxKM is the short/long-haul band boundary for air legs.
	AirShortHaulMaxKM float64 `yaml:"air_short_haul_max_km" json:"air_short_haul_max_km"`

	// FactorsFile points at a YAML factor dataset. Empty uses the embedded
	// defaults.
	FactorsFile string `yaml:"factors_file,omitempty" json:"factors_file,omitempty"`

	// Budgets caps run emissions globally and per mode.
	Budgets *BudgetsConfig `yaml:"budgets,omitempty" json:"budgets,omitempty"`
}

// ResolverConfig holds location resolution settings.
type ResolverConfig struct {
	// ConnectivityToleranceKM is the widest gap between consecutive legs
	// still treated as connected. 0 uses the resolver's built-in 50 km.
	ConnectivityToleranceKM float64 `yaml:"connectivity_tolerance_km" json:"connectivity_tolerance_km"`

	// Cache configures the resolution cache.
	Cache CacheConfig `yaml:"cache" json:"cache"`
}

// CacheConfig configures the resolution cache. Zero values for TTLSeconds
// and MaxEntries use the cache package defaults.
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"             json:"enabled"`
	TTLSeconds int    `yaml:"ttl_seconds"         json:"ttl_seconds"`
	Directory  string `yaml:"directory,omitempty" json:"directory,omitempty"`
	MaxEntries int    `yaml:"max_entries"         json:"max_entries"`
}

// GazetteerConfig points the resolver at a Postgres location directory.
type GazetteerConfig struct {
	// PostgresDSN is the connection string. Empty disables the gazetteer
	// and resolution falls through to the static directories and geocoding.
	PostgresDSN string `yaml:"postgres_dsn,omitempty" json:"postgres_dsn,omitempty"`
}

// PublishConfig controls publishing per-shipment results to Kafka.
type PublishConfig struct {
	Enabled bool     `yaml:"enabled"           json:"enabled"`
	Brokers []string `yaml:"brokers,omitempty" json:"brokers,omitempty"`
	Topic   string   `yaml:"topic,omitempty"   json:"topic,omitempty"`
}

// DefaultConfig returns the configuration shipped with the binary. Domain
// defaults come from the emission and cache packages so the numbers live in
// one place.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			DefaultFormat: OutputFormatTable,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logFormatConsole,
		},
		Emissions: EmissionsConfig{
			DefaultCargoMassKg: emission.DefaultCargoMassKg,
			AirShortHaulMaxKM:  emission.DefaultAirShortHaulMaxKM,
		},
		Resolver: ResolverConfig{
			Cache: CacheConfig{
				Enabled:    true,
				TTLSeconds: cache.DefaultTTLSeconds,
				MaxEntries: cache.DefaultMaxEntries,
			},
		},
		Publish: PublishConfig{
			Topic: DefaultPublishTopic,
		},
	}
}

// New builds a Config from defaults, the global config file (when present)
// and environment overrides. A broken global file is logged and skipped so
// the CLI keeps working on defaults.
func New() *Config {
	cfg := DefaultConfig()

	if path, err := GetConfigFilePath(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if mergeErr := ShallowMergeYAML(cfg, path); mergeErr != nil {
				GetLogger().Warn().
					Str("component", "config").
					Str("path", path).
					Err(mergeErr).
					Msg("failed to load global config, using defaults")
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

// applyEnvOverrides applies the FREIGHTFOCUS_* environment variables on top
// of the file-loaded values. Unset variables leave the file values alone.
func (c *Config) applyEnvOverrides() {
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logging.Level = level
	}
	if format := os.Getenv(EnvLogFormat); format != "" {
		c.Logging.Format = format
	}

	if enabled := os.Getenv(cache.EnvCacheEnabled); enabled != "" {
		if val, err := strconv.ParseBool(enabled); err == nil {
			c.Resolver.Cache.Enabled = val
		}
	}
	if ttl := os.Getenv(cache.EnvTTLSeconds); ttl != "" {
		if val, err := strconv.Atoi(ttl); err == nil && val >= cache.MinTTLSeconds && val <= cache.MaxTTLSeconds {
			c.Resolver.Cache.TTLSeconds = val
		}
	}
	if dir := os.Getenv(cache.EnvCacheDir); dir != "" {
		c.Resolver.Cache.Directory = dir
	}
	if maxEntries := os.Getenv(cache.EnvCacheMaxEntries); maxEntries != "" {
		if val, err := strconv.Atoi(maxEntries); err == nil && val > 0 {
			c.Resolver.Cache.MaxEntries = val
		}
	}
}

// SetConfigPath redirects Save to the given file instead of the global
// config.yaml. Used for project-local configuration.
func (c *Config) SetConfigPath(path string) {
	c.configPath = path
}

// ConfigPath returns the file Save writes to: the path set with
// SetConfigPath, or the global config file.
func (c *Config) ConfigPath() string {
	if c.configPath != "" {
		return c.configPath
	}
	path, err := GetConfigFilePath()
	if err != nil {
		return ""
	}
	return path
}

// Save writes the configuration to ConfigPath, creating the parent
// directory first.
func (c *Config) Save() error {
	path := c.configPath
	if path == "" {
		globalPath, err := GetConfigFilePath()
		if err != nil {
			return err
		}
		path = globalPath
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory %s: %w", filepath.Dir(path), err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the whole configuration and aggregates every problem found
// so users can fix a broken file in one pass.
func (c *Config) Validate() error {
	var result *multierror.Error

	switch c.Output.DefaultFormat {
	case OutputFormatTable, OutputFormatJSON, OutputFormatNDJSON:
	default:
		result = multierror.Append(result, fmt.Errorf(
			"output.default_format: %q is not one of table, json, ndjson", c.Output.DefaultFormat))
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level)); err != nil {
		result = multierror.Append(result, fmt.Errorf(
			"logging.level: %q is not a known level", c.Logging.Level))
	}
	if c.Logging.Format != logFormatConsole && c.Logging.Format != logFormatJSON {
		result = multierror.Append(result, fmt.Errorf(
			"logging.format: %q is not one of console, json", c.Logging.Format))
	}

	if c.Emissions.DefaultCargoMassKg < 0 {
		result = multierror.Append(result, fmt.Errorf(
			"emissions.default_cargo_mass_kg: must not be negative, got %.2f", c.Emissions.DefaultCargoMassKg))
	}
	if c.Emissions.AirShortHaulMaxKM < 0 {
		result = multierror.Append(result, fmt.Errorf(
			"emissions.air_short_haul_max_km: must not be negative, got %.2f", c.Emissions.AirShortHaulMaxKM))
	}
	if err := c.Emissions.Budgets.Validate(); err != nil {
		result = multierror.Append(result, fmt.Errorf("emissions.budgets: %w", err))
	}

	if err := c.Routing.Validate(); err != nil {
		result = multierror.Append(result, fmt.Errorf("routing: %w", err))
	}

	if c.Resolver.ConnectivityToleranceKM < 0 {
		result = multierror.Append(result, fmt.Errorf(
			"resolver.connectivity_tolerance_km: must not be negative, got %.2f", c.Resolver.ConnectivityToleranceKM))
	}
	if ttl := c.Resolver.Cache.TTLSeconds; ttl != 0 && (ttl < cache.MinTTLSeconds || ttl > cache.MaxTTLSeconds) {
		result = multierror.Append(result, fmt.Errorf(
			"resolver.cache.ttl_seconds: must be between %d and %d, got %d",
			cache.MinTTLSeconds, cache.MaxTTLSeconds, ttl))
	}
	if c.Resolver.Cache.MaxEntries < 0 {
		result = multierror.Append(result, fmt.Errorf(
			"resolver.cache.max_entries: must not be negative, got %d", c.Resolver.Cache.MaxEntries))
	}

	if c.Publish.Enabled {
		if len(c.Publish.Brokers) == 0 {
			result = multierror.Append(result, fmt.Errorf(
				"publish.brokers: at least one broker is required when publish.enabled is true"))
		}
		if c.Publish.Topic == "" {
			result = multierror.Append(result, fmt.Errorf(
				"publish.topic: required when publish.enabled is true"))
		}
	}

	return result.ErrorOrNil()
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/freightfocus/internal/config"
)

// useTempHome points the config loader at a fresh directory and clears the
// env overrides so each test starts from pure defaults.
func useTempHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("FREIGHTFOCUS_HOME", home)
	t.Setenv("FREIGHTFOCUS_LOG_LEVEL", "")
	t.Setenv("FREIGHTFOCUS_LOG_FORMAT", "")
	t.Setenv("FREIGHTFOCUS_CACHE_ENABLED", "")
	t.Setenv("FREIGHTFOCUS_CACHE_TTL_SECONDS", "")
	t.Setenv("FREIGHTFOCUS_CACHE_DIR", "")
	t.Setenv("FREIGHTFOCUS_CACHE_MAX_ENTRIES", "")
	config.ResetGlobalConfigForTest()
	t.Cleanup(config.ResetGlobalConfigForTest)
	return home
}

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	assert.Equal(t, "table", cfg.Output.DefaultFormat)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Empty(t, cfg.Logging.File)
	assert.False(t, cfg.Logging.Audit.Enabled)

	assert.Equal(t, 400.0, cfg.Emissions.DefaultCargoMassKg)
	assert.Equal(t, 1500.0, cfg.Emissions.AirShortHaulMaxKM)
	assert.Empty(t, cfg.Emissions.FactorsFile)
	assert.Nil(t, cfg.Emissions.Budgets)

	assert.Nil(t, cfg.Routing)

	assert.True(t, cfg.Resolver.Cache.Enabled)
	assert.Equal(t, 86400, cfg.Resolver.Cache.TTLSeconds)
	assert.Equal(t, 512, cfg.Resolver.Cache.MaxEntries)
	assert.Zero(t, cfg.Resolver.ConnectivityToleranceKM)

	assert.Empty(t, cfg.Gazetteer.PostgresDSN)

	assert.False(t, cfg.Publish.Enabled)
	assert.Equal(t, "freightfocus.results", cfg.Publish.Topic)

	require.NoError(t, cfg.Validate())
}

func TestNew_NoGlobalFileUsesDefaults(t *testing.T) {
	useTempHome(t)

	cfg := config.New()

	assert.Equal(t, "table", cfg.Output.DefaultFormat)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestNew_LoadsGlobalConfigFile(t *testing.T) {
	home := useTempHome(t)
	global := `output:
  default_format: json
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(global), 0600))

	cfg := config.New()

	assert.Equal(t, "json", cfg.Output.DefaultFormat)
	assert.Equal(t, "warn", cfg.Logging.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, 400.0, cfg.Emissions.DefaultCargoMassKg)
	assert.True(t, cfg.Resolver.Cache.Enabled)
}

func TestNew_BrokenGlobalFileFallsBackToDefaults(t *testing.T) {
	home := useTempHome(t)
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte("{{{broken"), 0600))

	cfg := config.New()

	assert.Equal(t, "table", cfg.Output.DefaultFormat)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestNew_EnvOverridesFile(t *testing.T) {
	home := useTempHome(t)
	global := `logging:
  level: warn
resolver:
  cache:
    ttl_seconds: 3600
`
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(global), 0600))

	t.Setenv("FREIGHTFOCUS_LOG_LEVEL", "debug")
	t.Setenv("FREIGHTFOCUS_LOG_FORMAT", "json")
	t.Setenv("FREIGHTFOCUS_CACHE_TTL_SECONDS", "120")
	t.Setenv("FREIGHTFOCUS_CACHE_ENABLED", "false")
	t.Setenv("FREIGHTFOCUS_CACHE_DIR", "/var/cache/freightfocus")
	t.Setenv("FREIGHTFOCUS_CACHE_MAX_ENTRIES", "32")

	cfg := config.New()

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 120, cfg.Resolver.Cache.TTLSeconds)
	assert.False(t, cfg.Resolver.Cache.Enabled)
	assert.Equal(t, "/var/cache/freightfocus", cfg.Resolver.Cache.Directory)
	assert.Equal(t, 32, cfg.Resolver.Cache.MaxEntries)
}

func TestNew_BadEnvValuesIgnored(t *testing.T) {
	useTempHome(t)

	t.Setenv("FREIGHTFOCUS_CACHE_TTL_SECONDS", "not-a-number")
	t.Setenv("FREIGHTFOCUS_CACHE_ENABLED", "not-a-bool")
	t.Setenv("FREIGHTFOCUS_CACHE_MAX_ENTRIES", "-5")

	cfg := config.New()

	assert.Equal(t, 86400, cfg.Resolver.Cache.TTLSeconds)
	assert.True(t, cfg.Resolver.Cache.Enabled)
	assert.Equal(t, 512, cfg.Resolver.Cache.MaxEntries)
}

func TestNew_OutOfRangeTTLEnvIgnored(t *testing.T) {
	useTempHome(t)

	// Below the 60-second minimum.
	t.Setenv("FREIGHTFOCUS_CACHE_TTL_SECONDS", "5")

	cfg := config.New()
	assert.Equal(t, 86400, cfg.Resolver.Cache.TTLSeconds)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*config.Config)
		errString string
	}{
		{
			name:      "bad output format",
			mutate:    func(c *config.Config) { c.Output.DefaultFormat = "xml" },
			errString: "output.default_format",
		},
		{
			name:      "bad log level",
			mutate:    func(c *config.Config) { c.Logging.Level = "verbose" },
			errString: "logging.level",
		},
		{
			name:      "bad log format",
			mutate:    func(c *config.Config) { c.Logging.Format = "plain" },
			errString: "logging.format",
		},
		{
			name:      "negative cargo mass",
			mutate:    func(c *config.Config) { c.Emissions.DefaultCargoMassKg = -1 },
			errString: "emissions.default_cargo_mass_kg",
		},
		{
			name:      "negative band boundary",
			mutate:    func(c *config.Config) { c.Emissions.AirShortHaulMaxKM = -1 },
			errString: "emissions.air_short_haul_max_km",
		},
		{
			name: "bad budget",
			mutate: func(c *config.Config) {
				c.Emissions.Budgets = &config.BudgetsConfig{
					Global: &config.ScopedBudget{LimitKg: -5},
				}
			},
			errString: "emissions.budgets",
		},
		{
			name: "bad routing provider",
			mutate: func(c *config.Config) {
				c.Routing = &config.RoutingConfig{
					Providers: []config.ProviderRouting{{Name: ""}},
				}
			},
			errString: "routing",
		},
		{
			name:      "negative connectivity tolerance",
			mutate:    func(c *config.Config) { c.Resolver.ConnectivityToleranceKM = -10 },
			errString: "resolver.connectivity_tolerance_km",
		},
		{
			name:      "cache TTL out of range",
			mutate:    func(c *config.Config) { c.Resolver.Cache.TTLSeconds = 10 },
			errString: "resolver.cache.ttl_seconds",
		},
		{
			name:      "negative cache entries",
			mutate:    func(c *config.Config) { c.Resolver.Cache.MaxEntries = -1 },
			errString: "resolver.cache.max_entries",
		},
		{
			name: "publish enabled without brokers",
			mutate: func(c *config.Config) {
				c.Publish.Enabled = true
				c.Publish.Brokers = nil
			},
			errString: "publish.brokers",
		},
		{
			name: "publish enabled without topic",
			mutate: func(c *config.Config) {
				c.Publish.Enabled = true
				c.Publish.Brokers = []string{"kafka:9092"}
				c.Publish.Topic = ""
			},
			errString: "publish.topic",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errString)
		})
	}
}

func TestConfig_ValidateAggregatesProblems(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.DefaultFormat = "xml"
	cfg.Logging.Format = "plain"
	cfg.Emissions.DefaultCargoMassKg = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output.default_format")
	assert.Contains(t, err.Error(), "logging.format")
	assert.Contains(t, err.Error(), "emissions.default_cargo_mass_kg")
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	home := useTempHome(t)

	cfg := config.DefaultConfig()
	cfg.Output.DefaultFormat = "ndjson"
	cfg.Logging.Level = "debug"
	cfg.Gazetteer.PostgresDSN = "postgres://freight@localhost/locations"
	require.NoError(t, cfg.Save())

	// The file lands in the config directory.
	_, err := os.Stat(filepath.Join(home, "config.yaml"))
	require.NoError(t, err)

	loaded := config.New()
	assert.Equal(t, "ndjson", loaded.Output.DefaultFormat)
	assert.Equal(t, "debug", loaded.Logging.Level)
	assert.Equal(t, "postgres://freight@localhost/locations", loaded.Gazetteer.PostgresDSN)
}

func TestGetConfigDir_HomeOverride(t *testing.T) {
	home := t.TempDir()
	t.Setenv("FREIGHTFOCUS_HOME", home)

	dir, err := config.GetConfigDir()
	require.NoError(t, err)
	assert.Equal(t, home, dir)
}

func TestGetConfigDir_DefaultsToHomeDir(t *testing.T) {
	t.Setenv("FREIGHTFOCUS_HOME", "")
	userHome := t.TempDir()
	t.Setenv("HOME", userHome)
	t.Setenv("USERPROFILE", userHome)

	dir, err := config.GetConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(userHome, ".freightfocus"), dir)
}

func TestGetCacheDir(t *testing.T) {
	t.Run("defaults under config dir", func(t *testing.T) {
		home := useTempHome(t)

		dir, err := config.GetCacheDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "cache"), dir)
	})

	t.Run("configured directory wins", func(t *testing.T) {
		home := useTempHome(t)
		global := `resolver:
  cache:
    directory: /data/freight-cache
`
		require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(global), 0600))
		config.ResetGlobalConfigForTest()

		dir, err := config.GetCacheDir()
		require.NoError(t, err)
		assert.Equal(t, "/data/freight-cache", dir)
	})
}

func TestGetAuditLogFile(t *testing.T) {
	t.Run("defaults under config dir", func(t *testing.T) {
		home := useTempHome(t)

		path, err := config.GetAuditLogFile()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "audit.jsonl"), path)
	})

	t.Run("configured path wins", func(t *testing.T) {
		home := useTempHome(t)
		global := `logging:
  audit:
    enabled: true
    file: /var/log/freight-audit.jsonl
`
		require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(global), 0600))
		config.ResetGlobalConfigForTest()

		path, err := config.GetAuditLogFile()
		require.NoError(t, err)
		assert.Equal(t, "/var/log/freight-audit.jsonl", path)
	})
}

func TestEnsureSubDirs(t *testing.T) {
	home := useTempHome(t)

	require.NoError(t, config.EnsureSubDirs())

	info, err := os.Stat(filepath.Join(home, "cache"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestGlobalConfigSingleton(t *testing.T) {
	useTempHome(t)

	first := config.GetGlobalConfig()
	second := config.GetGlobalConfig()
	assert.Same(t, first, second, "repeat calls must return the same instance")

	assert.Equal(t, "table", config.GetDefaultOutputFormat())
	assert.Equal(t, "info", config.GetLogLevel())
	assert.Empty(t, config.GetLogFile())
}

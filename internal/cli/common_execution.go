package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/freightfocus/internal/config"
	"github.com/rshade/freightfocus/internal/emission"
	"github.com/rshade/freightfocus/internal/engine"
	"github.com/rshade/freightfocus/internal/engine/cache"
	"github.com/rshade/freightfocus/internal/gazetteer"
	"github.com/rshade/freightfocus/internal/geocode"
	"github.com/rshade/freightfocus/internal/ingest"
	"github.com/rshade/freightfocus/internal/logging"
	"github.com/rshade/freightfocus/internal/resolve"
)

// tabPadding is the minimum column padding for tabwriter output.
const tabPadding = 2

// auditContext holds common context for audit logging within an emissions command.
type auditContext struct {
	logger  logging.AuditLogger
	traceID string
	params  map[string]string
	start   time.Time
	command string
}

// newAuditContext creates a new audit context.
func newAuditContext(ctx context.Context, command string, params map[string]string) *auditContext {
	return &auditContext{
		logger:  logging.AuditLoggerFromContext(ctx),
		traceID: logging.TraceIDFromContext(ctx),
		params:  params,
		start:   time.Now(),
		command: command,
	}
}

// logFailure logs an audit entry for a failed operation.
func (a *auditContext) logFailure(ctx context.Context, err error) {
	entry := logging.NewAuditEntry(a.command, a.traceID).
		WithParameters(a.params).
		WithError(err.Error()).
		WithDuration(a.start)
	a.logger.Log(ctx, *entry)
}

// logSuccess logs an audit entry for a successful operation.
func (a *auditContext) logSuccess(ctx context.Context, count int, totalCO2eKg float64) {
	entry := logging.NewAuditEntry(a.command, a.traceID).
		WithParameters(a.params).
		WithSuccess(count, totalCO2eKg).
		WithDuration(a.start)
	a.logger.Log(ctx, *entry)
}

// loadConfig builds the effective configuration for a command run: the
// global file merged with the project overlay when one was resolved, then
// the budget exit overrides from the emissions group flags.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg := config.NewWithProjectDir(cmd.Context(), config.GetResolvedProjectDir())
	applyBudgetFlagOverrides(cmd, cfg)
	return cfg
}

// applyBudgetFlagOverrides copies --exit-on-threshold and --exit-code onto
// the global budget scope when the flags were set on the command line.
// CLI flags override environment variables and config file.
func applyBudgetFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	exitChanged := cmd.Flags().Changed("exit-on-threshold")
	codeChanged := cmd.Flags().Changed("exit-code")
	if !exitChanged && !codeChanged {
		return
	}

	if cfg.Emissions.Budgets == nil {
		cfg.Emissions.Budgets = &config.BudgetsConfig{}
	}
	if cfg.Emissions.Budgets.Global == nil {
		cfg.Emissions.Budgets.Global = &config.ScopedBudget{}
	}

	if exitChanged {
		val, _ := cmd.Flags().GetBool("exit-on-threshold")
		cfg.Emissions.Budgets.Global.ExitOnThreshold = &val
	}
	if codeChanged {
		val, _ := cmd.Flags().GetInt("exit-code")
		cfg.Emissions.Budgets.Global.ExitCode = &val
	}
}

// loadAndMapShipments loads a shipment record file and maps its records to
// engine shipments. Malformed records come back as mapping issues rather
// than failing the load; only an unreadable or unparseable file is an error.
func loadAndMapShipments(
	ctx context.Context,
	shipmentsPath string,
	audit *auditContext,
) ([]engine.Shipment, []ingest.MappingIssue, error) {
	log := logging.FromContext(ctx)

	records, err := ingest.LoadRecordsWithContext(ctx, shipmentsPath)
	if err != nil {
		log.Error().Ctx(ctx).Err(err).Str("shipments_path", shipmentsPath).Msg("failed to load shipment records")
		if audit != nil {
			audit.logFailure(ctx, err)
		}
		return nil, nil, fmt.Errorf("loading shipments: %w", err)
	}

	shipments, issues := ingest.MapRecords(ctx, records)
	log.Debug().Ctx(ctx).
		Int("shipment_count", len(shipments)).
		Int("issue_count", len(issues)).
		Msg("shipments loaded from records")

	return shipments, issues, nil
}

// estimationStack bundles the engine with the resolver behind it and a
// cleanup releasing pooled resources (currently the gazetteer connection).
type estimationStack struct {
	engine   *engine.Engine
	resolver *resolve.Resolver
	cleanup  func()
}

// buildEstimationStack assembles the full estimation pipeline from the
// configuration: resolution cache, location directories, geocoding chain,
// emission model and engine. The returned cleanup must be called when the
// command is done.
func buildEstimationStack(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (*estimationStack, error) {
	log := logging.FromContext(ctx)

	store := buildResolutionCache(ctx, cmd, cfg)

	directories := []gazetteer.Directory{gazetteer.NewStaticDirectory()}
	cleanup := func() {}
	if dsn := cfg.Gazetteer.PostgresDSN; dsn != "" {
		pool, err := gazetteer.Connect(ctx, dsn)
		if err != nil {
			log.Warn().Ctx(ctx).Err(err).Msg("gazetteer unavailable, falling back to built-in directory")
		} else {
			directories = append(directories, gazetteer.NewPostgresDirectory(pool))
			cleanup = pool.Close
		}
	}

	resolver := resolve.New(resolve.Config{
		Directories:    directories,
		Geocoder:       buildGeocoder(ctx, cfg),
		Cache:          store,
		MaxRetries:     resolverMaxRetries(cfg),
		RetryBackoff:   resolverRetryBackoff(cfg),
		GeocodeTimeout: cfg.Routing.Timeout(),
	})

	model, err := buildEmissionModel(cfg)
	if err != nil {
		cleanup()
		return nil, err
	}

	maxConcurrent, _ := cmd.Flags().GetInt("max-concurrency")
	eng, err := engine.New(engine.Config{
		Resolver:                resolver,
		Model:                   model,
		ConnectivityToleranceKM: cfg.Resolver.ConnectivityToleranceKM,
		MaxConcurrent:           maxConcurrent,
	})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("building engine: %w", err)
	}

	return &estimationStack{engine: eng, resolver: resolver, cleanup: cleanup}, nil
}

// buildResolutionCache opens the resolution cache, honoring --no-cache and
// --cache-ttl. A cache that cannot be opened is reported and skipped; the
// command still runs, just slower.
func buildResolutionCache(ctx context.Context, cmd *cobra.Command, cfg *config.Config) *cache.Store {
	log := logging.FromContext(ctx)

	noCache, _ := cmd.Flags().GetBool("no-cache")
	if noCache || !cfg.Resolver.Cache.Enabled {
		return nil
	}

	directory := cfg.Resolver.Cache.Directory
	if directory == "" {
		dir, err := config.GetCacheDir()
		if err != nil {
			log.Warn().Ctx(ctx).Err(err).Msg("cache directory unavailable, continuing without cache")
			return nil
		}
		directory = dir
	}

	ttl := cfg.Resolver.Cache.TTLSeconds
	if flagTTL, _ := cmd.Flags().GetInt("cache-ttl"); flagTTL > 0 {
		ttl = flagTTL
	}

	store, err := cache.New(cache.Options{
		Enabled:    true,
		Directory:  directory,
		TTLSeconds: ttl,
		MaxEntries: cfg.Resolver.Cache.MaxEntries,
	})
	if err != nil {
		log.Warn().Ctx(ctx).Err(err).Str("cache_dir", directory).
			Msg("resolution cache unavailable, continuing without cache")
		return nil
	}
	return store
}

// buildGeocoder assembles the free-text geocoding chain from the routing
// configuration. No configuration yields the default Nominatim provider;
// unknown provider names are skipped with a warning.
func buildGeocoder(ctx context.Context, cfg *config.Config) geocode.Client {
	log := logging.FromContext(ctx)

	providers := cfg.Routing.EnabledProviders()
	if len(providers) == 0 {
		return geocode.NewChain().Append("nominatim", geocode.NewNominatimClient(geocode.NominatimConfig{}))
	}

	chain := geocode.NewChain()
	for _, provider := range providers {
		switch provider.Name {
		case "nominatim":
			chain.Append(provider.Name, geocode.NewNominatimClient(geocode.NominatimConfig{
				BaseURL:         provider.BaseURL,
				PolitenessDelay: cfg.Routing.PolitenessDelay(),
				Timeout:         cfg.Routing.Timeout(),
			}))
		default:
			log.Warn().Ctx(ctx).
				Str("component", "cli").
				Str("provider", provider.Name).
				Msg("unknown geocoding provider, skipping")
		}
	}
	if chain.Len() == 0 {
		return nil
	}
	return chain
}

// resolverMaxRetries maps the routing retry setting onto the resolver's
// convention: 0 means default there, so a configured 0 becomes -1 (off).
func resolverMaxRetries(cfg *config.Config) int {
	if cfg.Routing == nil {
		return 0
	}
	effective := cfg.Routing.Retry.EffectiveMaxRetries()
	if effective == 0 {
		return -1
	}
	return effective
}

// resolverRetryBackoff returns the configured retry backoff, or zero so the
// resolver applies its default.
func resolverRetryBackoff(cfg *config.Config) time.Duration {
	if cfg.Routing == nil {
		return 0
	}
	return cfg.Routing.Retry.Backoff()
}

// buildEmissionModel loads the configured factor dataset, or the embedded
// defaults when none is configured, and builds the emission model with the
// configured estimation parameters.
func buildEmissionModel(cfg *config.Config) (*emission.Model, error) {
	var factors *emission.FactorSet
	if path := cfg.Emissions.FactorsFile; path != "" {
		loaded, err := emission.LoadFactorSet(path)
		if err != nil {
			return nil, fmt.Errorf("loading emission factors: %w", err)
		}
		factors = loaded
	}

	model, err := emission.NewModel(factors, emission.ModelConfig{
		DefaultCargoMassKg: cfg.Emissions.DefaultCargoMassKg,
		AirShortHaulMaxKM:  cfg.Emissions.AirShortHaulMaxKM,
	})
	if err != nil {
		return nil, fmt.Errorf("building emission model: %w", err)
	}
	return model, nil
}

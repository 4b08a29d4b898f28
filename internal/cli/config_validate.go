package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/freightfocus/internal/config"
)

// NewConfigValidateCmd creates the config validate command for validating configuration.
func NewConfigValidateCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long: `Validates the effective configuration (global file plus any project-local
overlay) for syntax and semantic correctness.

This includes:
- Output, logging and emission model settings
- Budget limits, alert thresholds and exit codes
- Geocoding provider routing (names, priorities, timeouts, retries)
- Resolution cache bounds`,
		Example: `  # Validate current configuration
  freightfocus config validate

  # Validate and show detailed information
  freightfocus config validate --verbose`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigValidate(cmd, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed validation information")

	return cmd
}

// runConfigValidate executes the configuration validation logic. It checks the
// merged configuration commands actually consume, not just the global file.
func runConfigValidate(cmd *cobra.Command, verbose bool) error {
	cfg := config.NewWithProjectDir(cmd.Context(), config.GetResolvedProjectDir())

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cmd.Printf("✅ Configuration is valid\n")

	if verbose {
		printVerboseDetails(cmd, cfg)
	}

	return nil
}

// printVerboseDetails prints detailed configuration information.
func printVerboseDetails(cmd *cobra.Command, cfg *config.Config) {
	cmd.Println()
	cmd.Println("Configuration details:")
	cmd.Printf("  Output format: %s\n", cfg.Output.DefaultFormat)
	cmd.Printf("  Logging level: %s\n", cfg.Logging.Level)
	cmd.Printf("  Logging format: %s\n", cfg.Logging.Format)
	if cfg.Logging.File != "" {
		cmd.Printf("  Log file: %s\n", cfg.Logging.File)
	}
	cmd.Printf("  Audit trail: %s\n", enabledWord(cfg.Logging.Audit.Enabled))

	printEmissionDetails(cmd, cfg)
	printBudgetDetails(cmd, cfg)
	printResolverDetails(cmd, cfg)
	printProviderDetails(cmd, cfg)
	printPublishDetails(cmd, cfg)
}

// printEmissionDetails prints the estimation model settings.
func printEmissionDetails(cmd *cobra.Command, cfg *config.Config) {
	cmd.Printf("  Default cargo mass: %.0f kg\n", cfg.Emissions.DefaultCargoMassKg)
	cmd.Printf("  Air short-haul boundary: %.0f km\n", cfg.Emissions.AirShortHaulMaxKM)
	if cfg.Emissions.FactorsFile != "" {
		cmd.Printf("  Emission factors: %s\n", cfg.Emissions.FactorsFile)
	} else {
		cmd.Println("  Emission factors: embedded defaults")
	}
}

// printBudgetDetails prints the configured emission budgets.
func printBudgetDetails(cmd *cobra.Command, cfg *config.Config) {
	scopes := cfg.Emissions.Budgets.Scopes()
	if len(scopes) == 0 {
		cmd.Println("  No emission budgets configured")
		return
	}

	cmd.Printf("  Emission budgets: %d\n", len(scopes))
	for _, ns := range scopes {
		cmd.Printf("    - %s: %.1f kg CO2e", ns.Scope, ns.Budget.LimitKg)
		if cfg.Emissions.Budgets.ShouldExitOnThreshold(ns.Scope) {
			cmd.Printf(" (exit code %d on breach)", cfg.Emissions.Budgets.ExitCodeFor(ns.Scope))
		}
		cmd.Println()
	}
}

// printResolverDetails prints the location resolution settings.
func printResolverDetails(cmd *cobra.Command, cfg *config.Config) {
	if cfg.Resolver.ConnectivityToleranceKM > 0 {
		cmd.Printf("  Connectivity tolerance: %.0f km\n", cfg.Resolver.ConnectivityToleranceKM)
	}
	if cfg.Resolver.Cache.Enabled {
		cmd.Printf("  Resolution cache: enabled (ttl %ds, max %d entries)\n",
			cfg.Resolver.Cache.TTLSeconds, cfg.Resolver.Cache.MaxEntries)
	} else {
		cmd.Println("  Resolution cache: disabled")
	}
	if cfg.Gazetteer.PostgresDSN != "" {
		cmd.Println("  Gazetteer: configured")
	} else {
		cmd.Println("  Gazetteer: not configured (built-in directory only)")
	}
}

// printProviderDetails prints the geocoding provider routing summary.
func printProviderDetails(cmd *cobra.Command, cfg *config.Config) {
	providers := cfg.Routing.EnabledProviders()
	if len(providers) == 0 {
		cmd.Println("  No geocoding providers configured (built-in Nominatim)")
		return
	}

	cmd.Printf("  Geocoding providers: %d\n", len(providers))
	for _, p := range providers {
		cmd.Printf("    - %s (priority: %d", p.Name, p.Priority)
		if p.BaseURL != "" {
			cmd.Printf(", url: %s", p.BaseURL)
		}
		cmd.Println(")")
	}
}

// printPublishDetails prints the result publishing summary.
func printPublishDetails(cmd *cobra.Command, cfg *config.Config) {
	if !cfg.Publish.Enabled {
		cmd.Println("  Publishing: disabled")
		return
	}
	cmd.Printf("  Publishing: enabled (%d broker(s), topic %s)\n",
		len(cfg.Publish.Brokers), cfg.Publish.Topic)
}

// enabledWord spells a boolean as enabled or disabled for display.
func enabledWord(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}

package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/freightfocus/internal/config"
	"github.com/rshade/freightfocus/internal/logging"
	"github.com/rshade/freightfocus/internal/migration"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// NewRootCmd creates the root Cobra command for the freightfocus CLI.
// It wires up logging, tracing, audit logging, and the emissions, locations,
// config and serve subcommands.
func NewRootCmd(ver string) *cobra.Command {
	return NewRootCmdWithEnv(ver, os.LookupEnv)
}

// NewRootCmdWithEnv creates the root command with an explicit env lookup for
// testability. This allows tests to inject custom environment variables.
func NewRootCmdWithEnv(ver string, lookupEnv func(string) (string, bool)) *cobra.Command {
	var logResult *logging.LogPathResult

	cmd := &cobra.Command{
		Use:     "freightfocus",
		Short:   "FreightFocus CLI and estimation server",
		Long:    "FreightFocus: Estimate carbon footprints of multi-leg freight shipments",
		Version: ver,
		Example: rootCmdExample,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Validate cache-ttl is non-negative (negative values cause undefined cache expiry behavior)
			cacheTTL, _ := cmd.Flags().GetInt("cache-ttl")
			if cacheTTL < 0 {
				return fmt.Errorf("cache-ttl must be >= 0, got %d", cacheTTL)
			}

			// Resolve the project directory once so every subcommand sees the
			// same configuration overlay.
			projectDirFlag, _ := cmd.Flags().GetString("project-dir")
			config.SetResolvedProjectDir(config.ResolveProjectDir(cmd.Context(), projectDirFlag, "."))

			// Check for a legacy factor table if in interactive terminal
			_, skipMigration := lookupEnv("FREIGHTFOCUS_SKIP_MIGRATION_CHECK")
			if isTerminal(os.Stdin) && !skipMigration {
				factorsPath := config.NewWithProjectDir(cmd.Context(), config.GetResolvedProjectDir()).Emissions.FactorsFile
				if err := migration.RunMigration(cmd.OutOrStdout(), cmd.InOrStdin(), factorsPath); err != nil {
					// We log the error but don't fail the command as migration is best-effort
					cmd.PrintErrf("Warning: migration check failed: %v\n", err)
				}
			}

			result := setupLogging(cmd)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return cleanupLogging(cmd, logResult)
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().
		Int("cache-ttl", 0, "resolution cache TTL in seconds (0 = use config default, overrides config file and env var)")
	cmd.PersistentFlags().Bool("no-cache", false, "bypass the resolution cache for this run")
	cmd.PersistentFlags().
		String("project-dir", "", "project directory containing .freightfocus (default: walk up from the working directory)")
	cmd.AddCommand(newEmissionsCmd(), newLocationsCmd(), newConfigCmd(), NewServeCmd())

	return cmd
}

const rootCmdExample = `  # Estimate emissions for a shipment file
  freightfocus emissions estimate --shipments shipments.json

  # Estimate with JSON output and a custom cache TTL (5 minutes)
  freightfocus emissions estimate --shipments shipments.json --output json --cache-ttl 300

  # Compare shipments against moving the cargo by sea
  freightfocus emissions compare --shipments shipments.json --to sea

  # Rank mode-shift opportunities across a portfolio
  freightfocus emissions insights --shipments shipments.json --top 5

  # Resolve a location identifier
  freightfocus locations resolve LAX

  # Import a location dataset into the gazetteer
  freightfocus locations import --csv locations.csv --dsn postgres://localhost/freight

  # Run the estimation HTTP API
  freightfocus serve --addr :8080

  # Initialize configuration
  freightfocus config init`

// EmissionsFlags holds the budget exit flags for the emissions command group.
// These are persistent flags that apply to all emissions subcommands.
type EmissionsFlags struct {
	ExitOnThreshold bool
	ExitCode        int
}

// newEmissionsCmd creates the emissions command group with estimate, compare
// and insights subcommands. It also adds persistent flags for budget exit
// code configuration.
func newEmissionsCmd() *cobra.Command {
	var flags EmissionsFlags

	cmd := &cobra.Command{
		Use:   "emissions",
		Short: "Emission estimation commands",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Call root command's PersistentPreRunE to ensure logging/tracing is set up.
			// Cobra child commands override parent's PersistentPreRunE, so we must call explicitly.
			// Navigate to the root command to avoid recursion. We pass root itself as the command
			// to prevent Cobra from traversing back through the parent chain.
			root := cmd.Root()
			if root != nil && root.PersistentPreRunE != nil && root != cmd {
				if err := root.PersistentPreRunE(root, args); err != nil {
					return err
				}
			}

			// Apply CLI flag overrides to the global config if flags were explicitly set
			cfg := config.GetGlobalConfig()
			if cfg == nil {
				return nil
			}

			// Ensure budgets config structure exists for CLI flag overrides
			if cfg.Emissions.Budgets == nil {
				cfg.Emissions.Budgets = &config.BudgetsConfig{}
			}
			if cfg.Emissions.Budgets.Global == nil {
				cfg.Emissions.Budgets.Global = &config.ScopedBudget{}
			}

			// CLI flags override environment variables and config file
			if cmd.Flags().Changed("exit-on-threshold") {
				cfg.Emissions.Budgets.Global.ExitOnThreshold = &flags.ExitOnThreshold
			}
			if cmd.Flags().Changed("exit-code") {
				cfg.Emissions.Budgets.Global.ExitCode = &flags.ExitCode
			}

			// Validate budget configuration if ExitOnThreshold is enabled
			if cfg.Emissions.Budgets.Global.ExitOnThreshold != nil && *cfg.Emissions.Budgets.Global.ExitOnThreshold {
				if err := cfg.Emissions.Budgets.Global.Validate(); err != nil {
					return fmt.Errorf("invalid budget configuration: %w", err)
				}
			}

			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(&flags.ExitOnThreshold, "exit-on-threshold", false,
		"Exit with non-zero code when emission budget thresholds are exceeded")
	cmd.PersistentFlags().IntVar(&flags.ExitCode, "exit-code", 1,
		"Exit code to use when emission budget thresholds are exceeded (0-255)")

	cmd.AddCommand(NewEmissionsEstimateCmd(), NewEmissionsCompareCmd(), NewEmissionsInsightsCmd())
	return cmd
}

// newLocationsCmd creates the locations command group with resolution and
// gazetteer import subcommands.
func newLocationsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "locations", Short: "Location resolution commands"}
	cmd.AddCommand(NewLocationsResolveCmd(), NewLocationsImportCmd())
	return cmd
}

// newConfigCmd creates the config command group with configuration subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(NewConfigInitCmd(), NewConfigValidateCmd())
	return cmd
}

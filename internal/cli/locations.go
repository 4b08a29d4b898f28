package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/rshade/freightfocus/internal/config"
	"github.com/rshade/freightfocus/internal/engine/batch"
	"github.com/rshade/freightfocus/internal/gazetteer"
	"github.com/rshade/freightfocus/internal/logging"
	"github.com/rshade/freightfocus/internal/resolve"
)

// locationsResolveParams holds the parameters for the resolve command
// execution.
type locationsResolveParams struct {
	output string
}

// NewLocationsResolveCmd creates the "resolve" subcommand for resolving a
// single location identifier through the full resolution ladder: cache,
// code directories, then free-text geocoding.
func NewLocationsResolveCmd() *cobra.Command {
	var params locationsResolveParams

	cmd := &cobra.Command{
		Use:   "resolve QUERY",
		Short: "Resolve a location identifier to coordinates",
		Example: `  # An IATA airport code
  freightfocus locations resolve LAX

  # A UN/LOCODE seaport
  freightfocus locations resolve CNSHA

  # A free-text address
  freightfocus locations resolve "Port of Rotterdam, Netherlands" --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeLocationsResolve(cmd, args[0], params)
		},
	}

	cmd.Flags().StringVar(
		&params.output, "output", config.GetDefaultOutputFormat(), "Output format: table, json, or ndjson")

	return cmd
}

// executeLocationsResolve resolves one identifier and renders the outcome.
// An unresolved identifier still renders its failure detail, then fails the
// command so scripts can branch on the exit code.
func executeLocationsResolve(cmd *cobra.Command, query string, params locationsResolveParams) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

	log.Debug().Ctx(ctx).Str("operation", "locations_resolve").Str("query", query).
		Msg("starting location resolution")

	audit := newAuditContext(ctx, "locations resolve", map[string]string{
		"query":  query,
		"output": params.output,
	})

	cfg := loadConfig(cmd)

	stack, err := buildEstimationStack(ctx, cmd, cfg)
	if err != nil {
		audit.logFailure(ctx, err)
		return err
	}
	defer stack.cleanup()

	resolution := stack.resolver.Resolve(ctx, query)

	if renderErr := renderResolution(cmd.OutOrStdout(), params.output, resolution); renderErr != nil {
		return renderErr
	}

	log.Info().Ctx(ctx).Str("operation", "locations_resolve").Str("query", query).
		Str("provenance", string(resolution.Provenance)).
		Dur("duration_ms", time.Since(audit.start)).Msg("location resolution complete")

	if !resolution.Resolved() {
		failure := fmt.Errorf("location not resolved: %s", resolution.Failure)
		audit.logFailure(ctx, failure)
		return failure
	}

	audit.logSuccess(ctx, 1, 0)
	return nil
}

// renderResolution renders a single resolution in the requested format.
func renderResolution(w io.Writer, format string, resolution resolve.Resolution) error {
	switch format {
	case config.OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resolution)
	case config.OutputFormatNDJSON:
		return json.NewEncoder(w).Encode(resolution)
	default:
		renderResolutionTable(w, resolution)
		return nil
	}
}

// renderResolutionTable renders the resolution as labelled lines.
func renderResolutionTable(w io.Writer, resolution resolve.Resolution) {
	fmt.Fprintln(w, "Location Resolution")
	fmt.Fprintln(w, "===================")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Identifier:  %s\n", resolution.Identifier)

	if !resolution.Resolved() {
		fmt.Fprintf(w, "Failure:     %s\n", resolution.Failure)
		if resolution.Detail != "" {
			fmt.Fprintf(w, "Detail:      %s\n", resolution.Detail)
		}
		return
	}

	if resolution.Code != "" {
		fmt.Fprintf(w, "Code:        %s\n", resolution.Code)
	}
	if resolution.Name != "" {
		fmt.Fprintf(w, "Name:        %s\n", resolution.Name)
	}
	if resolution.Kind != "" {
		fmt.Fprintf(w, "Kind:        %s\n", resolution.Kind)
	}
	fmt.Fprintf(w, "Point:       %.4f, %.4f\n", resolution.Point.Lat, resolution.Point.Lon)
	fmt.Fprintf(w, "Provenance:  %s\n", resolution.Provenance)
}

// locationsImportParams holds the parameters for the import command
// execution.
type locationsImportParams struct {
	csvPath   string
	dsn       string
	chunkSize int
	yes       bool
}

// NewLocationsImportCmd creates the "import" subcommand for loading a
// location dataset into the Postgres gazetteer.
//
// Registered flags:
//   - --csv: path to the location CSV file (required)
//   - --dsn: Postgres connection string (default: the gazetteer.postgres_dsn config key)
//   - --chunk-size: how many locations are written per batch
//   - --yes: skip the confirmation prompt
func NewLocationsImportCmd() *cobra.Command {
	var params locationsImportParams

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a location dataset into the gazetteer",
		Long: `Import location records from a CSV file into the Postgres gazetteer.

The schema is migrated first, then the locations are upserted in chunks so a
large dataset shows progress and an interrupted import can simply be rerun.`,
		Example: `  # Import with the configured gazetteer
  freightfocus locations import --csv locations.csv

  # Explicit connection, no prompt
  freightfocus locations import --csv locations.csv \
    --dsn postgres://localhost/freight --yes`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeLocationsImport(cmd, params)
		},
	}

	cmd.Flags().StringVar(&params.csvPath, "csv", "", "Path to the location CSV file")
	cmd.Flags().StringVar(&params.dsn, "dsn", "",
		"Postgres connection string (default: the gazetteer.postgres_dsn config key)")
	cmd.Flags().IntVar(&params.chunkSize, "chunk-size", batch.DefaultChunkSize,
		"How many locations are written per batch")
	cmd.Flags().BoolVar(&params.yes, "yes", false, "Skip the confirmation prompt")
	_ = cmd.MarkFlagRequired("csv")

	return cmd
}

// executeLocationsImport parses the CSV, confirms with the user, migrates
// the gazetteer schema and upserts the locations chunk by chunk.
func executeLocationsImport(cmd *cobra.Command, params locationsImportParams) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

	log.Debug().Ctx(ctx).Str("operation", "locations_import").Str("csv_path", params.csvPath).
		Msg("starting gazetteer import")

	audit := newAuditContext(ctx, "locations import", map[string]string{
		"csv":        params.csvPath,
		"chunk_size": fmt.Sprintf("%d", params.chunkSize),
	})

	cfg := loadConfig(cmd)

	dsn := params.dsn
	if dsn == "" {
		dsn = cfg.Gazetteer.PostgresDSN
	}
	if dsn == "" {
		return fmt.Errorf("no gazetteer configured: pass --dsn or set the gazetteer.postgres_dsn config key")
	}

	locations, err := gazetteer.ParseLocationsCSV(params.csvPath)
	if err != nil {
		audit.logFailure(ctx, err)
		return fmt.Errorf("parsing locations CSV: %w", err)
	}
	if len(locations) == 0 {
		cmd.Println("No locations to import")
		return nil
	}

	if !params.yes {
		prompt := fmt.Sprintf("Import %d locations into the gazetteer?", len(locations))
		if result := ConfirmInteractive(cmd.OutOrStdout(), prompt); !result.Accepted {
			cmd.Println("Import cancelled")
			return nil
		}
	}

	if err := gazetteer.RunMigrations(dsn); err != nil {
		audit.logFailure(ctx, err)
		return fmt.Errorf("preparing gazetteer schema: %w", err)
	}

	pool, err := gazetteer.Connect(ctx, dsn)
	if err != nil {
		audit.logFailure(ctx, err)
		return fmt.Errorf("connecting to gazetteer: %w", err)
	}
	defer pool.Close()

	processor, err := batch.NewProcessor[gazetteer.Location](params.chunkSize)
	if err != nil {
		return fmt.Errorf("configuring importer: %w", err)
	}
	processor.WithProgress(func(progress *batch.Progress) {
		cmd.Printf("Imported %d/%d locations (%.0f%%)\n",
			progress.ProcessedItems, progress.TotalItems, progress.PercentComplete())
	})

	var imported int64
	err = processor.Process(ctx, locations, func(ctx context.Context, chunk []gazetteer.Location, _ int) error {
		count, importErr := gazetteer.ImportLocations(ctx, pool, chunk)
		if importErr != nil {
			return importErr
		}
		imported += count
		return nil
	})
	if err != nil {
		audit.logFailure(ctx, err)
		return fmt.Errorf("importing locations: %w", err)
	}

	cmd.Printf("Imported %d locations into the gazetteer\n", imported)

	log.Info().Ctx(ctx).Str("operation", "locations_import").Int64("imported", imported).
		Dur("duration_ms", time.Since(audit.start)).Msg("gazetteer import complete")

	audit.logSuccess(ctx, int(imported), 0)
	return nil
}

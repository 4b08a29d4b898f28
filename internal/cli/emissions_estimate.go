package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/rshade/freightfocus/internal/carbon"
	"github.com/rshade/freightfocus/internal/config"
	"github.com/rshade/freightfocus/internal/engine"
	"github.com/rshade/freightfocus/internal/ingest"
	"github.com/rshade/freightfocus/internal/insights"
	"github.com/rshade/freightfocus/internal/logging"
	"github.com/rshade/freightfocus/internal/publish"
)

// displayErrorSummary prints an error summary to the command output.
// It only displays for table format since JSON/NDJSON formats include errors
// in their structure.
func displayErrorSummary(cmd *cobra.Command, batch *engine.BatchResult, outputFormat string) {
	if batch.HasErrors() && outputFormat == config.OutputFormatTable {
		cmd.Println() // Add blank line before error summary
		cmd.Println("ERRORS")
		cmd.Println("======")
		cmd.Println(batch.ErrorSummary())
	}
}

// emissionsEstimateParams holds the parameters for the estimate command
// execution.
type emissionsEstimateParams struct {
	shipmentsPath  string
	output         string
	mode           string
	references     []string
	maxConcurrency int
	publish        bool
}

// NewEmissionsEstimateCmd creates the "estimate" subcommand for estimating
// shipment emissions from a shipment record file.
//
// Registered flags:
//   - --shipments: path to the shipment record file (required)
//   - --output: output format, one of table, json, or ndjson (default from configuration)
//   - --mode: only estimate shipments with at least one leg of this mode
//   - --reference: only estimate the named shipment reference(s) (repeatable)
//   - --max-concurrency: how many shipments are estimated in parallel
//   - --publish: publish per-shipment results to the configured Kafka topic
func NewEmissionsEstimateCmd() *cobra.Command {
	var params emissionsEstimateParams

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate shipment emissions from a shipment file",
		Long: `Estimate the carbon footprint of each shipment in a shipment record file.

Every shipment is resolved, routed and estimated independently: one broken
shipment never aborts the batch. Shipments that fail outright are listed in
the error summary instead of the results.`,
		Example: emissionsEstimateExample,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeEmissionsEstimate(cmd, params)
		},
	}

	cmd.Flags().StringVar(&params.shipmentsPath, "shipments", "", "Path to the shipment record file (JSON or NDJSON)")
	cmd.Flags().StringVar(
		&params.output, "output", config.GetDefaultOutputFormat(), "Output format: table, json, or ndjson")
	cmd.Flags().StringVar(&params.mode, "mode", "", "Only estimate shipments with at least one leg of this mode")
	cmd.Flags().StringArrayVar(&params.references, "reference", nil,
		"Only estimate the named shipment reference(s) (repeatable)")
	cmd.Flags().IntVar(&params.maxConcurrency, "max-concurrency", engine.DefaultMaxConcurrent,
		"How many shipments are estimated in parallel")
	cmd.Flags().BoolVar(&params.publish, "publish", false,
		"Publish per-shipment results to the configured Kafka topic")
	_ = cmd.MarkFlagRequired("shipments")

	return cmd
}

const emissionsEstimateExample = `  # Estimate every shipment in a file
  freightfocus emissions estimate --shipments shipments.json

  # Only air shipments, as NDJSON
  freightfocus emissions estimate --shipments shipments.json --mode air --output ndjson

  # Two specific shipments
  freightfocus emissions estimate --shipments shipments.json \
    --reference SHP-001 --reference SHP-002

  # Publish results to Kafka after estimating
  freightfocus emissions estimate --shipments shipments.json --publish`

// executeEmissionsEstimate runs the estimation workflow for the "estimate"
// command. It loads and maps the shipment file, applies the mode and
// reference filters, estimates the batch, renders the chosen output format,
// optionally publishes the results, and evaluates budget status.
func executeEmissionsEstimate(cmd *cobra.Command, params emissionsEstimateParams) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

	log.Debug().Ctx(ctx).Str("operation", "emissions_estimate").Str("shipments_path", params.shipmentsPath).
		Msg("starting emission estimation")

	auditParams := map[string]string{"shipments": params.shipmentsPath, "output": params.output}
	if params.mode != "" {
		auditParams["mode"] = params.mode
	}
	if len(params.references) > 0 {
		auditParams["reference"] = strings.Join(params.references, ",")
	}
	audit := newAuditContext(ctx, "emissions estimate", auditParams)

	cfg := loadConfig(cmd)

	shipments, issues, err := loadAndMapShipments(ctx, params.shipmentsPath, audit)
	if err != nil {
		return err
	}

	shipments, err = applyShipmentFilters(ctx, shipments, shipmentFilters{
		Mode:       params.mode,
		References: params.references,
	})
	if err != nil {
		log.Error().Ctx(ctx).Err(err).Msg("invalid filter")
		audit.logFailure(ctx, err)
		return fmt.Errorf("applying filters: %w", err)
	}

	if len(shipments) == 0 && len(issues) == 0 {
		cmd.Println("No shipments to estimate")
		return nil
	}

	batch := &engine.BatchResult{}
	if len(shipments) > 0 {
		stack, buildErr := buildEstimationStack(ctx, cmd, cfg)
		if buildErr != nil {
			audit.logFailure(ctx, buildErr)
			return buildErr
		}
		defer stack.cleanup()

		result, estimateErr := stack.engine.EstimateBatch(ctx, shipments)
		if estimateErr != nil {
			log.Error().Ctx(ctx).Err(estimateErr).Msg("failed to estimate emissions")
			audit.logFailure(ctx, estimateErr)
			return fmt.Errorf("estimating emissions: %w", estimateErr)
		}
		batch = result
	}

	mergeMappingIssues(batch, issues)

	if renderErr := renderEstimateOutput(cmd, params.output, batch); renderErr != nil {
		return renderErr
	}

	totalKg := batch.TotalEmissionsKg()

	log.Info().Ctx(ctx).Str("operation", "emissions_estimate").Int("result_count", len(batch.Results)).
		Dur("duration_ms", time.Since(audit.start)).Msg("emission estimation complete")

	audit.logSuccess(ctx, len(batch.Results), totalKg)

	if params.publish || cfg.Publish.Enabled {
		if publishErr := publishResults(ctx, cfg, batch); publishErr != nil {
			log.Error().Ctx(ctx).Err(publishErr).Msg("failed to publish results")
			return publishErr
		}
	}

	statuses := insights.EvaluateBudgets(ctx, cfg.Emissions.Budgets, batch.Results)
	return evaluateAndRenderBudgets(cmd, cfg, statuses, params.output)
}

// mergeMappingIssues prepends records that never became shipments to the
// batch error list, so the summary covers the whole input file.
func mergeMappingIssues(batch *engine.BatchResult, issues []ingest.MappingIssue) {
	if len(issues) == 0 {
		return
	}
	details := make([]engine.ErrorDetail, 0, len(issues)+len(batch.Errors))
	for _, issue := range issues {
		details = append(details, engine.ErrorDetail{Reference: issue.Reference, Message: issue.Err.Error()})
	}
	batch.Errors = append(details, batch.Errors...)
}

// publishResults ships the batch to the configured Kafka topic.
func publishResults(ctx context.Context, cfg *config.Config, batch *engine.BatchResult) error {
	publisher, err := publish.New(publish.Options{
		Brokers: cfg.Publish.Brokers,
		Topic:   cfg.Publish.Topic,
	})
	if err != nil {
		return fmt.Errorf("configuring publisher: %w", err)
	}
	defer func() {
		if closeErr := publisher.Close(); closeErr != nil {
			logging.FromContext(ctx).Warn().Ctx(ctx).Err(closeErr).Msg("closing publisher")
		}
	}()

	if err := publisher.PublishBatch(ctx, batch); err != nil {
		return fmt.Errorf("publishing results: %w", err)
	}
	return nil
}

// renderEstimateOutput renders the batch in the requested format.
func renderEstimateOutput(cmd *cobra.Command, format string, batch *engine.BatchResult) error {
	switch format {
	case config.OutputFormatJSON:
		return renderEstimateJSON(cmd.OutOrStdout(), batch)
	case config.OutputFormatNDJSON:
		return renderEstimateNDJSON(cmd.OutOrStdout(), batch)
	default:
		if err := renderEstimateTable(cmd.OutOrStdout(), batch); err != nil {
			return err
		}
		displayErrorSummary(cmd, batch, config.OutputFormatTable)
		return nil
	}
}

// renderEstimateJSON renders the whole batch as one indented JSON document.
func renderEstimateJSON(w io.Writer, batch *engine.BatchResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(batch)
}

// renderEstimateNDJSON renders one JSON line per shipment result.
func renderEstimateNDJSON(w io.Writer, batch *engine.BatchResult) error {
	enc := json.NewEncoder(w)
	for _, result := range batch.Results {
		if err := enc.Encode(result); err != nil {
			return err
		}
	}
	return nil
}

// renderEstimateTable renders the batch summary table, the real-world
// equivalency line and the per-leg details.
func renderEstimateTable(w io.Writer, batch *engine.BatchResult) error {
	if len(batch.Results) == 0 {
		fmt.Fprintln(w, "No estimation results")
		return nil
	}

	fmt.Fprintln(w, "Shipment Emissions")
	fmt.Fprintln(w, "==================")
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(tw, "REFERENCE\tLEGS\tDISTANCE (KM)\tCO2E (KG)\tSTATUS")
	fmt.Fprintln(tw, "---------\t----\t-------------\t---------\t------")

	var totalKg, totalKM float64
	for _, result := range batch.Results {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
			displayReference(result),
			len(result.Legs),
			carbon.FormatFloat(result.TotalDistanceKM, 1),
			carbon.FormatFloat(result.TotalEmissionsKg, 1),
			result.Completeness,
		)
		totalKg += result.TotalEmissionsKg
		totalKM += result.TotalDistanceKM
	}
	fmt.Fprintf(tw, "TOTAL\t\t%s\t%s\t\n",
		carbon.FormatFloat(totalKM, 1), carbon.FormatFloat(totalKg, 1))
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing shipment table: %w", err)
	}

	if eq := carbon.Equivalents(totalKg); !eq.IsEmpty {
		fmt.Fprintln(w)
		fmt.Fprintln(w, eq.Display)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Leg Details:")
	fmt.Fprintln(w, "------------")
	for _, result := range batch.Results {
		renderShipmentLegs(w, result)
	}

	return nil
}

// displayReference labels a result with its scenario when one is set.
func displayReference(result engine.ShipmentResult) string {
	if result.Scenario != "" {
		return fmt.Sprintf("%s (%s)", result.Reference, result.Scenario)
	}
	return result.Reference
}

// renderShipmentLegs prints one shipment's legs and warnings as indented
// detail lines.
func renderShipmentLegs(w io.Writer, result engine.ShipmentResult) {
	fmt.Fprintf(w, "  %s: %s kg CO2e\n", displayReference(result),
		carbon.FormatFloat(result.TotalEmissionsKg, 1))

	for _, leg := range result.Legs {
		label := string(leg.Mode)
		if leg.Subtype != "" {
			label += "/" + leg.Subtype
		}
		if leg.Band != "" {
			label += " (" + leg.Band + ")"
		}

		if leg.Status == engine.LegStatusEstimated {
			fmt.Fprintf(w, "    %d. %s -> %s  %s  %s km  %s kg\n",
				leg.Sequence, leg.Origin, leg.Destination, label,
				carbon.FormatFloat(leg.DistanceKM, 1),
				carbon.FormatFloat(leg.EmissionsKg, 1))
			continue
		}
		fmt.Fprintf(w, "    %d. %s -> %s  %s  [%s: %s]\n",
			leg.Sequence, leg.Origin, leg.Destination, label, leg.Status, leg.Reason)
	}

	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "    warning: %s\n", warning)
	}
}

package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/rshade/freightfocus/internal/carbon"
	"github.com/rshade/freightfocus/internal/config"
	"github.com/rshade/freightfocus/internal/emission"
	"github.com/rshade/freightfocus/internal/engine"
	"github.com/rshade/freightfocus/internal/logging"
)

// emissionsCompareParams holds the parameters for the compare command
// execution.
type emissionsCompareParams struct {
	shipmentsPath string
	to            string
	subtype       string
	output        string
}

// NewEmissionsCompareCmd creates the "compare" subcommand for what-if mode
// comparison.
//
// Each shipment is estimated twice: once as given and once with every leg
// switched to the alternative mode, keeping origins, destinations and dates.
//
// Registered flags:
//   - --shipments: path to the shipment record file (required)
//   - --to: alternative transport mode, air or sea (required)
//   - --subtype: vehicle class for the alternative mode (default: the mode's default)
//   - --output: output format, one of table, json, or ndjson (default from configuration)
func NewEmissionsCompareCmd() *cobra.Command {
	var params emissionsCompareParams

	cmd := &cobra.Command{
		Use:     "compare",
		Short:   "Compare shipment emissions against an alternative mode",
		Example: emissionsCompareExample,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeEmissionsCompare(cmd, params)
		},
	}

	cmd.Flags().StringVar(&params.shipmentsPath, "shipments", "", "Path to the shipment record file (JSON or NDJSON)")
	cmd.Flags().StringVar(&params.to, "to", "", "Alternative transport mode: air or sea")
	cmd.Flags().StringVar(&params.subtype, "subtype", "",
		"Vehicle class for the alternative mode (default: the mode's default)")
	cmd.Flags().StringVar(
		&params.output, "output", config.GetDefaultOutputFormat(), "Output format: table, json, or ndjson")
	_ = cmd.MarkFlagRequired("shipments")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

const emissionsCompareExample = `  # How much would moving everything by sea change emissions?
  freightfocus emissions compare --shipments shipments.json --to sea

  # Against air freight in a specific vehicle class
  freightfocus emissions compare --shipments shipments.json --to air --subtype belly_freight

  # Machine-readable deltas
  freightfocus emissions compare --shipments shipments.json --to sea --output json`

// executeEmissionsCompare runs the what-if comparison for every shipment in
// the file. A shipment that fails to compare is reported and skipped; the
// rest of the batch still completes.
func executeEmissionsCompare(cmd *cobra.Command, params emissionsCompareParams) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

	alternative, err := emission.ParseMode(params.to)
	if err != nil {
		return fmt.Errorf("invalid --to mode: %w", err)
	}

	log.Debug().Ctx(ctx).Str("operation", "emissions_compare").Str("shipments_path", params.shipmentsPath).
		Str("alternative_mode", string(alternative)).Msg("starting mode comparison")

	auditParams := map[string]string{
		"shipments": params.shipmentsPath,
		"to":        string(alternative),
		"output":    params.output,
	}
	audit := newAuditContext(ctx, "emissions compare", auditParams)

	cfg := loadConfig(cmd)

	shipments, issues, err := loadAndMapShipments(ctx, params.shipmentsPath, audit)
	if err != nil {
		return err
	}

	if len(shipments) == 0 {
		cmd.Println("No shipments to compare")
		return nil
	}

	stack, err := buildEstimationStack(ctx, cmd, cfg)
	if err != nil {
		audit.logFailure(ctx, err)
		return err
	}
	defer stack.cleanup()

	comparisons := make([]engine.CompareResult, 0, len(shipments))
	failures := make([]engine.ErrorDetail, 0, len(issues))
	for _, issue := range issues {
		failures = append(failures, engine.ErrorDetail{Reference: issue.Reference, Message: issue.Err.Error()})
	}

	var baselineKg float64
	for _, shipment := range shipments {
		result, compareErr := stack.engine.CompareModes(ctx, engine.CompareRequest{
			Shipment:           shipment,
			AlternativeMode:    alternative,
			AlternativeSubtype: params.subtype,
		})
		if compareErr != nil {
			log.Warn().Ctx(ctx).Str("reference", shipment.Reference).Err(compareErr).
				Msg("comparison failed for shipment, continuing with others")
			failures = append(failures, engine.ErrorDetail{
				Reference: shipment.Reference,
				Message:   compareErr.Error(),
			})
			continue
		}
		comparisons = append(comparisons, *result)
		baselineKg += result.Baseline.TotalEmissionsKg
	}

	if renderErr := renderCompareOutput(cmd, params.output, comparisons, failures); renderErr != nil {
		return renderErr
	}

	log.Info().Ctx(ctx).Str("operation", "emissions_compare").Int("result_count", len(comparisons)).
		Dur("duration_ms", time.Since(audit.start)).Msg("mode comparison complete")

	audit.logSuccess(ctx, len(comparisons), baselineKg)
	return nil
}

// compareResponse wraps the comparison rows for JSON output.
type compareResponse struct {
	Comparisons  []engine.CompareResult `json:"comparisons"`
	Errors       []engine.ErrorDetail   `json:"errors,omitempty"`
	TotalDeltaKg float64                `json:"total_delta_kg"`
}

// renderCompareOutput renders comparison rows in the requested format.
func renderCompareOutput(
	cmd *cobra.Command,
	format string,
	comparisons []engine.CompareResult,
	failures []engine.ErrorDetail,
) error {
	switch format {
	case config.OutputFormatJSON:
		return renderCompareJSON(cmd.OutOrStdout(), comparisons, failures)
	case config.OutputFormatNDJSON:
		return renderCompareNDJSON(cmd.OutOrStdout(), comparisons)
	default:
		if err := renderCompareTable(cmd.OutOrStdout(), comparisons); err != nil {
			return err
		}
		displayCompareFailures(cmd, failures)
		return nil
	}
}

// displayCompareFailures prints the shipments that could not be compared.
func displayCompareFailures(cmd *cobra.Command, failures []engine.ErrorDetail) {
	if len(failures) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("ERRORS")
	cmd.Println("======")
	summary := engine.BatchResult{Errors: failures}
	cmd.Println(summary.ErrorSummary())
}

// renderCompareJSON renders all comparisons as one indented JSON document.
func renderCompareJSON(w io.Writer, comparisons []engine.CompareResult, failures []engine.ErrorDetail) error {
	response := compareResponse{Comparisons: comparisons, Errors: failures}
	for _, comparison := range comparisons {
		response.TotalDeltaKg += comparison.DeltaKg
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(response)
}

// renderCompareNDJSON renders one JSON line per comparison.
func renderCompareNDJSON(w io.Writer, comparisons []engine.CompareResult) error {
	enc := json.NewEncoder(w)
	for _, comparison := range comparisons {
		if err := enc.Encode(comparison); err != nil {
			return err
		}
	}
	return nil
}

// renderCompareTable renders the comparison rows and the total delta.
func renderCompareTable(w io.Writer, comparisons []engine.CompareResult) error {
	if len(comparisons) == 0 {
		fmt.Fprintln(w, "No comparison results")
		return nil
	}

	fmt.Fprintln(w, "Mode Comparison")
	fmt.Fprintln(w, "===============")
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(tw, "REFERENCE\tBASELINE\tALTERNATIVE\tBASELINE (KG)\tALTERNATIVE (KG)\tDELTA (KG)\tDELTA")
	fmt.Fprintln(tw, "---------\t--------\t-----------\t-------------\t----------------\t----------\t-----")

	var totalDelta float64
	for _, comparison := range comparisons {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%+.1f%%\n",
			comparison.Reference,
			comparison.BaselineMode,
			comparison.AlternativeMode,
			carbon.FormatFloat(comparison.Baseline.TotalEmissionsKg, 1),
			carbon.FormatFloat(comparison.Alternative.TotalEmissionsKg, 1),
			formatSignedKg(comparison.DeltaKg),
			comparison.DeltaPct,
		)
		totalDelta += comparison.DeltaKg
	}
	fmt.Fprintf(tw, "TOTAL\t\t\t\t\t%s\t\n", formatSignedKg(totalDelta))
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing comparison table: %w", err)
	}

	return nil
}

// formatSignedKg renders a delta with an explicit sign so savings read as
// negative at a glance.
func formatSignedKg(kg float64) string {
	if kg > 0 {
		return "+" + carbon.FormatFloat(kg, 1)
	}
	return carbon.FormatFloat(kg, 1)
}

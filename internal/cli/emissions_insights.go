package cli

import (
	"context"
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/rshade/freightfocus/internal/carbon"
	"github.com/rshade/freightfocus/internal/config"
	"github.com/rshade/freightfocus/internal/emission"
	"github.com/rshade/freightfocus/internal/engine"
	"github.com/rshade/freightfocus/internal/insights"
	"github.com/rshade/freightfocus/internal/logging"
)

// emissionsInsightsParams holds the parameters for the insights command
// execution.
type emissionsInsightsParams struct {
	shipmentsPath string
	top           int
	minSaving     float64
	output        string
}

// NewEmissionsInsightsCmd creates the "insights" subcommand for portfolio
// analysis across a shipment file.
//
// Each shipment is compared against every other supported mode; the report
// rolls the portfolio up against its best-case alternatives, ranks the
// saving opportunities and summarizes the footprint distribution.
//
// Registered flags:
//   - --shipments: path to the shipment record file (required)
//   - --top: how many saving opportunities to list
//   - --min-saving: drop opportunities saving less than this percentage
//   - --output: output format, one of table, json, or ndjson (default from configuration)
func NewEmissionsInsightsCmd() *cobra.Command {
	var params emissionsInsightsParams

	cmd := &cobra.Command{
		Use:     "insights",
		Short:   "Rank mode-shift opportunities across a shipment portfolio",
		Example: emissionsInsightsExample,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeEmissionsInsights(cmd, params)
		},
	}

	cmd.Flags().StringVar(&params.shipmentsPath, "shipments", "", "Path to the shipment record file (JSON or NDJSON)")
	cmd.Flags().IntVar(&params.top, "top", insights.DefaultTopN, "How many saving opportunities to list")
	cmd.Flags().Float64Var(&params.minSaving, "min-saving", 0,
		"Drop opportunities saving less than this percentage")
	cmd.Flags().StringVar(
		&params.output, "output", config.GetDefaultOutputFormat(), "Output format: table, json, or ndjson")
	_ = cmd.MarkFlagRequired("shipments")

	return cmd
}

const emissionsInsightsExample = `  # Full portfolio report
  freightfocus emissions insights --shipments shipments.json

  # Only the five biggest opportunities, ignoring savings under 10%
  freightfocus emissions insights --shipments shipments.json --top 5 --min-saving 10

  # Feed the report into another tool
  freightfocus emissions insights --shipments shipments.json --output json`

// supportedModes are the modes every shipment is compared against.
var supportedModes = []emission.Mode{emission.ModeAir, emission.ModeSea} //nolint:gochecknoglobals // Static mode list

// executeEmissionsInsights estimates every shipment against each alternative
// mode, builds the portfolio report and renders it together with the budget
// utilization of the baseline estimates.
func executeEmissionsInsights(cmd *cobra.Command, params emissionsInsightsParams) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

	log.Debug().Ctx(ctx).Str("operation", "emissions_insights").Str("shipments_path", params.shipmentsPath).
		Int("top", params.top).Msg("starting portfolio analysis")

	auditParams := map[string]string{
		"shipments": params.shipmentsPath,
		"top":       fmt.Sprintf("%d", params.top),
		"output":    params.output,
	}
	audit := newAuditContext(ctx, "emissions insights", auditParams)

	cfg := loadConfig(cmd)

	shipments, _, err := loadAndMapShipments(ctx, params.shipmentsPath, audit)
	if err != nil {
		return err
	}

	if len(shipments) == 0 {
		cmd.Println("No shipments to analyze")
		return nil
	}

	stack, err := buildEstimationStack(ctx, cmd, cfg)
	if err != nil {
		audit.logFailure(ctx, err)
		return err
	}
	defer stack.cleanup()

	rows, baselines := buildComparisonRows(ctx, stack.engine, shipments)
	if len(rows) == 0 {
		cmd.Println("No shipments could be analyzed")
		return nil
	}

	report, err := insights.BuildReport(ctx, rows, insights.Options{
		TopN:         params.top,
		MinPctSaving: params.minSaving,
	})
	if err != nil {
		audit.logFailure(ctx, err)
		return fmt.Errorf("building insight report: %w", err)
	}

	statuses := insights.EvaluateBudgets(ctx, cfg.Emissions.Budgets, baselines)

	if renderErr := renderInsightsOutput(cmd, params.output, report, statuses); renderErr != nil {
		return renderErr
	}

	log.Info().Ctx(ctx).Str("operation", "emissions_insights").Int("row_count", len(rows)).
		Int("opportunity_count", len(report.Opportunities)).
		Dur("duration_ms", time.Since(audit.start)).Msg("portfolio analysis complete")

	audit.logSuccess(ctx, len(baselines), report.Portfolio.TotalBaselineKg)
	return nil
}

// buildComparisonRows compares each shipment against every supported mode
// other than its dominant one. Shipments that fail to compare are reported
// and skipped. The second return value holds one baseline result per
// shipment for budget evaluation.
func buildComparisonRows(
	ctx context.Context,
	eng *engine.Engine,
	shipments []engine.Shipment,
) ([]insights.ComparisonRow, []engine.ShipmentResult) {
	log := logging.FromContext(ctx)

	rows := make([]insights.ComparisonRow, 0, len(shipments))
	baselines := make([]engine.ShipmentResult, 0, len(shipments))

	for _, shipment := range shipments {
		dominant := engine.DominantMode(shipment.Legs)
		haveBaseline := false

		for _, alternative := range supportedModes {
			if alternative == dominant {
				continue
			}

			result, err := eng.CompareModes(ctx, engine.CompareRequest{
				Shipment:        shipment,
				AlternativeMode: alternative,
			})
			if err != nil {
				log.Warn().Ctx(ctx).Str("reference", shipment.Reference).
					Str("alternative_mode", string(alternative)).Err(err).
					Msg("comparison failed for shipment, continuing with others")
				continue
			}

			rows = append(rows, insights.RowFromComparison(*result))
			if !haveBaseline {
				baselines = append(baselines, result.Baseline)
				haveBaseline = true
			}
		}
	}

	return rows, baselines
}

// insightsResponse is the JSON envelope: the report plus the budget
// utilization of the baseline estimates.
type insightsResponse struct {
	*insights.Report
	Budgets []insights.BudgetStatus `json:"budgets,omitempty"`
}

// renderInsightsOutput renders the report in the requested format.
func renderInsightsOutput(
	cmd *cobra.Command,
	format string,
	report *insights.Report,
	statuses []insights.BudgetStatus,
) error {
	switch format {
	case config.OutputFormatJSON:
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(insightsResponse{Report: report, Budgets: statuses})
	case config.OutputFormatNDJSON:
		return renderInsightsNDJSON(cmd.OutOrStdout(), report)
	default:
		return renderInsightsTable(cmd.OutOrStdout(), report, statuses)
	}
}

// renderInsightsNDJSON streams one JSON line per saving opportunity.
func renderInsightsNDJSON(w io.Writer, report *insights.Report) error {
	enc := json.NewEncoder(w)
	for _, opportunity := range report.Opportunities {
		if err := enc.Encode(opportunity); err != nil {
			return err
		}
	}
	return nil
}

// renderInsightsTable renders the portfolio roll-up, the opportunity table,
// the narrative lines, the footprint distribution and the budget utilization.
func renderInsightsTable(w io.Writer, report *insights.Report, statuses []insights.BudgetStatus) error {
	fmt.Fprintln(w, "Emission Insights")
	fmt.Fprintln(w, "=================")
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Baseline:   %s kg CO2e\n", carbon.FormatFloat(report.Portfolio.TotalBaselineKg, 1))
	fmt.Fprintf(w, "Best case:  %s kg CO2e\n", carbon.FormatFloat(report.Portfolio.TotalBestCaseKg, 1))
	fmt.Fprintf(w, "Delta:      %s kg CO2e (%+.1f%%)\n",
		formatSignedKg(report.Portfolio.DeltaKg), report.Portfolio.DeltaPct)

	if eq := carbon.Equivalents(math.Abs(report.Portfolio.DeltaKg)); !eq.IsEmpty {
		fmt.Fprintf(w, "Potential saving: %s\n", eq.Display)
	}

	if len(report.Opportunities) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "TOP OPPORTUNITIES")
		fmt.Fprintln(w, "=================")
		tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
		fmt.Fprintln(tw, "REFERENCE\tFROM\tTO\tSAVING (KG)\tSAVING")
		fmt.Fprintln(tw, "---------\t----\t--\t-----------\t------")
		for _, opportunity := range report.Opportunities {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1f%%\n",
				opportunity.Reference,
				opportunity.FromMode,
				opportunity.ToMode,
				carbon.FormatFloat(math.Abs(opportunity.DeltaKg), 1),
				math.Abs(opportunity.DeltaPct),
			)
		}
		if err := tw.Flush(); err != nil {
			return fmt.Errorf("flushing opportunity table: %w", err)
		}
	}

	if len(report.Narrative) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "INSIGHTS")
		fmt.Fprintln(w, "========")
		for _, line := range report.Narrative {
			fmt.Fprintf(w, "- %s\n", line)
		}
	}

	dist := report.Distribution
	fmt.Fprintln(w)
	fmt.Fprintln(w, "FOOTPRINT DISTRIBUTION")
	fmt.Fprintln(w, "======================")
	fmt.Fprintf(w, "Shipments:  %d\n", dist.Count)
	fmt.Fprintf(w, "Mean:       %s kg\n", carbon.FormatFloat(dist.MeanKg, 1))
	fmt.Fprintf(w, "Median:     %s kg\n", carbon.FormatFloat(dist.MedianKg, 1))
	fmt.Fprintf(w, "P90:        %s kg\n", carbon.FormatFloat(dist.P90Kg, 1))
	fmt.Fprintf(w, "Min/Max:    %s / %s kg\n",
		carbon.FormatFloat(dist.MinKg, 1), carbon.FormatFloat(dist.MaxKg, 1))

	if len(statuses) > 0 {
		fmt.Fprintln(w)
		if err := renderBudgetStatuses(w, statuses); err != nil {
			return err
		}
	}

	return nil
}

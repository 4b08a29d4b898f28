// Package insights reshapes engine output into portfolio views: best-case
// roll-ups, per-shipment saving opportunities, footprint distributions and
// budget utilization. Nothing here re-estimates emissions; the numbers come
// in from the engine and only get grouped, ranked and formatted.
package insights

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/rshade/freightfocus/internal/carbon"
	"github.com/rshade/freightfocus/internal/engine"
	"github.com/rshade/freightfocus/internal/logging"
)

// DefaultTopN caps the saving opportunities listed in a report.
const DefaultTopN = 10

type constError string

func (e constError) Error() string { return string(e) }

// ErrEmptyComparison rejects report building without any comparison rows.
const ErrEmptyComparison = constError("comparison table is empty")

// ComparisonRow is one baseline-versus-alternative line for a shipment.
// A shipment may contribute several rows, one per alternative scenario.
type ComparisonRow struct {
	Reference    string  `json:"reference"`
	BaselineMode string  `json:"baseline_mode"`
	BaselineKg   float64 `json:"baseline_kg"`
	AltScenario  string  `json:"alt_scenario"`
	AltMode      string  `json:"alt_mode"`
	AltKg        float64 `json:"alt_kg"`
	DeltaKg      float64 `json:"delta_kg"`
	DeltaPct     float64 `json:"delta_pct"`
}

// RowFromComparison flattens an engine comparison into a report row.
func RowFromComparison(cmp engine.CompareResult) ComparisonRow {
	return ComparisonRow{
		Reference:    cmp.Reference,
		BaselineMode: string(cmp.BaselineMode),
		BaselineKg:   cmp.Baseline.TotalEmissionsKg,
		AltScenario:  cmp.Alternative.Scenario,
		AltMode:      string(cmp.AlternativeMode),
		AltKg:        cmp.Alternative.TotalEmissionsKg,
		DeltaKg:      cmp.DeltaKg,
		DeltaPct:     cmp.DeltaPct,
	}
}

// PortfolioSummary rolls the whole batch up against its best alternatives.
type PortfolioSummary struct {
	TotalBaselineKg float64 `json:"total_baseline_kg"`
	TotalBestCaseKg float64 `json:"total_bestcase_kg"`
	DeltaKg         float64 `json:"portfolio_delta_kg"`
	DeltaPct        float64 `json:"portfolio_delta_pct"`
}

// Opportunity is one shipment whose best alternative saves emissions.
type Opportunity struct {
	Reference string  `json:"reference"`
	FromMode  string  `json:"from_mode"`
	ToMode    string  `json:"to_mode"`
	Scenario  string  `json:"scenario"`
	DeltaKg   float64 `json:"delta_kg"`
	DeltaPct  float64 `json:"delta_pct"`
	Explain   string  `json:"explain"`
}

// Options tunes report building.
type Options struct {
	// TopN caps the opportunity list. Zero or negative uses DefaultTopN.
	TopN int
	// MinPctSaving drops opportunities whose relative saving is smaller
	// than this percentage.
	MinPctSaving float64
}

// Report is the assembled insight view over a comparison table.
type Report struct {
	Portfolio     PortfolioSummary  `json:"portfolio_summary"`
	Opportunities []Opportunity     `json:"top_opportunities,omitempty"`
	Narrative     []string          `json:"insights_text"`
	Distribution  DistributionStats `json:"distribution"`
}

// BuildReport groups comparison rows by shipment, picks each shipment's best
// alternative (smallest alternative emissions), rolls the portfolio up and
// ranks the saving opportunities by absolute kg saved.
func BuildReport(ctx context.Context, rows []ComparisonRow, opts Options) (*Report, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyComparison
	}

	log := logging.FromContext(ctx)

	topN := opts.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	// Group rows per shipment, keeping first-appearance order so the report
	// is stable across runs.
	groups := lo.GroupBy(rows, func(r ComparisonRow) string { return r.Reference })
	references := make([]string, 0, len(groups))
	seen := make(map[string]bool, len(groups))
	for _, row := range rows {
		if !seen[row.Reference] {
			seen[row.Reference] = true
			references = append(references, row.Reference)
		}
	}

	best := make([]ComparisonRow, 0, len(references))
	var totalBaseline float64
	for _, ref := range references {
		group := groups[ref]
		best = append(best, lo.MinBy(group, func(a, b ComparisonRow) bool {
			return a.AltKg < b.AltKg
		}))
		totalBaseline += group[0].BaselineKg
	}
	totalBestCase := lo.SumBy(best, func(r ComparisonRow) float64 { return r.AltKg })

	delta := totalBestCase - totalBaseline
	var deltaPct float64
	if totalBaseline != 0 {
		deltaPct = delta / totalBaseline * 100.0
	}

	report := &Report{
		Portfolio: PortfolioSummary{
			TotalBaselineKg: totalBaseline,
			TotalBestCaseKg: totalBestCase,
			DeltaKg:         delta,
			DeltaPct:        deltaPct,
		},
		Distribution: Distribution(lo.Map(best, func(r ComparisonRow, _ int) float64 {
			return r.BaselineKg
		})),
	}
	report.Narrative = append(report.Narrative, fmt.Sprintf(
		"Portfolio: adopting the best alternatives changes emissions by %s kg CO2e (%s).",
		carbon.FormatFloat(delta, 0), pctString(deltaPct)))

	report.Opportunities = rankOpportunities(best, topN, opts.MinPctSaving)
	if len(report.Opportunities) == 0 {
		report.Narrative = append(report.Narrative,
			"No saving opportunities found versus baseline.")
	} else {
		for _, opp := range report.Opportunities {
			report.Narrative = append(report.Narrative, opp.Explain)
		}
	}

	log.Debug().
		Ctx(ctx).
		Str("component", "insights").
		Str("operation", "build_report").
		Int("row_count", len(rows)).
		Int("shipment_count", len(references)).
		Int("opportunity_count", len(report.Opportunities)).
		Float64("portfolio_delta_kg", delta).
		Msg("insight report built")

	return report, nil
}

// rankOpportunities keeps the shipments whose best alternative saves
// emissions, largest absolute saving first.
func rankOpportunities(best []ComparisonRow, topN int, minPctSaving float64) []Opportunity {
	savings := lo.Filter(best, func(r ComparisonRow, _ int) bool {
		if r.DeltaKg >= 0 {
			return false
		}
		return minPctSaving <= 0 || math.Abs(r.DeltaPct) >= minPctSaving
	})
	sort.SliceStable(savings, func(i, j int) bool {
		return math.Abs(savings[i].DeltaKg) > math.Abs(savings[j].DeltaKg)
	})
	if len(savings) > topN {
		savings = savings[:topN]
	}

	return lo.Map(savings, func(r ComparisonRow, _ int) Opportunity {
		explain := fmt.Sprintf(
			"%s: switch to %s (%s) to save %s kg CO2e (%s) vs %s.",
			r.Reference, r.AltMode, r.AltScenario,
			carbon.FormatFloat(math.Abs(r.DeltaKg), 0),
			pctString(math.Abs(r.DeltaPct)), r.BaselineMode)
		return Opportunity{
			Reference: r.Reference,
			FromMode:  r.BaselineMode,
			ToMode:    r.AltMode,
			Scenario:  r.AltScenario,
			DeltaKg:   r.DeltaKg,
			DeltaPct:  r.DeltaPct,
			Explain:   explain,
		}
	})
}

// pctString formats a percentage, tolerating the NaN/Inf a zero baseline
// produces upstream.
func pctString(p float64) string {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", p)
}

package insights_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/freightfocus/internal/emission"
	"github.com/rshade/freightfocus/internal/engine"
	"github.com/rshade/freightfocus/internal/insights"
)

func TestRowFromComparison(t *testing.T) {
	cmp := engine.CompareResult{
		Reference:       "A-1001",
		BaselineMode:    emission.ModeAir,
		AlternativeMode: emission.ModeSea,
		Baseline: engine.ShipmentResult{
			Reference:        "A-1001",
			Scenario:         "baseline",
			TotalEmissionsKg: 1943.3568,
		},
		Alternative: engine.ShipmentResult{
			Reference:        "A-1001",
			Scenario:         "alternative-sea",
			TotalEmissionsKg: 37.8576,
		},
		DeltaKg:  -1905.4992,
		DeltaPct: -98.05,
	}

	row := insights.RowFromComparison(cmp)

	assert.Equal(t, "A-1001", row.Reference)
	assert.Equal(t, "air", row.BaselineMode)
	assert.InDelta(t, 1943.3568, row.BaselineKg, 1e-9)
	assert.Equal(t, "alternative-sea", row.AltScenario)
	assert.Equal(t, "sea", row.AltMode)
	assert.InDelta(t, 37.8576, row.AltKg, 1e-9)
	assert.InDelta(t, -1905.4992, row.DeltaKg, 1e-9)
	assert.InDelta(t, -98.05, row.DeltaPct, 1e-9)
}

func TestBuildReportPortfolioRollup(t *testing.T) {
	rows := []insights.ComparisonRow{
		{Reference: "A-1", BaselineMode: "air", BaselineKg: 1000, AltScenario: "alternative-sea", AltMode: "sea", AltKg: 200, DeltaKg: -800, DeltaPct: -80},
		{Reference: "A-1", BaselineMode: "air", BaselineKg: 1000, AltScenario: "alternative-sea-bulk", AltMode: "sea", AltKg: 500, DeltaKg: -500, DeltaPct: -50},
		{Reference: "S-2", BaselineMode: "sea", BaselineKg: 300, AltScenario: "alternative-air", AltMode: "air", AltKg: 900, DeltaKg: 600, DeltaPct: 200},
	}

	report, err := insights.BuildReport(context.Background(), rows, insights.Options{})
	require.NoError(t, err)

	assert.InDelta(t, 1300.0, report.Portfolio.TotalBaselineKg, 1e-9)
	assert.InDelta(t, 1100.0, report.Portfolio.TotalBestCaseKg, 1e-9, "best alternative per shipment: 200 for A-1, 900 for S-2")
	assert.InDelta(t, -200.0, report.Portfolio.DeltaKg, 1e-9)
	assert.InDelta(t, -15.3846, report.Portfolio.DeltaPct, 1e-3)

	require.Len(t, report.Opportunities, 1, "only A-1 saves emissions")
	opp := report.Opportunities[0]
	assert.Equal(t, "A-1", opp.Reference)
	assert.Equal(t, "air", opp.FromMode)
	assert.Equal(t, "sea", opp.ToMode)
	assert.Equal(t, "alternative-sea", opp.Scenario)
	assert.InDelta(t, -800.0, opp.DeltaKg, 1e-9)
	assert.Contains(t, opp.Explain, "A-1: switch to sea")
	assert.Contains(t, opp.Explain, "800 kg CO2e")
	assert.Contains(t, opp.Explain, "80.0%")

	require.NotEmpty(t, report.Narrative)
	assert.Contains(t, report.Narrative[0], "Portfolio:")
	assert.Contains(t, report.Narrative[0], "-200 kg CO2e")
	assert.Contains(t, report.Narrative[0], "-15.4%")

	assert.Equal(t, 2, report.Distribution.Count)
	assert.InDelta(t, 650.0, report.Distribution.MeanKg, 1e-9)
	assert.InDelta(t, 300.0, report.Distribution.MedianKg, 1e-9)
	assert.InDelta(t, 1000.0, report.Distribution.P90Kg, 1e-9)
}

func TestBuildReportTopNAndMinPctFilter(t *testing.T) {
	rows := []insights.ComparisonRow{
		{Reference: "O-1", BaselineMode: "air", BaselineKg: 1000, AltMode: "sea", AltScenario: "alternative-sea", AltKg: 500, DeltaKg: -500, DeltaPct: -50},
		{Reference: "O-2", BaselineMode: "air", BaselineKg: 1000, AltMode: "sea", AltScenario: "alternative-sea", AltKg: 600, DeltaKg: -400, DeltaPct: -40},
		{Reference: "O-3", BaselineMode: "air", BaselineKg: 1000, AltMode: "sea", AltScenario: "alternative-sea", AltKg: 700, DeltaKg: -300, DeltaPct: -3},
		{Reference: "O-4", BaselineMode: "air", BaselineKg: 1000, AltMode: "sea", AltScenario: "alternative-sea", AltKg: 800, DeltaKg: -200, DeltaPct: -20},
		{Reference: "O-5", BaselineMode: "air", BaselineKg: 1000, AltMode: "sea", AltScenario: "alternative-sea", AltKg: 900, DeltaKg: -100, DeltaPct: -10},
	}

	report, err := insights.BuildReport(context.Background(), rows, insights.Options{
		TopN:         2,
		MinPctSaving: 5,
	})
	require.NoError(t, err)

	require.Len(t, report.Opportunities, 2)
	assert.Equal(t, "O-1", report.Opportunities[0].Reference, "largest absolute saving first")
	assert.Equal(t, "O-2", report.Opportunities[1].Reference, "O-3 is below the 5% saving floor")
}

func TestBuildReportNoSavings(t *testing.T) {
	rows := []insights.ComparisonRow{
		{Reference: "S-1", BaselineMode: "sea", BaselineKg: 100, AltMode: "air", AltScenario: "alternative-air", AltKg: 900, DeltaKg: 800, DeltaPct: 800},
	}

	report, err := insights.BuildReport(context.Background(), rows, insights.Options{})
	require.NoError(t, err)

	assert.Empty(t, report.Opportunities)
	require.Len(t, report.Narrative, 2)
	assert.Contains(t, report.Narrative[1], "No saving opportunities found")
}

func TestBuildReportEmptyRows(t *testing.T) {
	_, err := insights.BuildReport(context.Background(), nil, insights.Options{})
	require.ErrorIs(t, err, insights.ErrEmptyComparison)
}

func TestBuildReportToleratesNonFinitePct(t *testing.T) {
	rows := []insights.ComparisonRow{
		{Reference: "Z-1", BaselineMode: "air", BaselineKg: 0, AltMode: "sea", AltScenario: "alternative-sea", AltKg: 0, DeltaKg: -10, DeltaPct: math.NaN()},
	}

	report, err := insights.BuildReport(context.Background(), rows, insights.Options{})
	require.NoError(t, err)

	require.Len(t, report.Opportunities, 1)
	assert.Contains(t, report.Opportunities[0].Explain, "(n/a)")
}

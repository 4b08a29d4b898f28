package insights

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/rshade/freightfocus/internal/engine"
)

// DistributionStats summarizes how shipment footprints spread across a batch.
type DistributionStats struct {
	Count    int     `json:"count"`
	MeanKg   float64 `json:"mean_kg"`
	MedianKg float64 `json:"median_kg"`
	P90Kg    float64 `json:"p90_kg"`
	MinKg    float64 `json:"min_kg"`
	MaxKg    float64 `json:"max_kg"`
	StdDevKg float64 `json:"stddev_kg"`
}

// Distribution computes summary statistics over per-shipment emission totals.
// An empty input yields the zero value.
func Distribution(valuesKg []float64) DistributionStats {
	if len(valuesKg) == 0 {
		return DistributionStats{}
	}

	sorted := make([]float64, len(valuesKg))
	copy(sorted, valuesKg)
	sort.Float64s(sorted)

	stats := DistributionStats{
		Count:    len(sorted),
		MeanKg:   stat.Mean(sorted, nil),
		MedianKg: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P90Kg:    stat.Quantile(0.9, stat.Empirical, sorted, nil),
		MinKg:    sorted[0],
		MaxKg:    sorted[len(sorted)-1],
	}
	// StdDev divides by n-1 and is undefined for a single sample.
	if len(sorted) > 1 {
		stats.StdDevKg = stat.StdDev(sorted, nil)
	}
	return stats
}

// DistributionFromResults computes the footprint distribution of a batch.
func DistributionFromResults(results []engine.ShipmentResult) DistributionStats {
	totals := make([]float64, 0, len(results))
	for _, result := range results {
		totals = append(totals, result.TotalEmissionsKg)
	}
	return Distribution(totals)
}

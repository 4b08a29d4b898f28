package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/rshade/freightfocus/internal/emission"
	"github.com/rshade/freightfocus/internal/logging"
)

// percentMultiplier converts a ratio to a percentage.
const percentMultiplier = 100.0

// CompareRequest asks what a shipment would emit if every leg ran on a
// different mode.
type CompareRequest struct {
	Shipment Shipment

	// AlternativeMode replaces the mode of every leg.
	AlternativeMode emission.Mode

	// AlternativeSubtype optionally pins the vehicle class; empty uses the
	// alternative mode's default.
	AlternativeSubtype string
}

// CompareResult holds a baseline estimate, its what-if counterpart and the
// change between them.
type CompareResult struct {
	Reference string `json:"reference"`

	// BaselineMode is the dominant mode of the original route.
	BaselineMode    emission.Mode `json:"baseline_mode"`
	AlternativeMode emission.Mode `json:"alternative_mode"`

	Baseline    ShipmentResult `json:"baseline"`
	Alternative ShipmentResult `json:"alternative"`

	// DeltaKg is alternative minus baseline: negative means the
	// alternative emits less.
	DeltaKg  float64 `json:"delta_kg"`
	DeltaPct float64 `json:"delta_pct"`
}

// CompareModes estimates a shipment twice: once as given and once with all
// legs switched to the alternative mode, then reports the delta.
func (e *Engine) CompareModes(ctx context.Context, req CompareRequest) (*CompareResult, error) {
	log := logging.FromContext(ctx)
	start := time.Now()

	if !req.AlternativeMode.Supported() {
		return nil, fmt.Errorf("%w: %q", emission.ErrUnsupportedMode, string(req.AlternativeMode))
	}

	log.Debug().
		Ctx(ctx).
		Str("component", "engine").
		Str("operation", "compare_modes").
		Str("reference", req.Shipment.Reference).
		Str("alternative_mode", string(req.AlternativeMode)).
		Msg("starting mode comparison")

	baseline, err := e.EstimateShipment(ctx, req.Shipment)
	if err != nil {
		return nil, err
	}

	// The alternative route keeps origins, destinations and dates; only
	// mode and subtype change.
	alternative := req.Shipment
	alternative.Scenario = "alternative-" + string(req.AlternativeMode)
	alternative.Legs = make([]Leg, len(req.Shipment.Legs))
	copy(alternative.Legs, req.Shipment.Legs)
	for i := range alternative.Legs {
		alternative.Legs[i].Mode = req.AlternativeMode
		alternative.Legs[i].Subtype = req.AlternativeSubtype
	}

	alternativeResult, err := e.EstimateShipment(ctx, alternative)
	if err != nil {
		return nil, err
	}

	deltaKg := alternativeResult.TotalEmissionsKg - baseline.TotalEmissionsKg
	deltaPct := 0.0
	if baseline.TotalEmissionsKg > 0 {
		deltaPct = deltaKg / baseline.TotalEmissionsKg * percentMultiplier
	}

	result := &CompareResult{
		Reference:       req.Shipment.Reference,
		BaselineMode:    DominantMode(req.Shipment.Legs),
		AlternativeMode: req.AlternativeMode,
		Baseline:        baseline,
		Alternative:     alternativeResult,
		DeltaKg:         deltaKg,
		DeltaPct:        deltaPct,
	}

	log.Info().
		Ctx(ctx).
		Str("component", "engine").
		Str("operation", "compare_modes").
		Str("reference", req.Shipment.Reference).
		Float64("baseline_kg", baseline.TotalEmissionsKg).
		Float64("alternative_kg", alternativeResult.TotalEmissionsKg).
		Float64("delta_kg", deltaKg).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("mode comparison complete")

	return result, nil
}

// DominantMode returns the most frequent leg mode, breaking ties by first
// appearance in the route.
func DominantMode(legs []Leg) emission.Mode {
	if len(legs) == 0 {
		return ""
	}
	counts := lo.CountValuesBy(legs, func(leg Leg) emission.Mode { return leg.Mode })

	best := legs[0].Mode
	for _, leg := range legs {
		if counts[leg.Mode] > counts[best] {
			best = leg.Mode
		}
	}
	return best
}

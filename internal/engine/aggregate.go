package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/rshade/freightfocus/internal/emission"
	"github.com/rshade/freightfocus/internal/geo"
	"github.com/rshade/freightfocus/internal/logging"
	"github.com/rshade/freightfocus/internal/resolve"
)

// Default engine tuning.
const (
	// DefaultConnectivityToleranceKM is the widest gap between consecutive
	// legs still considered connected.
	DefaultConnectivityToleranceKM = 50.0

	// DefaultMaxConcurrent bounds concurrent resolution and concurrent
	// shipments in a batch.
	DefaultMaxConcurrent = 4
)

// LocationResolver supplies coordinates for identifiers. Resolutions are
// values; the resolver reports failures inside them rather than erroring.
type LocationResolver interface {
	Resolve(ctx context.Context, identifier string) resolve.Resolution
}

// Config assembles an Engine.
type Config struct {
	Resolver LocationResolver

	// Model is the emission model; nil uses the built-in factors.
	Model *emission.Model

	// ConnectivityToleranceKM: 0 uses the default.
	ConnectivityToleranceKM float64

	// MaxConcurrent: 0 uses the default.
	MaxConcurrent int
}

// Engine estimates shipments. Safe for concurrent use.
type Engine struct {
	resolver      LocationResolver
	model         *emission.Model
	toleranceKM   float64
	maxConcurrent int
}

// New builds an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Resolver == nil {
		return nil, ErrNilResolver
	}
	model := cfg.Model
	if model == nil {
		var err error
		model, err = emission.NewModel(nil, emission.ModelConfig{})
		if err != nil {
			return nil, fmt.Errorf("failed to build default emission model: %w", err)
		}
	}
	tolerance := cfg.ConnectivityToleranceKM
	if tolerance <= 0 {
		tolerance = DefaultConnectivityToleranceKM
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Engine{
		resolver:      cfg.Resolver,
		model:         model,
		toleranceKM:   tolerance,
		maxConcurrent: maxConcurrent,
	}, nil
}

// Model exposes the emission model in use.
func (e *Engine) Model() *emission.Model {
	return e.model
}

// EstimateShipment resolves a shipment's endpoints and aggregates its legs.
//
// Legs that cannot be estimated stay in the breakdown with their reason and
// are excluded from the totals; only a shipment with no legs at all is an
// error. The breakdown always follows route order regardless of how the
// concurrent resolutions complete.
func (e *Engine) EstimateShipment(ctx context.Context, shipment Shipment) (ShipmentResult, error) {
	log := logging.FromContext(ctx)
	start := time.Now()

	if len(shipment.Legs) == 0 {
		return ShipmentResult{}, &EmptyRouteError{Reference: shipment.Reference}
	}

	legs, reordered := normalizeRoute(shipment.Legs)
	resolutions := e.resolveEndpoints(ctx, legs)

	massKg, usedDefaultMass := e.effectiveMass(shipment.CargoMassKg)

	result := ShipmentResult{
		Reference:       shipment.Reference,
		Scenario:        shipment.Scenario,
		Legs:            make([]LegBreakdown, 0, len(legs)),
		CargoMassKg:     massKg,
		UsedDefaultMass: usedDefaultMass,
	}
	if reordered {
		result.Warnings = append(result.Warnings, "legs reordered by departure date")
	}

	estimated := 0
	for i, leg := range legs {
		breakdown := e.estimateLeg(leg, i+1, resolutions, &massKg)
		if breakdown.Status == LegStatusEstimated {
			estimated++
			result.TotalEmissionsKg += breakdown.EmissionsKg
			result.TotalDistanceKM += breakdown.DistanceKM
		}
		result.Legs = append(result.Legs, breakdown)
	}

	disconnections := connectivityWarnings(legs, resolutions, e.toleranceKM)
	result.Warnings = append(result.Warnings, disconnections...)

	// A disconnected route demotes an otherwise complete shipment to partial.
	switch {
	case estimated == len(legs) && len(disconnections) == 0:
		result.Completeness = CompletenessComplete
	case estimated > 0:
		result.Completeness = CompletenessPartial
	default:
		result.Completeness = CompletenessUnresolved
	}

	log.Debug().
		Ctx(ctx).
		Str("component", "engine").
		Str("operation", "estimate_shipment").
		Str("reference", shipment.Reference).
		Int("legs", len(legs)).
		Int("estimated", estimated).
		Str("completeness", string(result.Completeness)).
		Float64("total_emissions_kg", result.TotalEmissionsKg).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("shipment estimated")

	return result, nil
}

// resolveEndpoints resolves every distinct identifier in the route with
// bounded concurrency. The map is keyed by normalized identifier.
func (e *Engine) resolveEndpoints(ctx context.Context, legs []Leg) map[string]resolve.Resolution {
	keys := make([]string, 0, len(legs)*2)
	raw := make(map[string]string, len(legs)*2)
	for _, leg := range legs {
		for _, identifier := range []string{leg.Origin, leg.Destination} {
			key := resolve.NormalizeKey(identifier)
			if _, seen := raw[key]; !seen {
				raw[key] = identifier
				keys = append(keys, key)
			}
		}
	}

	var mu sync.Mutex
	resolutions := make(map[string]resolve.Resolution, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrent)
	for _, key := range keys {
		g.Go(func() error {
			res := e.resolver.Resolve(gctx, raw[key])
			mu.Lock()
			resolutions[key] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return resolutions
}

// estimateLeg turns one leg plus its endpoint resolutions into a breakdown
// row.
func (e *Engine) estimateLeg(leg Leg, sequence int, resolutions map[string]resolve.Resolution, massKg *float64) LegBreakdown {
	breakdown := LegBreakdown{
		Sequence:    sequence,
		Origin:      leg.Origin,
		Destination: leg.Destination,
		Mode:        leg.Mode,
		Subtype:     leg.Subtype,
	}

	origin := resolutions[resolve.NormalizeKey(leg.Origin)]
	destination := resolutions[resolve.NormalizeKey(leg.Destination)]

	if !origin.Resolved() || !destination.Resolved() {
		breakdown.Status = LegStatusUnresolved
		breakdown.Reason = unresolvedReason(origin, destination)
		return breakdown
	}

	breakdown.DistanceKM = geo.RoundKM(geo.Distance(origin.Point, destination.Point))

	estimate, err := e.model.Emit(leg.Mode, leg.Subtype, breakdown.DistanceKM, massKg)
	if err != nil {
		breakdown.Status = LegStatusSkipped
		breakdown.Reason = err.Error()
		return breakdown
	}

	breakdown.Status = LegStatusEstimated
	breakdown.EmissionsKg = estimate.EmissionsKg
	breakdown.FactorKgPerTonneKM = estimate.FactorKgPerTonneKM
	breakdown.Band = estimate.Band
	return breakdown
}

func unresolvedReason(origin, destination resolve.Resolution) string {
	switch {
	case !origin.Resolved() && !destination.Resolved():
		return fmt.Sprintf("origin %q: %s; destination %q: %s",
			origin.Identifier, origin.Failure, destination.Identifier, destination.Failure)
	case !origin.Resolved():
		return fmt.Sprintf("origin %q: %s", origin.Identifier, origin.Failure)
	default:
		return fmt.Sprintf("destination %q: %s", destination.Identifier, destination.Failure)
	}
}

// effectiveMass normalizes a shipment's cargo mass before any leg is
// estimated. A nil or non-positive mass falls back to the model default, so
// every leg and the result header see the same value.
func (e *Engine) effectiveMass(massKg *float64) (float64, bool) {
	if massKg != nil && *massKg > 0 {
		return *massKg, false
	}
	return e.model.DefaultMassKg(), true
}

// EstimateBatch estimates shipments concurrently, preserving input order in
// the results. Shipments that fail outright land in Errors; the batch
// itself only fails on context cancellation.
func (e *Engine) EstimateBatch(ctx context.Context, shipments []Shipment) (*BatchResult, error) {
	log := logging.FromContext(ctx)
	start := time.Now()
	runID := ulid.Make().String()

	log.Info().
		Ctx(ctx).
		Str("component", "engine").
		Str("operation", "estimate_batch").
		Str("run_id", runID).
		Int("shipments", len(shipments)).
		Msg("starting batch estimation")

	type slot struct {
		result ShipmentResult
		err    error
	}
	slots := make([]slot, len(shipments))

	sem := make(chan struct{}, e.maxConcurrent)
	var wg sync.WaitGroup
	for i := range shipments {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result, err := e.EstimateShipment(ctx, shipments[idx])
			slots[idx] = slot{result: result, err: err}
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch estimation interrupted: %w", err)
	}

	batch := &BatchResult{RunID: runID}
	for i, s := range slots {
		if s.err != nil {
			batch.Errors = append(batch.Errors, ErrorDetail{
				Reference: shipments[i].Reference,
				Message:   s.err.Error(),
			})
			continue
		}
		batch.Results = append(batch.Results, s.result)
	}

	log.Info().
		Ctx(ctx).
		Str("component", "engine").
		Str("operation", "estimate_batch").
		Str("run_id", runID).
		Int("succeeded", len(batch.Results)).
		Int("failed", len(batch.Errors)).
		Float64("total_emissions_kg", batch.TotalEmissionsKg()).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("batch estimation complete")

	return batch, nil
}

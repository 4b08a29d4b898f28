package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/freightfocus/internal/emission"
	"github.com/rshade/freightfocus/internal/engine/cache"
	"github.com/rshade/freightfocus/internal/gazetteer"
	"github.com/rshade/freightfocus/internal/geo"
	"github.com/rshade/freightfocus/internal/geocode"
	"github.com/rshade/freightfocus/internal/resolve"
)

// fakeResolver serves fixed coordinates keyed by normalized identifier.
type fakeResolver struct {
	points map[string]geo.Point
	fail   map[string]resolve.FailureReason
	delays map[string]time.Duration

	mu    sync.Mutex
	calls []string
}

func (f *fakeResolver) Resolve(_ context.Context, identifier string) resolve.Resolution {
	key := resolve.NormalizeKey(identifier)

	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()

	if delay, ok := f.delays[key]; ok {
		time.Sleep(delay)
	}
	if reason, ok := f.fail[key]; ok {
		return resolve.Resolution{
			Identifier: identifier,
			Provenance: resolve.ProvenanceUnresolved,
			Failure:    reason,
		}
	}
	if point, ok := f.points[key]; ok {
		return resolve.Resolution{
			Identifier: identifier,
			Code:       key,
			Point:      point,
			Provenance: resolve.ProvenanceCode,
		}
	}
	return resolve.Resolution{
		Identifier: identifier,
		Provenance: resolve.ProvenanceUnresolved,
		Failure:    resolve.FailureNotFound,
	}
}

func knownPoints() map[string]geo.Point {
	return map[string]geo.Point{
		"zrh":   {Lat: 47.458056, Lon: 8.548056},
		"jfk":   {Lat: 40.641311, Lon: -73.778139},
		"sin":   {Lat: 1.364420, Lon: 103.991531},
		"dxb":   {Lat: 25.253174, Lon: 55.365673},
		"icn":   {Lat: 37.460190, Lon: 126.440696},
		"cnsha": {Lat: 31.2304, Lon: 121.4737},
		"nlrtm": {Lat: 51.9470, Lon: 4.1367},
		"krpus": {Lat: 35.1036, Lon: 129.0400},
	}
}

func newTestEngine(t *testing.T, resolver LocationResolver) *Engine {
	t.Helper()
	eng, err := New(Config{Resolver: resolver})
	require.NoError(t, err)
	return eng
}

func massPtr(kg float64) *float64 { return &kg }

func TestNewRequiresResolver(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNilResolver)
}

func TestEstimateShipmentSingleAirLeg(t *testing.T) {
	eng := newTestEngine(t, &fakeResolver{points: knownPoints()})

	result, err := eng.EstimateShipment(context.Background(), Shipment{
		Reference: "A-1001",
		Legs:      []Leg{{Origin: "ZRH", Destination: "JFK", Mode: emission.ModeAir}},
	})
	require.NoError(t, err)

	assert.Equal(t, CompletenessComplete, result.Completeness)
	assert.InDelta(t, 1943.3568, result.TotalEmissionsKg, 1e-6)
	assert.InDelta(t, 6309.6, result.TotalDistanceKM, 1e-9)
	assert.InDelta(t, 400.0, result.CargoMassKg, 1e-9)
	assert.True(t, result.UsedDefaultMass)

	require.Len(t, result.Legs, 1)
	leg := result.Legs[0]
	assert.Equal(t, 1, leg.Sequence)
	assert.Equal(t, LegStatusEstimated, leg.Status)
	assert.Equal(t, "belly_long", leg.Band)
	assert.InDelta(t, 0.77, leg.FactorKgPerTonneKM, 1e-9)
	assert.InDelta(t, 6309.6, leg.DistanceKM, 1e-9)
}

func TestEstimateShipmentSeaLegWithMass(t *testing.T) {
	eng := newTestEngine(t, &fakeResolver{points: knownPoints()})

	result, err := eng.EstimateShipment(context.Background(), Shipment{
		Reference:   "S-2001",
		CargoMassKg: massPtr(12000),
		Legs: []Leg{{
			Origin:      "CNSHA",
			Destination: "NLRTM",
			Mode:        emission.ModeSea,
			Subtype:     "container",
		}},
	})
	require.NoError(t, err)

	assert.InDelta(t, 1609.83, result.TotalEmissionsKg, 1e-6)
	assert.InDelta(t, 12000.0, result.CargoMassKg, 1e-9)
	assert.False(t, result.UsedDefaultMass)
	assert.Equal(t, "container", result.Legs[0].Band)
}

func TestEstimateShipmentNonPositiveMassUsesDefault(t *testing.T) {
	eng := newTestEngine(t, &fakeResolver{points: knownPoints()})

	result, err := eng.EstimateShipment(context.Background(), Shipment{
		Reference:   "A-1010",
		CargoMassKg: massPtr(-750),
		Legs:        []Leg{{Origin: "ZRH", Destination: "JFK", Mode: emission.ModeAir}},
	})
	require.NoError(t, err)

	assert.Equal(t, CompletenessComplete, result.Completeness)
	require.Len(t, result.Legs, 1)
	assert.Equal(t, LegStatusEstimated, result.Legs[0].Status)
	assert.InDelta(t, 400.0, result.CargoMassKg, 1e-9)
	assert.True(t, result.UsedDefaultMass)
	assert.InDelta(t, 1943.3568, result.TotalEmissionsKg, 1e-6)
}

func TestEstimateShipmentZeroDistanceLeg(t *testing.T) {
	eng := newTestEngine(t, &fakeResolver{points: knownPoints()})

	result, err := eng.EstimateShipment(context.Background(), Shipment{
		Reference: "A-1011",
		Legs:      []Leg{{Origin: "ZRH", Destination: "ZRH", Mode: emission.ModeAir}},
	})
	require.NoError(t, err)

	assert.Equal(t, CompletenessComplete, result.Completeness)
	require.Len(t, result.Legs, 1)
	assert.Equal(t, LegStatusEstimated, result.Legs[0].Status)
	assert.Zero(t, result.Legs[0].DistanceKM)
	assert.Zero(t, result.TotalEmissionsKg)
}

func TestEstimateShipmentMultiLegTotalsAndGap(t *testing.T) {
	eng := newTestEngine(t, &fakeResolver{points: knownPoints()})

	// DXB to ICN is far beyond any connectivity tolerance, so the route
	// must still total up but carry a disconnection warning and read as
	// partial.
	result, err := eng.EstimateShipment(context.Background(), Shipment{
		Reference: "A-1002",
		Legs: []Leg{
			{Origin: "SIN", Destination: "DXB", Mode: emission.ModeAir},
			{Origin: "ICN", Destination: "JFK", Mode: emission.ModeAir},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, CompletenessPartial, result.Completeness)
	assert.InDelta(t, 5216.0724, result.TotalEmissionsKg, 1e-6)
	assert.InDelta(t, 16935.3, result.TotalDistanceKM, 1e-9)

	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "disconnected route")
	assert.Contains(t, result.Warnings[0], `"DXB"`)
	assert.Contains(t, result.Warnings[0], `"ICN"`)
}

func TestEstimateShipmentConnectedByCode(t *testing.T) {
	eng := newTestEngine(t, &fakeResolver{points: knownPoints()})

	result, err := eng.EstimateShipment(context.Background(), Shipment{
		Reference: "M-3001",
		Legs: []Leg{
			{Origin: "ZRH", Destination: "JFK", Mode: emission.ModeAir},
			{Origin: "JFK", Destination: "CNSHA", Mode: emission.ModeSea, Subtype: "container"},
		},
	})
	require.NoError(t, err)

	assert.Empty(t, result.Warnings)
	assert.Equal(t, CompletenessComplete, result.Completeness)
	assert.InDelta(t, 2014.581, result.TotalEmissionsKg, 1e-6)
}

func TestEstimateShipmentGapWithinTolerance(t *testing.T) {
	points := knownPoints()
	// A terminal 10 km from the airport still counts as connected.
	points["jfk cargo terminal"] = geo.Point{Lat: 40.731311, Lon: -73.778139}
	eng := newTestEngine(t, &fakeResolver{points: points})

	result, err := eng.EstimateShipment(context.Background(), Shipment{
		Reference: "M-3002",
		Legs: []Leg{
			{Origin: "ZRH", Destination: "JFK", Mode: emission.ModeAir},
			{Origin: "JFK cargo terminal", Destination: "CNSHA", Mode: emission.ModeSea},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
}

func TestEstimateShipmentPartialOnUnresolvedLeg(t *testing.T) {
	eng := newTestEngine(t, &fakeResolver{points: knownPoints()})

	result, err := eng.EstimateShipment(context.Background(), Shipment{
		Reference: "A-1003",
		Legs: []Leg{
			{Origin: "ZRH", Destination: "JFK", Mode: emission.ModeAir},
			{Origin: "JFK", Destination: "unknown place", Mode: emission.ModeAir},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, CompletenessPartial, result.Completeness)
	assert.InDelta(t, 1943.3568, result.TotalEmissionsKg, 1e-6,
		"unresolved legs must not contribute to the total")

	require.Len(t, result.Legs, 2)
	assert.Equal(t, LegStatusUnresolved, result.Legs[1].Status)
	assert.Contains(t, result.Legs[1].Reason, `destination "unknown place": not_found`)
	assert.Zero(t, result.Legs[1].EmissionsKg)
}

func TestEstimateShipmentUnresolved(t *testing.T) {
	eng := newTestEngine(t, &fakeResolver{
		fail: map[string]resolve.FailureReason{
			"aaa": resolve.FailureServiceUnavailable,
			"bbb": resolve.FailureServiceUnavailable,
		},
	})

	result, err := eng.EstimateShipment(context.Background(), Shipment{
		Reference: "A-1004",
		Legs:      []Leg{{Origin: "AAA", Destination: "BBB", Mode: emission.ModeAir}},
	})
	require.NoError(t, err)

	assert.Equal(t, CompletenessUnresolved, result.Completeness)
	assert.Zero(t, result.TotalEmissionsKg)
	assert.Contains(t, result.Legs[0].Reason, "service_unavailable")
}

func TestEstimateShipmentUnsupportedMode(t *testing.T) {
	eng := newTestEngine(t, &fakeResolver{points: knownPoints()})

	result, err := eng.EstimateShipment(context.Background(), Shipment{
		Reference: "M-3003",
		Legs: []Leg{
			{Origin: "ZRH", Destination: "JFK", Mode: emission.ModeAir},
			{Origin: "JFK", Destination: "CNSHA", Mode: emission.Mode("road")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, CompletenessPartial, result.Completeness)
	assert.InDelta(t, 1943.3568, result.TotalEmissionsKg, 1e-6)

	skipped := result.Legs[1]
	assert.Equal(t, LegStatusSkipped, skipped.Status)
	assert.Equal(t, emission.Mode("road"), skipped.Mode)
	assert.Contains(t, skipped.Reason, "unsupported transport mode")
	// The distance is still reported even though no factor applies.
	assert.InDelta(t, 11870.7, skipped.DistanceKM, 1e-9)
	assert.Zero(t, skipped.EmissionsKg)
}

func TestEstimateShipmentEmptyRoute(t *testing.T) {
	eng := newTestEngine(t, &fakeResolver{points: knownPoints()})

	_, err := eng.EstimateShipment(context.Background(), Shipment{Reference: "A-1005"})
	require.Error(t, err)

	var emptyErr *EmptyRouteError
	require.ErrorAs(t, err, &emptyErr)
	assert.Equal(t, "A-1005", emptyErr.Reference)
	assert.Contains(t, err.Error(), "A-1005")
}

func TestEstimateShipmentBreakdownOrderUnderConcurrency(t *testing.T) {
	points := knownPoints()
	// Slow down the early identifiers so concurrent resolution completes
	// out of order; the breakdown must still follow the route.
	eng, err := New(Config{
		Resolver: &fakeResolver{
			points: points,
			delays: map[string]time.Duration{
				"zrh": 30 * time.Millisecond,
				"sin": 20 * time.Millisecond,
			},
		},
		MaxConcurrent: 4,
	})
	require.NoError(t, err)

	result, err := eng.EstimateShipment(context.Background(), Shipment{
		Reference: "A-1006",
		Legs: []Leg{
			{Origin: "ZRH", Destination: "SIN", Mode: emission.ModeAir},
			{Origin: "SIN", Destination: "DXB", Mode: emission.ModeAir},
			{Origin: "DXB", Destination: "ICN", Mode: emission.ModeAir},
			{Origin: "ICN", Destination: "JFK", Mode: emission.ModeAir},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Legs, 4)
	wantOrigins := []string{"ZRH", "SIN", "DXB", "ICN"}
	for i, leg := range result.Legs {
		assert.Equal(t, i+1, leg.Sequence)
		assert.Equal(t, wantOrigins[i], leg.Origin)
	}
}

func TestEstimateShipmentResolvesEachIdentifierOnce(t *testing.T) {
	resolver := &fakeResolver{points: knownPoints()}
	eng := newTestEngine(t, resolver)

	_, err := eng.EstimateShipment(context.Background(), Shipment{
		Reference: "A-1007",
		Legs: []Leg{
			{Origin: "ZRH", Destination: "SIN", Mode: emission.ModeAir},
			{Origin: "SIN", Destination: "JFK", Mode: emission.ModeAir},
		},
	})
	require.NoError(t, err)
	assert.Len(t, resolver.calls, 3, "SIN appears twice in the route but resolves once")
}

func TestEstimateBatch(t *testing.T) {
	eng := newTestEngine(t, &fakeResolver{points: knownPoints()})

	shipments := []Shipment{
		{Reference: "A-1", Legs: []Leg{{Origin: "ZRH", Destination: "JFK", Mode: emission.ModeAir}}},
		{Reference: "A-2"}, // no legs
		{Reference: "S-3", Legs: []Leg{{Origin: "CNSHA", Destination: "KRPUS", Mode: emission.ModeSea}}},
	}

	batch, err := eng.EstimateBatch(context.Background(), shipments)
	require.NoError(t, err)

	assert.Len(t, batch.RunID, 26)

	require.Len(t, batch.Results, 2)
	assert.Equal(t, "A-1", batch.Results[0].Reference)
	assert.Equal(t, "S-3", batch.Results[1].Reference)

	require.True(t, batch.HasErrors())
	require.Len(t, batch.Errors, 1)
	assert.Equal(t, "A-2", batch.Errors[0].Reference)
	assert.Contains(t, batch.ErrorSummary(), "A-2")
}

func TestEstimateBatchPreservesInputOrder(t *testing.T) {
	points := knownPoints()
	resolver := &fakeResolver{
		points: points,
		delays: map[string]time.Duration{"zrh": 25 * time.Millisecond},
	}
	eng, err := New(Config{Resolver: resolver, MaxConcurrent: 3})
	require.NoError(t, err)

	var shipments []Shipment
	routes := [][2]string{{"ZRH", "JFK"}, {"SIN", "DXB"}, {"ICN", "JFK"}, {"ZRH", "SIN"}, {"DXB", "ICN"}}
	for i, route := range routes {
		shipments = append(shipments, Shipment{
			Reference: fmt.Sprintf("A-%d", i),
			Legs:      []Leg{{Origin: route[0], Destination: route[1], Mode: emission.ModeAir}},
		})
	}

	batch, err := eng.EstimateBatch(context.Background(), shipments)
	require.NoError(t, err)

	require.Len(t, batch.Results, len(shipments))
	for i, result := range batch.Results {
		assert.Equal(t, fmt.Sprintf("A-%d", i), result.Reference)
	}
}

func TestEstimateBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := newTestEngine(t, &fakeResolver{points: knownPoints()})

	_, err := eng.EstimateBatch(ctx, []Shipment{
		{Reference: "A-1", Legs: []Leg{{Origin: "ZRH", Destination: "JFK", Mode: emission.ModeAir}}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

// countingGeocoder answers every query with a fixed point.
type countingGeocoder struct {
	mu    sync.Mutex
	calls int
	point geo.Point
}

func (g *countingGeocoder) Geocode(_ context.Context, _ string) (*geocode.Result, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	return &geocode.Result{Point: g.point, DisplayName: "Zürich, Switzerland", Provider: "test"}, nil
}

func TestEstimateShipmentWarmCacheDeterminism(t *testing.T) {
	geocoder := &countingGeocoder{point: geo.Point{Lat: 47.3769, Lon: 8.5417}}
	store, err := cache.New(cache.Options{Enabled: true, TTLSeconds: 600, MaxEntries: 64})
	require.NoError(t, err)

	resolver := resolve.New(resolve.Config{
		Directories: []gazetteer.Directory{gazetteer.NewStaticDirectory()},
		Geocoder:    geocoder,
		Cache:       store,
	})
	eng := newTestEngine(t, resolver)

	shipment := Shipment{
		Reference: "A-9001",
		Legs: []Leg{
			{Origin: "Zurich, Switzerland", Destination: "JFK", Mode: emission.ModeAir},
		},
	}

	cold, err := eng.EstimateShipment(context.Background(), shipment)
	require.NoError(t, err)
	warm, err := eng.EstimateShipment(context.Background(), shipment)
	require.NoError(t, err)

	coldJSON, err := json.Marshal(cold)
	require.NoError(t, err)
	warmJSON, err := json.Marshal(warm)
	require.NoError(t, err)

	assert.Equal(t, string(coldJSON), string(warmJSON),
		"a warm cache must reproduce the cold result byte for byte")
	assert.Equal(t, 1, geocoder.calls, "the warm run must not geocode again")
}

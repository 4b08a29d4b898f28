package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/freightfocus/internal/emission"
	"github.com/rshade/freightfocus/internal/resolve"
)

func TestCompareModesAirToSea(t *testing.T) {
	eng := newTestEngine(t, &fakeResolver{points: knownPoints()})

	result, err := eng.CompareModes(context.Background(), CompareRequest{
		Shipment: Shipment{
			Reference: "A-1001",
			Legs:      []Leg{{Origin: "ZRH", Destination: "JFK", Mode: emission.ModeAir}},
		},
		AlternativeMode: emission.ModeSea,
	})
	require.NoError(t, err)

	assert.Equal(t, "A-1001", result.Reference)
	assert.Equal(t, emission.ModeAir, result.BaselineMode)
	assert.Equal(t, emission.ModeSea, result.AlternativeMode)

	// Same route, sea container factor: 6309.6 km x 0.015 x 0.4 t.
	assert.InDelta(t, 1943.3568, result.Baseline.TotalEmissionsKg, 1e-6)
	assert.InDelta(t, 37.8576, result.Alternative.TotalEmissionsKg, 1e-6)
	assert.InDelta(t, -1905.4992, result.DeltaKg, 1e-6)
	assert.Less(t, result.DeltaPct, -98.0)
	assert.Greater(t, result.DeltaPct, -98.1)

	assert.Equal(t, "alternative-sea", result.Alternative.Scenario)
}

func TestCompareModesKeepsBaselineUntouched(t *testing.T) {
	eng := newTestEngine(t, &fakeResolver{points: knownPoints()})

	shipment := Shipment{
		Reference: "A-1002",
		Legs:      []Leg{{Origin: "ZRH", Destination: "JFK", Mode: emission.ModeAir, Subtype: "freighter"}},
	}

	_, err := eng.CompareModes(context.Background(), CompareRequest{
		Shipment:        shipment,
		AlternativeMode: emission.ModeSea,
	})
	require.NoError(t, err)

	assert.Equal(t, emission.ModeAir, shipment.Legs[0].Mode, "request shipment must not be mutated")
	assert.Equal(t, "freighter", shipment.Legs[0].Subtype)
}

func TestCompareModesWithSubtype(t *testing.T) {
	eng := newTestEngine(t, &fakeResolver{points: knownPoints()})

	result, err := eng.CompareModes(context.Background(), CompareRequest{
		Shipment: Shipment{
			Reference:   "S-2001",
			CargoMassKg: massPtr(12000),
			Legs:        []Leg{{Origin: "CNSHA", Destination: "NLRTM", Mode: emission.ModeSea, Subtype: "container"}},
		},
		AlternativeMode:    emission.ModeSea,
		AlternativeSubtype: "bulk_carrier",
	})
	require.NoError(t, err)

	// bulk_carrier (0.010) versus container (0.015) over the same route.
	assert.InDelta(t, 1609.83, result.Baseline.TotalEmissionsKg, 1e-6)
	assert.InDelta(t, 1073.22, result.Alternative.TotalEmissionsKg, 1e-6)
	assert.InDelta(t, result.Baseline.TotalEmissionsKg*2.0/3.0, result.Alternative.TotalEmissionsKg, 1e-6)
}

func TestCompareModesRejectsUnsupportedAlternative(t *testing.T) {
	eng := newTestEngine(t, &fakeResolver{points: knownPoints()})

	_, err := eng.CompareModes(context.Background(), CompareRequest{
		Shipment: Shipment{
			Reference: "A-1003",
			Legs:      []Leg{{Origin: "ZRH", Destination: "JFK", Mode: emission.ModeAir}},
		},
		AlternativeMode: emission.Mode("road"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, emission.ErrUnsupportedMode)
}

func TestCompareModesEmptyRoute(t *testing.T) {
	eng := newTestEngine(t, &fakeResolver{points: knownPoints()})

	_, err := eng.CompareModes(context.Background(), CompareRequest{
		Shipment:        Shipment{Reference: "A-1004"},
		AlternativeMode: emission.ModeSea,
	})
	require.Error(t, err)

	var emptyErr *EmptyRouteError
	assert.ErrorAs(t, err, &emptyErr)
}

func TestCompareModesZeroBaselineDelta(t *testing.T) {
	eng := newTestEngine(t, &fakeResolver{
		fail: map[string]resolve.FailureReason{
			"zrh": resolve.FailureNotFound,
			"jfk": resolve.FailureNotFound,
		},
	})

	result, err := eng.CompareModes(context.Background(), CompareRequest{
		Shipment: Shipment{
			Reference: "A-1005",
			Legs:      []Leg{{Origin: "ZRH", Destination: "JFK", Mode: emission.ModeAir}},
		},
		AlternativeMode: emission.ModeSea,
	})
	require.NoError(t, err)

	assert.Zero(t, result.Baseline.TotalEmissionsKg)
	assert.Zero(t, result.DeltaKg)
	assert.Zero(t, result.DeltaPct, "an unresolvable baseline must not divide by zero")
}

func TestDominantMode(t *testing.T) {
	tests := []struct {
		name string
		legs []Leg
		want emission.Mode
	}{
		{
			name: "majority wins",
			legs: []Leg{
				{Mode: emission.ModeSea},
				{Mode: emission.ModeAir},
				{Mode: emission.ModeSea},
			},
			want: emission.ModeSea,
		},
		{
			name: "tie goes to first appearance",
			legs: []Leg{
				{Mode: emission.ModeAir},
				{Mode: emission.ModeSea},
			},
			want: emission.ModeAir,
		},
		{
			name: "empty route",
			legs: nil,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DominantMode(tt.legs))
		})
	}
}

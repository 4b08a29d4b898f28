package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/freightfocus/internal/emission"
	"github.com/rshade/freightfocus/internal/engine"
)

func airSeaShipments() []engine.Shipment {
	return []engine.Shipment{
		{
			Reference: "SHP-001",
			Legs: []engine.Leg{
				{Origin: "FRA", Destination: "JFK", Mode: emission.ModeAir},
			},
		},
		{
			Reference: "SHP-002",
			Legs: []engine.Leg{
				{Origin: "DEHAM", Destination: "USNYC", Mode: emission.ModeSea},
			},
		},
		{
			Reference: "SHP-003",
			Legs: []engine.Leg{
				{Origin: "DEHAM", Destination: "NLRTM", Mode: emission.ModeSea},
				{Origin: "AMS", Destination: "JFK", Mode: emission.ModeAir},
			},
		},
	}
}

func TestApplyShipmentFilters_EmptyFiltersPassThrough(t *testing.T) {
	shipments := airSeaShipments()

	result, err := applyShipmentFilters(context.Background(), shipments, shipmentFilters{})
	require.NoError(t, err)
	assert.Len(t, result, 3)
}

func TestApplyShipmentFilters_Mode(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		wantRefs []string
	}{
		{
			name:     "air keeps shipments with any air leg",
			mode:     "air",
			wantRefs: []string{"SHP-001", "SHP-003"},
		},
		{
			name:     "sea keeps shipments with any sea leg",
			mode:     "sea",
			wantRefs: []string{"SHP-002", "SHP-003"},
		},
		{
			name:     "mode aliases are accepted",
			mode:     "ocean",
			wantRefs: []string{"SHP-002", "SHP-003"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := applyShipmentFilters(context.Background(), airSeaShipments(), shipmentFilters{
				Mode: tt.mode,
			})
			require.NoError(t, err)

			refs := make([]string, 0, len(result))
			for _, s := range result {
				refs = append(refs, s.Reference)
			}
			assert.Equal(t, tt.wantRefs, refs)
		})
	}
}

func TestApplyShipmentFilters_InvalidMode(t *testing.T) {
	_, err := applyShipmentFilters(context.Background(), airSeaShipments(), shipmentFilters{
		Mode: "teleport",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --mode filter")
}

func TestApplyShipmentFilters_References(t *testing.T) {
	result, err := applyShipmentFilters(context.Background(), airSeaShipments(), shipmentFilters{
		References: []string{"SHP-001", "SHP-003"},
	})
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "SHP-001", result[0].Reference)
	assert.Equal(t, "SHP-003", result[1].Reference)
}

func TestApplyShipmentFilters_ReferencesIgnoreCase(t *testing.T) {
	result, err := applyShipmentFilters(context.Background(), airSeaShipments(), shipmentFilters{
		References: []string{"shp-002"},
	})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "SHP-002", result[0].Reference)
}

func TestApplyShipmentFilters_BlankReference(t *testing.T) {
	_, err := applyShipmentFilters(context.Background(), airSeaShipments(), shipmentFilters{
		References: []string{"  "},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blank reference")
}

func TestApplyShipmentFilters_ModeAndReferenceCombine(t *testing.T) {
	result, err := applyShipmentFilters(context.Background(), airSeaShipments(), shipmentFilters{
		Mode:       "sea",
		References: []string{"SHP-003"},
	})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "SHP-003", result[0].Reference)
}

func TestApplyShipmentFilters_NoMatchesIsNotAnError(t *testing.T) {
	result, err := applyShipmentFilters(context.Background(), airSeaShipments(), shipmentFilters{
		References: []string{"SHP-999"},
	})
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestShipmentFiltersEmpty(t *testing.T) {
	assert.True(t, shipmentFilters{}.empty())
	assert.False(t, shipmentFilters{Mode: "air"}.empty())
	assert.False(t, shipmentFilters{References: []string{"SHP-001"}}.empty())
}

package carbon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name           string
		input          Quantity
		wantMiles      float64
		wantPhones     float64
		wantIsEmpty    bool
		wantErr        bool
		errType        error
		displayContain string
		compactContain string
	}{
		{
			name:           "150kg reference value",
			input:          Quantity{Value: 150.0, Unit: "kg"},
			wantMiles:      781.25, // 150 / 0.192
			wantPhones:     18248.18,
			displayContain: "driving",
			compactContain: "mi",
		},
		{
			name:        "grams normalized correctly",
			input:       Quantity{Value: 150000.0, Unit: "g"},
			wantMiles:   781.25,
			wantPhones:  18248.18,
		},
		{
			name:        "tonnes normalized correctly",
			input:       Quantity{Value: 0.15, Unit: "t"},
			wantMiles:   781.25,
			wantPhones:  18248.18,
		},
		{
			name:        "below threshold returns empty",
			input:       Quantity{Value: 0.5, Unit: "kg"},
			wantIsEmpty: true,
		},
		{
			name:       "exactly at threshold",
			input:      Quantity{Value: 1.0, Unit: "kg"},
			wantMiles:  5.208333,
			wantPhones: 121.65,
		},
		{
			name:        "zero value returns empty",
			input:       Quantity{Value: 0.0, Unit: "kg"},
			wantIsEmpty: true,
		},
		{
			name:    "negative value returns error",
			input:   Quantity{Value: -100.0, Unit: "kg"},
			wantErr: true,
			errType: ErrNegativeValue,
		},
		{
			name:    "invalid unit returns error",
			input:   Quantity{Value: 100.0, Unit: "stone"},
			wantErr: true,
			errType: ErrInvalidUnit,
		},
		{
			name:       "large value one million kg",
			input:      Quantity{Value: 1000000.0, Unit: "kg"},
			wantMiles:  5208333.33,
			wantPhones: 121654501.22,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Calculate(tt.input)

			if tt.wantErr {
				require.Error(t, err)
				if tt.errType != nil {
					assert.ErrorIs(t, err, tt.errType)
				}
				assert.True(t, got.IsEmpty, "IsEmpty should be true on error")
				return
			}
			require.NoError(t, err)

			if tt.wantIsEmpty {
				assert.True(t, got.IsEmpty, "expected IsEmpty to be true")
				return
			}

			assert.False(t, got.IsEmpty)
			require.Len(t, got.Items, 2, "expected 2 equivalency items")

			milesItem := got.Items[0]
			assert.Equal(t, KindMilesDriven, milesItem.Kind)
			assert.InDelta(t, tt.wantMiles, milesItem.Value, tt.wantMiles*0.01)
			assert.Equal(t, "miles driven", milesItem.Label)

			phonesItem := got.Items[1]
			assert.Equal(t, KindSmartphonesCharged, phonesItem.Kind)
			assert.InDelta(t, tt.wantPhones, phonesItem.Value, tt.wantPhones*0.01)
			assert.Equal(t, "smartphones charged", phonesItem.Label)

			if tt.displayContain != "" {
				assert.Contains(t, got.Display, tt.displayContain)
			}
			if tt.compactContain != "" {
				assert.Contains(t, got.Compact, tt.compactContain)
			}
		})
	}
}

func TestEquivalents_ShipmentScale(t *testing.T) {
	// Typical magnitude for a default-mass long-haul air shipment.
	got := Equivalents(972.0)

	require.False(t, got.IsEmpty)
	assert.InDelta(t, 972.0, got.InputKg, 1e-9)
	assert.Equal(t, "5,063", got.Items[0].Formatted)
	assert.Contains(t, got.Display, "Equivalent to driving ~5,063 miles")
}

func TestEquivalencyKindString(t *testing.T) {
	assert.Equal(t, "MilesDriven", KindMilesDriven.String())
	assert.Equal(t, "SmartphonesCharged", KindSmartphonesCharged.String())
	assert.Equal(t, "TreeSeedlings", KindTreeSeedlings.String())
	assert.Equal(t, "HomeDays", KindHomeDays.String())
	assert.Equal(t, "EquivalencyKind(99)", EquivalencyKind(99).String())
}

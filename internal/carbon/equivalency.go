package carbon

import (
	"fmt"
	"math"
)

// Calculate normalizes a carbon quantity to kilograms and computes EPA-based
// equivalencies expressed as miles driven and smartphones charged.
//
// If normalization fails, Calculate returns an empty Equivalencies
// (IsEmpty = true) and the normalization error. If the normalized value is
// below MinEquivalencyThresholdKg, it returns an empty Equivalencies with
// InputKg set and no error.
func Calculate(q Quantity) (Equivalencies, error) {
	kg, err := NormalizeToKg(q.Value, q.Unit)
	if err != nil {
		return Equivalencies{IsEmpty: true}, err
	}
	return Equivalents(kg), nil
}

// Equivalents computes equivalencies for an emission total already expressed
// in kilograms CO2e, the unit aggregation reports in. Totals below
// MinEquivalencyThresholdKg yield an empty result.
func Equivalents(kg float64) Equivalencies {
	if kg < MinEquivalencyThresholdKg {
		return Equivalencies{InputKg: kg, IsEmpty: true}
	}

	miles := kg / EPAMilesDrivenFactor
	phones := kg / EPASmartphoneChargeFactor
	if math.IsInf(miles, 0) || math.IsNaN(miles) ||
		math.IsInf(phones, 0) || math.IsNaN(phones) {
		return Equivalencies{IsEmpty: true}
	}

	milesFormatted := formatEquivalencyValue(miles)
	phonesFormatted := formatEquivalencyValue(phones)

	items := []Equivalency{
		{
			Kind:      KindMilesDriven,
			Value:     miles,
			Formatted: milesFormatted,
			Label:     "miles driven",
		},
		{
			Kind:      KindSmartphonesCharged,
			Value:     phones,
			Formatted: phonesFormatted,
			Label:     "smartphones charged",
		},
	}

	return Equivalencies{
		InputKg: kg,
		Items:   items,
		Display: fmt.Sprintf("Equivalent to driving ~%s miles or charging ~%s smartphones",
			milesFormatted, phonesFormatted),
		Compact: fmt.Sprintf("(≈ %s mi, %s phones)", milesFormatted, phonesFormatted),
		IsEmpty: false,
	}
}

// formatEquivalencyValue formats an equivalency value for display. Values at
// or above LargeNumberThreshold use compact large-number notation; everything
// else rounds to the nearest integer with thousand separators.
func formatEquivalencyValue(v float64) string {
	if v >= LargeNumberThreshold {
		return FormatLarge(v)
	}
	return FormatNumber(int64(math.Round(v)))
}

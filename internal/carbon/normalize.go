package carbon

import (
	"math"
	"strings"
)

// unitToKg returns the conversion factor to kilograms for the provided unit
// and whether the unit is recognized. Matching is case-insensitive; both bare
// mass units ("kg", "t") and CO2e-suffixed forms ("kgCO2e", "tCO2e") are
// accepted.
func unitToKg(unit string) (float64, bool) {
	switch strings.ToLower(unit) {
	case "g", "gco2e":
		return GramsToKg, true
	case "kg", "kgco2e":
		return KgToKg, true
	case "t", "tco2e":
		return TonnesToKg, true
	case "lb", "lbco2e":
		return PoundsToKg, true
	default:
		return 0, false
	}
}

// NormalizeToKg converts a carbon quantity from the provided unit to
// kilograms. It returns ErrNegativeValue for values below zero,
// ErrInvalidUnit for unrecognized units, and ErrCalculationOverflow when the
// input or the converted result is Inf or NaN.
func NormalizeToKg(value float64, unit string) (float64, error) {
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, ErrCalculationOverflow
	}
	if value < 0 {
		return 0, ErrNegativeValue
	}

	factor, ok := unitToKg(unit)
	if !ok {
		return 0, ErrInvalidUnit
	}

	result := value * factor
	if math.IsInf(result, 0) {
		return 0, ErrCalculationOverflow
	}
	return result, nil
}

// IsRecognizedUnit reports whether the unit string is valid for carbon
// values. It accepts "g", "kg", "t", "lb" and their "CO2e" variants,
// matching case-insensitively.
func IsRecognizedUnit(unit string) bool {
	_, ok := unitToKg(unit)
	return ok
}

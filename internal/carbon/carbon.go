// Package carbon converts shipment emission totals (kg CO2e) into relatable
// real-world equivalencies such as "miles driven" or "smartphones charged"
// using EPA-published conversion factors, and provides locale-aware number
// formatting for emission displays.
package carbon

import "fmt"

// EquivalencyKind identifies a category of carbon equivalency.
type EquivalencyKind int

const (
	// KindMilesDriven converts CO2e to miles driven in an average passenger vehicle.
	KindMilesDriven EquivalencyKind = iota

	// KindSmartphonesCharged converts CO2e to smartphone full charges.
	KindSmartphonesCharged

	// KindTreeSeedlings converts CO2e to tree seedlings grown for 10 years.
	KindTreeSeedlings

	// KindHomeDays converts CO2e to days of average US home electricity use.
	KindHomeDays
)

// String returns a human-readable representation of the EquivalencyKind.
func (k EquivalencyKind) String() string {
	switch k {
	case KindMilesDriven:
		return "MilesDriven"
	case KindSmartphonesCharged:
		return "SmartphonesCharged"
	case KindTreeSeedlings:
		return "TreeSeedlings"
	case KindHomeDays:
		return "HomeDays"
	default:
		return fmt.Sprintf("EquivalencyKind(%d)", k)
	}
}

// Quantity is a carbon amount paired with its unit (e.g. 1500 kgCO2e).
type Quantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Equivalency is a single calculated equivalency.
type Equivalency struct {
	// Kind identifies the equivalency category.
	Kind EquivalencyKind `json:"kind"`

	// Value is the raw calculated equivalency value.
	Value float64 `json:"value"`

	// Formatted is the display-ready string with separators and scaling.
	Formatted string `json:"formatted"`

	// Label is the descriptive phrase (e.g. "miles driven").
	Label string `json:"label"`
}

// Equivalencies contains all equivalency results for one emission total.
type Equivalencies struct {
	// InputKg is the normalized input value in kilograms CO2e.
	InputKg float64 `json:"input_kg"`

	// Items contains calculated equivalencies in display order.
	Items []Equivalency `json:"items"`

	// Display is the full prose format for CLI output.
	// Example: "Equivalent to driving ~781 miles or charging ~18,248 smartphones"
	Display string `json:"display"`

	// Compact is the abbreviated format for constrained outputs.
	// Example: "(≈ 781 mi, 18,248 phones)"
	Compact string `json:"compact"`

	// IsEmpty is true when no equivalencies were calculated.
	IsEmpty bool `json:"is_empty"`
}

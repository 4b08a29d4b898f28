// Package engine assembles shipment routes, resolves their endpoints and
// aggregates per-leg emission estimates into shipment and batch results.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/rshade/freightfocus/internal/emission"
)

// Leg is one transport movement between two location identifiers.
type Leg struct {
	// Origin and Destination are raw identifiers: codes, facility
	// phrases, postal codes or free-text addresses.
	Origin      string `json:"origin"`
	Destination string `json:"destination"`

	// Mode is the transport mode. Unsupported modes survive parsing so
	// the leg can be reported, but they are excluded from totals.
	Mode emission.Mode `json:"mode"`

	// Subtype selects the vehicle class; empty uses the mode default.
	Subtype string `json:"subtype,omitempty"`

	// Carrier identifies the operated service, such as a flight number.
	Carrier string `json:"carrier,omitempty"`

	// Departure is the scheduled departure, when known. Routes with a
	// full set of departures are reordered chronologically.
	Departure *time.Time `json:"departure,omitempty"`
}

// Shipment is one unit of estimation work: a reference and its legs.
type Shipment struct {
	Reference string `json:"reference"`

	// Scenario labels what-if variants of the same reference.
	Scenario string `json:"scenario,omitempty"`

	Legs []Leg `json:"legs"`

	// CargoMassKg overrides the configured default mass when set.
	CargoMassKg *float64 `json:"cargo_mass_kg,omitempty"`

	Notes string `json:"notes,omitempty"`
}

// Completeness states how much of a shipment could be estimated.
type Completeness string

const (
	// CompletenessComplete: every leg produced an estimate.
	CompletenessComplete Completeness = "complete"
	// CompletenessPartial: some legs produced estimates.
	CompletenessPartial Completeness = "partial"
	// CompletenessUnresolved: no leg produced an estimate.
	CompletenessUnresolved Completeness = "unresolved"
)

// LegStatus states the outcome for one leg.
type LegStatus string

const (
	// LegStatusEstimated: the leg contributed to the totals.
	LegStatusEstimated LegStatus = "estimated"
	// LegStatusUnresolved: an endpoint could not be resolved.
	LegStatusUnresolved LegStatus = "unresolved"
	// LegStatusSkipped: endpoints resolved but no estimate was possible,
	// typically an unsupported mode or unknown subtype.
	LegStatusSkipped LegStatus = "skipped"
)

// LegBreakdown is the per-leg detail of a ShipmentResult, in route order.
type LegBreakdown struct {
	// Sequence is the 1-based position after route normalization.
	Sequence int `json:"sequence"`

	Origin      string        `json:"origin"`
	Destination string        `json:"destination"`
	Mode        emission.Mode `json:"mode"`

	// Subtype and Band describe the factor actually applied.
	Subtype string `json:"subtype,omitempty"`
	Band    string `json:"band,omitempty"`

	DistanceKM         float64 `json:"distance_km"`
	EmissionsKg        float64 `json:"emissions_kg"`
	FactorKgPerTonneKM float64 `json:"factor_kg_per_tonne_km,omitempty"`

	Status LegStatus `json:"status"`

	// Reason explains a non-estimated status.
	Reason string `json:"reason,omitempty"`
}

// ShipmentResult is the aggregated estimate for one shipment.
//
// Results carry no clocks, hostnames or other run-varying data: estimating
// the same shipment against a warm cache must produce byte-identical JSON.
type ShipmentResult struct {
	Reference string `json:"reference"`
	Scenario  string `json:"scenario,omitempty"`

	TotalEmissionsKg float64 `json:"total_emissions_kg"`
	TotalDistanceKM  float64 `json:"total_distance_km"`

	CargoMassKg     float64 `json:"cargo_mass_kg"`
	UsedDefaultMass bool    `json:"used_default_mass,omitempty"`

	Completeness Completeness `json:"completeness"`

	Legs []LegBreakdown `json:"legs"`

	Warnings []string `json:"warnings,omitempty"`
}

// EstimatedLegs counts legs that contributed to the totals.
func (r ShipmentResult) EstimatedLegs() int {
	count := 0
	for _, leg := range r.Legs {
		if leg.Status == LegStatusEstimated {
			count++
		}
	}
	return count
}

// ErrorDetail records a shipment that failed outright.
type ErrorDetail struct {
	Reference string `json:"reference"`
	Message   string `json:"message"`
}

// errorSummaryLimit caps how many failures ErrorSummary spells out.
const errorSummaryLimit = 5

// BatchResult is the outcome of estimating a batch of shipments. Results
// keep input order; shipments that failed outright appear in Errors
// instead.
type BatchResult struct {
	// RunID identifies this batch run for logs and published records.
	RunID string `json:"run_id"`

	Results []ShipmentResult `json:"results"`

	Errors []ErrorDetail `json:"errors,omitempty"`
}

// HasErrors reports whether any shipment failed outright.
func (b *BatchResult) HasErrors() bool {
	return len(b.Errors) > 0
}

// ErrorSummary renders the failures as one line, truncated after five.
func (b *BatchResult) ErrorSummary() string {
	if len(b.Errors) == 0 {
		return ""
	}
	parts := make([]string, 0, errorSummaryLimit+1)
	for i, detail := range b.Errors {
		if i == errorSummaryLimit {
			parts = append(parts, fmt.Sprintf("... and %d more", len(b.Errors)-errorSummaryLimit))
			break
		}
		parts = append(parts, fmt.Sprintf("%s: %s", detail.Reference, detail.Message))
	}
	return strings.Join(parts, "; ")
}

// TotalEmissionsKg sums the estimated emissions across all results.
func (b *BatchResult) TotalEmissionsKg() float64 {
	total := 0.0
	for _, result := range b.Results {
		total += result.TotalEmissionsKg
	}
	return total
}

// Package emission computes leg-level CO2e from distance, cargo mass and a
// banded emission factor dataset. Factors are configuration: the model never
// hard-codes an intensity, it only selects from the dataset it was built
// with.
package emission

import (
	"fmt"
	"strings"
)

// Mode is a freight transport mode. The engine supports exactly air and sea;
// any other value fails estimation with ErrUnsupportedMode.
type Mode string

const (
	// ModeAir is air freight.
	ModeAir Mode = "air"
	// ModeSea is ocean freight.
	ModeSea Mode = "sea"
)

// Supported reports whether m is one of the supported transport modes.
func (m Mode) Supported() bool {
	return m == ModeAir || m == ModeSea
}

func (m Mode) String() string { return string(m) }

// ParseMode normalizes a raw mode string. It accepts case variations and the
// common aliases "ocean" and "flight"; anything else returns
// ErrUnsupportedMode with the offending value.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "air", "flight":
		return ModeAir, nil
	case "sea", "ocean":
		return ModeSea, nil
	default:
		return Mode(s), fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
	}
}

// DefaultCargoMassKg is the cargo mass applied when a shipment carries none.
// Overridable via the emissions.default_cargo_mass_kg config key.
const DefaultCargoMassKg = 400.0

// DefaultAirShortHaulMaxKM is the distance at or below which air legs use
// short-haul factors. Overridable via emissions.air_short_haul_max_km.
const DefaultAirShortHaulMaxKM = 1500.0

// Estimate is the outcome of estimating one leg.
type Estimate struct {
	// EmissionsKg is the estimated CO2e in kilograms.
	EmissionsKg float64 `json:"emissions_kg"`

	// FactorKgPerTonneKM is the intensity that was applied.
	FactorKgPerTonneKM float64 `json:"factor_kg_per_tonne_km"`

	// Band names the factor band that was selected, e.g. "belly_long" or
	// "container".
	Band string `json:"band"`

	// CargoMassKg is the mass the estimate used.
	CargoMassKg float64 `json:"cargo_mass_kg"`

	// UsedDefaultMass is true when the configured default mass was applied
	// because the shipment carried none.
	UsedDefaultMass bool `json:"used_default_mass"`
}

// ModelConfig carries the tunables the model reads from configuration.
type ModelConfig struct {
	// DefaultCargoMassKg substitutes for shipments without a cargo mass.
	DefaultCargoMassKg float64
	// AirShortHaulMaxKM is the short/long-haul band boundary for air legs.
	AirShortHaulMaxKM float64
}

// Model estimates emissions against a validated factor dataset.
type Model struct {
	factors        *FactorSet
	defaultMassKg  float64
	shortHaulMaxKM float64
}

// NewModel builds a Model over the given factor set. Zero config fields fall
// back to the package defaults.
func NewModel(factors *FactorSet, cfg ModelConfig) (*Model, error) {
	if factors == nil {
		factors = DefaultFactorSet()
	}
	if err := factors.Validate(); err != nil {
		return nil, err
	}
	if cfg.DefaultCargoMassKg <= 0 {
		cfg.DefaultCargoMassKg = DefaultCargoMassKg
	}
	if cfg.AirShortHaulMaxKM <= 0 {
		cfg.AirShortHaulMaxKM = DefaultAirShortHaulMaxKM
	}
	return &Model{
		factors:        factors,
		defaultMassKg:  cfg.DefaultCargoMassKg,
		shortHaulMaxKM: cfg.AirShortHaulMaxKM,
	}, nil
}

// Factors returns the dataset the model estimates against.
func (m *Model) Factors() *FactorSet { return m.factors }

// DefaultMassKg returns the cargo mass applied to shipments without one.
func (m *Model) DefaultMassKg() float64 { return m.defaultMassKg }

// ShortHaulMaxKM returns the air short/long-haul band boundary.
func (m *Model) ShortHaulMaxKM() float64 { return m.shortHaulMaxKM }

// Emit estimates CO2e for one leg:
//
//	emissions_kg = distance_km × factor_kg_per_tonne_km × mass_tonnes
//
// where mass_tonnes is cargoMassKg/1000, or the configured default mass when
// cargoMassKg is nil. Subtype selects a factor band within the mode; an empty
// subtype uses the mode's default. Air bands additionally split on the
// short-haul distance boundary.
func (m *Model) Emit(mode Mode, subtype string, distanceKM float64, cargoMassKg *float64) (Estimate, error) {
	if !mode.Supported() {
		return Estimate{}, fmt.Errorf("%w: %q", ErrUnsupportedMode, string(mode))
	}
	if distanceKM < 0 {
		return Estimate{}, fmt.Errorf("%w: %v", ErrNegativeDistance, distanceKM)
	}

	massKg := m.defaultMassKg
	usedDefault := true
	if cargoMassKg != nil {
		if *cargoMassKg < 0 {
			return Estimate{}, fmt.Errorf("%w: %v", ErrNegativeMass, *cargoMassKg)
		}
		massKg = *cargoMassKg
		usedDefault = false
	}

	factor, band, err := m.factors.FactorFor(mode, subtype, distanceKM, m.shortHaulMaxKM)
	if err != nil {
		return Estimate{}, err
	}

	return Estimate{
		EmissionsKg:        distanceKM * factor * (massKg / 1000.0),
		FactorKgPerTonneKM: factor,
		Band:               band,
		CargoMassKg:        massKg,
		UsedDefaultMass:    usedDefault,
	}, nil
}

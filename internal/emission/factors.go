package emission

import (
	"fmt"
	"os"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// SupportedSchemaRange is the factor dataset schema range this binary
// understands. Datasets outside it fail validation with ErrSchemaVersion.
const SupportedSchemaRange = ">= 1.0.0, < 2.0.0"

// Subtype holds the intensity rates for one vehicle subtype, in kg CO2e per
// tonne-km. A subtype is either flat (KgPerTonneKM) or distance-banded
// (ShortHaul + LongHaul); the banded form is how air factors distinguish
// short-haul from long-haul flights.
type Subtype struct {
	KgPerTonneKM float64 `yaml:"kg_per_tonne_km,omitempty" json:"kg_per_tonne_km,omitempty"`
	ShortHaul    float64 `yaml:"short_haul,omitempty" json:"short_haul,omitempty"`
	LongHaul     float64 `yaml:"long_haul,omitempty" json:"long_haul,omitempty"`
}

// banded reports whether the subtype uses distance bands.
func (s Subtype) banded() bool {
	return s.ShortHaul != 0 || s.LongHaul != 0
}

// ModeFactors holds the subtype table for one transport mode.
type ModeFactors struct {
	// Default names the subtype applied when a shipment does not pin one.
	Default string `yaml:"default" json:"default"`

	Subtypes map[string]Subtype `yaml:"subtypes" json:"subtypes"`
}

// FactorSet is a versioned emission factor dataset. Read-only after load.
type FactorSet struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`
	Source  string `yaml:"source,omitempty" json:"source,omitempty"`

	// Modes is keyed by mode name. Datasets may carry modes beyond the
	// supported set (e.g. road); estimation never selects them but loading
	// keeps them so datasets round-trip unchanged.
	Modes map[string]ModeFactors `yaml:"modes" json:"modes"`
}

// LoadFactorSet reads and validates a YAML factor dataset from path.
func LoadFactorSet(path string) (*FactorSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading factor set %s: %w", path, err)
	}
	var fs FactorSet
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return nil, fmt.Errorf("parsing factor set %s: %w", path, err)
	}
	if err := fs.Validate(); err != nil {
		return nil, fmt.Errorf("factor set %s: %w", path, err)
	}
	return &fs, nil
}

// Validate checks the dataset for structural problems, aggregating every
// finding so a bad dataset is reported in one pass.
func (fs *FactorSet) Validate() error {
	var result *multierror.Error

	if fs.Name == "" {
		result = multierror.Append(result, fmt.Errorf("%w: name is required", ErrInvalidFactorSet))
	}
	if err := fs.validateVersion(); err != nil {
		result = multierror.Append(result, err)
	}
	if len(fs.Modes) == 0 {
		result = multierror.Append(result, fmt.Errorf("%w: no modes defined", ErrInvalidFactorSet))
	}

	for _, modeName := range sortedModeNames(fs.Modes) {
		mf := fs.Modes[modeName]
		if len(mf.Subtypes) == 0 {
			result = multierror.Append(result,
				fmt.Errorf("%w: mode %q has no subtypes", ErrInvalidFactorSet, modeName))
			continue
		}
		if mf.Default == "" {
			result = multierror.Append(result,
				fmt.Errorf("%w: mode %q has no default subtype", ErrInvalidFactorSet, modeName))
		} else if _, ok := mf.Subtypes[mf.Default]; !ok {
			result = multierror.Append(result,
				fmt.Errorf("%w: mode %q default subtype %q not defined", ErrInvalidFactorSet, modeName, mf.Default))
		}
		for name, st := range mf.Subtypes {
			if err := validateSubtype(modeName, name, st); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}

	return result.ErrorOrNil()
}

func (fs *FactorSet) validateVersion() error {
	if fs.Version == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidFactorSet)
	}
	v, err := semver.NewVersion(fs.Version)
	if err != nil {
		return fmt.Errorf("%w: version %q is not valid semver: %v", ErrInvalidFactorSet, fs.Version, err)
	}
	constraint, err := semver.NewConstraint(SupportedSchemaRange)
	if err != nil {
		return fmt.Errorf("parsing schema constraint: %w", err)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("%w: %s is outside %s", ErrSchemaVersion, fs.Version, SupportedSchemaRange)
	}
	return nil
}

func validateSubtype(mode, name string, st Subtype) error {
	if st.banded() {
		if st.KgPerTonneKM != 0 {
			return fmt.Errorf("%w: %s/%s mixes flat and banded rates", ErrInvalidFactorSet, mode, name)
		}
		if st.ShortHaul <= 0 || st.LongHaul <= 0 {
			return fmt.Errorf("%w: %s/%s banded rates must both be positive", ErrInvalidFactorSet, mode, name)
		}
		return nil
	}
	if st.KgPerTonneKM <= 0 {
		return fmt.Errorf("%w: %s/%s rate must be positive", ErrInvalidFactorSet, mode, name)
	}
	return nil
}

// FactorFor selects the intensity for a mode/subtype/distance combination.
// An empty subtype selects the mode's default. Banded subtypes pick the
// short-haul rate at or below shortHaulMaxKM and the long-haul rate above it.
// The returned band name is the subtype, suffixed _short/_long for banded
// subtypes.
func (fs *FactorSet) FactorFor(mode Mode, subtype string, distanceKM, shortHaulMaxKM float64) (float64, string, error) {
	mf, ok := fs.Modes[string(mode)]
	if !ok {
		return 0, "", fmt.Errorf("%w: %s", ErrNoFactor, mode)
	}
	if subtype == "" {
		subtype = mf.Default
	}
	st, ok := mf.Subtypes[subtype]
	if !ok {
		return 0, "", fmt.Errorf("%w: %s/%s", ErrUnknownSubtype, mode, subtype)
	}
	if !st.banded() {
		return st.KgPerTonneKM, subtype, nil
	}
	if distanceKM <= shortHaulMaxKM {
		return st.ShortHaul, subtype + "_short", nil
	}
	return st.LongHaul, subtype + "_long", nil
}

// Subtypes returns the subtype names defined for a mode, sorted.
func (fs *FactorSet) Subtypes(mode Mode) []string {
	mf, ok := fs.Modes[string(mode)]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(mf.Subtypes))
	for name := range mf.Subtypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedModeNames(modes map[string]ModeFactors) []string {
	names := make([]string, 0, len(modes))
	for name := range modes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

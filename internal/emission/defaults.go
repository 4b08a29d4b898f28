package emission

// DefaultFactorSet returns the factor dataset shipped with the binary.
// Rates are kg CO2e per tonne-km. The road mode is carried for dataset
// compatibility; estimation only ever selects air and sea.
func DefaultFactorSet() *FactorSet {
	return &FactorSet{
		Name:    "freightfocus-default",
		Version: "1.0.0",
		Source:  "built-in",
		Modes: map[string]ModeFactors{
			"air": {
				Default: "belly",
				Subtypes: map[string]Subtype{
					"belly":     {ShortHaul: 0.98, LongHaul: 0.77},
					"freighter": {ShortHaul: 1.20, LongHaul: 0.50},
				},
			},
			"sea": {
				Default: "container",
				Subtypes: map[string]Subtype{
					"container":     {KgPerTonneKM: 0.015},
					"bulk_carrier":  {KgPerTonneKM: 0.010},
					"tanker":        {KgPerTonneKM: 0.012},
					"general_cargo": {KgPerTonneKM: 0.020},
				},
			},
			"road": {
				Default: "heavy_avg",
				Subtypes: map[string]Subtype{
					"heavy_full": {KgPerTonneKM: 0.05},
					"heavy_avg":  {KgPerTonneKM: 0.08},
					"medium":     {KgPerTonneKM: 0.20},
					"light":      {KgPerTonneKM: 0.40},
				},
			},
		},
	}
}

package engine

import (
	"fmt"
	"sort"

	"github.com/rshade/freightfocus/internal/geo"
	"github.com/rshade/freightfocus/internal/resolve"
)

// normalizeRoute returns the legs in travel order. When every leg carries a
// departure date the legs are stably sorted ascending; records often list
// legs in document order rather than travel order. With any date missing
// the input order stands, since a partial set of dates cannot establish a
// total order. The reorder is idempotent: sorting a sorted route changes
// nothing.
func normalizeRoute(legs []Leg) ([]Leg, bool) {
	ordered := make([]Leg, len(legs))
	copy(ordered, legs)

	for _, leg := range ordered {
		if leg.Departure == nil {
			return ordered, false
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Departure.Before(*ordered[j].Departure)
	})

	for i := range ordered {
		if ordered[i].Origin != legs[i].Origin ||
			ordered[i].Destination != legs[i].Destination ||
			!ordered[i].Departure.Equal(*legs[i].Departure) {
			return ordered, true
		}
	}
	return ordered, false
}

// connectivityWarnings flags gaps between consecutive legs. Legs connect
// when the arrival and the next departure are the same identifier, or when
// both resolve and sit within toleranceKM of each other. Unresolved
// endpoints are skipped: they are already reported through the leg status.
func connectivityWarnings(legs []Leg, resolutions map[string]resolve.Resolution, toleranceKM float64) []string {
	var warnings []string
	for i := 1; i < len(legs); i++ {
		arrival := legs[i-1].Destination
		departure := legs[i].Origin

		arrivalKey := resolve.NormalizeKey(arrival)
		departureKey := resolve.NormalizeKey(departure)
		if arrivalKey == departureKey {
			continue
		}

		from, fromOK := resolutions[arrivalKey]
		to, toOK := resolutions[departureKey]
		if !fromOK || !toOK || !from.Resolved() || !to.Resolved() {
			continue
		}

		// Identifiers can differ while naming the same facility, such as
		// a UN/LOCODE on one leg and its IATA tail on the next.
		if from.Code != "" && from.Code == to.Code {
			continue
		}

		gapKM := geo.RoundKM(geo.Distance(from.Point, to.Point))
		if gapKM >= toleranceKM {
			warnings = append(warnings, fmt.Sprintf(
				"disconnected route: leg %d arrives at %q but leg %d departs from %q, %.1f km away",
				i, arrival, i+1, departure, gapKM))
		}
	}
	return warnings
}

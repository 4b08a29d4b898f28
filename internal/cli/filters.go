package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/rshade/freightfocus/internal/emission"
	"github.com/rshade/freightfocus/internal/engine"
	"github.com/rshade/freightfocus/internal/logging"
)

// shipmentFilters narrows the shipments a command operates on.
type shipmentFilters struct {
	// Mode keeps shipments with at least one leg of this transport mode.
	Mode string

	// References keeps shipments whose reference matches one of these,
	// case-insensitively.
	References []string
}

func (f shipmentFilters) empty() bool {
	return f.Mode == "" && len(f.References) == 0
}

// applyShipmentFilters validates and applies the filters to a shipment set.
//
// The function performs two passes:
//  1. Validation: all filters are validated upfront. If any filter is
//     invalid, an error is returned without applying any filters.
//  2. Application: valid filters are applied sequentially, reducing the
//     shipment set.
//
// Empty filters return the original shipments unchanged. A warning is
// logged if the filtered result is empty.
func applyShipmentFilters(
	ctx context.Context,
	shipments []engine.Shipment,
	filters shipmentFilters,
) ([]engine.Shipment, error) {
	log := logging.FromContext(ctx)

	if filters.empty() {
		return shipments, nil
	}

	// Validate all filters upfront
	var mode emission.Mode
	if filters.Mode != "" {
		parsed, err := emission.ParseMode(filters.Mode)
		if err != nil {
			log.Warn().Ctx(ctx).
				Str("component", "cli").
				Str("operation", "apply_filters").
				Str("mode", filters.Mode).
				Err(err).
				Msg("invalid mode filter")
			return nil, fmt.Errorf("invalid --mode filter: %w", err)
		}
		mode = parsed
	}
	for _, ref := range filters.References {
		if strings.TrimSpace(ref) == "" {
			return nil, fmt.Errorf("invalid --reference filter: blank reference")
		}
	}

	// Apply filters sequentially
	result := shipments
	if mode != "" {
		before := len(result)
		result = filterByMode(result, mode)
		log.Debug().Ctx(ctx).
			Str("component", "cli").
			Str("operation", "apply_filters").
			Str("mode", string(mode)).
			Int("before", before).
			Int("after", len(result)).
			Msg("applied mode filter")
	}
	if len(filters.References) > 0 {
		before := len(result)
		result = filterByReference(result, filters.References)
		log.Debug().Ctx(ctx).
			Str("component", "cli").
			Str("operation", "apply_filters").
			Strs("references", filters.References).
			Int("before", before).
			Int("after", len(result)).
			Msg("applied reference filter")
	}

	if len(result) == 0 && len(shipments) > 0 {
		log.Warn().Ctx(ctx).
			Str("component", "cli").
			Str("operation", "apply_filters").
			Int("original_count", len(shipments)).
			Msg("no shipments match filter criteria")
	}

	return result, nil
}

// filterByMode keeps shipments that move at least one leg on the mode.
func filterByMode(shipments []engine.Shipment, mode emission.Mode) []engine.Shipment {
	filtered := make([]engine.Shipment, 0, len(shipments))
	for _, shipment := range shipments {
		for _, leg := range shipment.Legs {
			if leg.Mode == mode {
				filtered = append(filtered, shipment)
				break
			}
		}
	}
	return filtered
}

// filterByReference keeps shipments whose reference matches any of the
// wanted references, ignoring case.
func filterByReference(shipments []engine.Shipment, references []string) []engine.Shipment {
	wanted := make(map[string]bool, len(references))
	for _, ref := range references {
		wanted[strings.ToLower(strings.TrimSpace(ref))] = true
	}

	filtered := make([]engine.Shipment, 0, len(shipments))
	for _, shipment := range shipments {
		if wanted[strings.ToLower(shipment.Reference)] {
			filtered = append(filtered, shipment)
		}
	}
	return filtered
}

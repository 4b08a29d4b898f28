package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rshade/freightfocus/internal/emission"
	"github.com/rshade/freightfocus/internal/engine"
	"github.com/rshade/freightfocus/internal/logging"
)

// departureLayouts are the date formats the extraction stage is known to
// emit: ISO date, US-style M/D/YYYY (with or without zero padding) and full
// RFC 3339 timestamps.
var departureLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	time.RFC3339,
}

// MalformedRecordError reports a shipment record that cannot be assembled
// into a route. It is fatal for that record only; the rest of the batch
// proceeds.
type MalformedRecordError struct {
	Reference string
	Detail    string
}

func (e *MalformedRecordError) Error() string {
	if e.Reference == "" {
		return fmt.Sprintf("malformed shipment record: %s", e.Detail)
	}
	return fmt.Sprintf("malformed shipment record %s: %s", e.Reference, e.Detail)
}

// MappingIssue pairs a record that could not be mapped with the error that
// rejected it, so callers can report it alongside the batch results.
type MappingIssue struct {
	Reference string
	Err       error
}

// MapRecord converts a single shipment record into an engine shipment.
// Segments become legs in record order; a record without segments falls back
// to a single leg from its top-level origin to its destination. A segment
// with a blank endpoint, or a record with neither segments nor an
// origin/destination pair, is rejected with a MalformedRecordError.
func MapRecord(record ShipmentRecord) (engine.Shipment, error) {
	reference := strings.TrimSpace(record.Reference)
	if reference == "" {
		return engine.Shipment{}, &MalformedRecordError{Detail: "record has no reference"}
	}

	mode := recordMode(record)
	legs, err := buildLegs(reference, record, mode)
	if err != nil {
		return engine.Shipment{}, err
	}

	scenario := strings.TrimSpace(record.Scenario)
	if scenario == "" {
		scenario = "baseline"
	}

	return engine.Shipment{
		Reference:   reference,
		Scenario:    scenario,
		Legs:        legs,
		CargoMassKg: record.CargoMassKg,
		Notes:       strings.TrimSpace(record.Notes),
	}, nil
}

// MapRecords converts shipment records into engine shipments, collecting a
// MappingIssue for every record that fails instead of aborting the batch.
func MapRecords(ctx context.Context, records []ShipmentRecord) ([]engine.Shipment, []MappingIssue) {
	log := logging.FromContext(ctx)

	shipments := make([]engine.Shipment, 0, len(records))
	var issues []MappingIssue
	for _, record := range records {
		shipment, err := MapRecord(record)
		if err != nil {
			issues = append(issues, MappingIssue{
				Reference: strings.TrimSpace(record.Reference),
				Err:       err,
			})
			continue
		}
		shipments = append(shipments, shipment)
	}

	log.Debug().
		Ctx(ctx).
		Str("component", "ingest").
		Str("operation", "map_records").
		Int("record_count", len(records)).
		Int("mapped_shipments", len(shipments)).
		Int("rejected_records", len(issues)).
		Msg("mapped shipment records")

	return shipments, issues
}

// buildLegs assembles the legs for one record.
func buildLegs(reference string, record ShipmentRecord, mode emission.Mode) ([]engine.Leg, error) {
	if len(record.Segments) == 0 {
		origin := strings.TrimSpace(record.Origin)
		destination := strings.TrimSpace(record.Destination)
		if origin == "" || destination == "" {
			return nil, &MalformedRecordError{
				Reference: reference,
				Detail:    "record has no segments and no origin/destination pair",
			}
		}
		return []engine.Leg{{
			Origin:      origin,
			Destination: destination,
			Mode:        mode,
		}}, nil
	}

	legs := make([]engine.Leg, 0, len(record.Segments))
	for i, segment := range record.Segments {
		from := strings.TrimSpace(segment.From)
		to := strings.TrimSpace(segment.To)
		switch {
		case from == "" && to == "":
			return nil, &MalformedRecordError{
				Reference: reference,
				Detail:    fmt.Sprintf("segment %d has no endpoints", i+1),
			}
		case from == "":
			return nil, &MalformedRecordError{
				Reference: reference,
				Detail:    fmt.Sprintf("segment %d is missing its origin", i+1),
			}
		case to == "":
			return nil, &MalformedRecordError{
				Reference: reference,
				Detail:    fmt.Sprintf("segment %d is missing its destination", i+1),
			}
		}
		legs = append(legs, engine.Leg{
			Origin:      from,
			Destination: to,
			Mode:        mode,
			Carrier:     strings.TrimSpace(segment.FlightNumber),
			Departure:   parseDeparture(segment.FlightDate),
		})
	}
	return legs, nil
}

// recordMode picks the transport mode for a record. An explicit mode wins
// even when it names something the emission model does not support; the
// engine reports such legs as skipped rather than ingest rejecting them.
// Absent a mode, the reference prefix decides: A for air manifests, S for
// sea manifests, anything else defaults to air.
func recordMode(record ShipmentRecord) emission.Mode {
	if raw := strings.TrimSpace(record.Mode); raw != "" {
		mode, _ := emission.ParseMode(raw)
		return mode
	}

	reference := strings.TrimSpace(record.Reference)
	if reference != "" {
		switch reference[0] {
		case 'A', 'a':
			return emission.ModeAir
		case 'S', 's':
			return emission.ModeSea
		}
	}
	return emission.ModeAir
}

// parseDeparture parses a flight date string. Blank or unparseable dates
// yield an undated leg; the record is still usable without them.
func parseDeparture(raw string) *time.Time {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}
	for _, layout := range departureLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

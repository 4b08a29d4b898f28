// Package ingest loads structured shipment records produced by the upstream
// manifest-extraction stage and maps them onto engine shipments. Record files
// arrive either as a JSON array, as an extractor document with a top-level
// "records" field, or as NDJSON with one record per line; the format is
// detected from the payload itself.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"github.com/rshade/freightfocus/internal/logging"
)

const (
	// maxRecordLineBytes bounds a single NDJSON line. Shipment records are
	// small; a line past this size is a sign of a concatenated payload.
	maxRecordLineBytes = 1 << 20
)

// Segment is one transport hop inside a shipment record. From and To carry
// whatever identifier the extractor recovered: an IATA code, a UN/LOCODE, a
// postal code or a free-text address.
type Segment struct {
	From         string `json:"from"`
	To           string `json:"to"`
	FlightDate   string `json:"flight_date,omitempty"`
	FlightNumber string `json:"flight_number,omitempty"`
}

// ShipmentRecord is the structured form of one manifest row as emitted by the
// extraction stage. Origin and Destination describe the overall journey and
// back a single-leg route when no segments were recovered.
type ShipmentRecord struct {
	Reference   string    `json:"reference"`
	Scenario    string    `json:"scenario,omitempty"`
	Mode        string    `json:"mode,omitempty"`
	Origin      string    `json:"origin,omitempty"`
	Destination string    `json:"destination,omitempty"`
	Segments    []Segment `json:"segments,omitempty"`
	CargoMassKg *float64  `json:"cargo_mass_kg,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

// recordsDocument is the extractor's envelope: records plus counters and
// warnings we do not consume.
type recordsDocument struct {
	Records []ShipmentRecord `json:"records"`
}

// ParseRecords parses shipment records from raw bytes.
func ParseRecords(data []byte) ([]ShipmentRecord, error) {
	return ParseRecordsWithContext(context.Background(), data)
}

// ParseRecordsWithContext parses shipment records from raw bytes, detecting
// the container format from the first JSON token. A leading '[' reads as a
// JSON array; a leading '{' reads as an extractor document when the whole
// payload is one object carrying a "records" field, and as NDJSON otherwise.
func ParseRecordsWithContext(ctx context.Context, data []byte) ([]ShipmentRecord, error) {
	log := logging.FromContext(ctx)
	log.Debug().
		Ctx(ctx).
		Str("component", "ingest").
		Str("operation", "parse_records").
		Int("data_size_bytes", len(data)).
		Msg("parsing shipment records from bytes")

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("parsing shipment records: empty input")
	}

	var (
		records []ShipmentRecord
		format  string
		err     error
	)
	switch trimmed[0] {
	case '[':
		format = "array"
		if uerr := json.Unmarshal(trimmed, &records); uerr != nil {
			err = fmt.Errorf("parsing shipment records JSON: %w", uerr)
		}
	case '{':
		var doc recordsDocument
		if uerr := json.Unmarshal(trimmed, &doc); uerr == nil && doc.Records != nil {
			format = "document"
			records = doc.Records
		} else {
			format = "ndjson"
			records, err = parseRecordLines(trimmed)
		}
	default:
		err = fmt.Errorf("parsing shipment records: input is not JSON (starts with %q)", trimmed[0])
	}
	if err != nil {
		log.Error().
			Ctx(ctx).
			Str("component", "ingest").
			Str("operation", "parse_records").
			Err(err).
			Msg("failed to parse shipment records")
		return nil, err
	}

	log.Debug().
		Ctx(ctx).
		Str("component", "ingest").
		Str("format", format).
		Int("record_count", len(records)).
		Msg("shipment records parsed successfully")

	return records, nil
}

// parseRecordLines decodes one shipment record per non-blank line.
func parseRecordLines(data []byte) ([]ShipmentRecord, error) {
	var records []ShipmentRecord
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var record ShipmentRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("parsing shipment record on line %d: %w", lineNo, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning shipment records: %w", err)
	}
	return records, nil
}

// LoadRecords loads and parses a shipment record file from the specified path.
func LoadRecords(path string) ([]ShipmentRecord, error) {
	return LoadRecordsWithContext(context.Background(), path)
}

// LoadRecordsWithContext loads and parses the shipment record file at the
// given path using the logger carried in ctx.
func LoadRecordsWithContext(ctx context.Context, path string) ([]ShipmentRecord, error) {
	log := logging.FromContext(ctx)
	log.Debug().
		Ctx(ctx).
		Str("component", "ingest").
		Str("operation", "load_records").
		Str("shipments_path", path).
		Msg("loading shipment records")

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error().
			Ctx(ctx).
			Str("component", "ingest").
			Err(err).
			Str("shipments_path", path).
			Msg("failed to read shipment file")
		return nil, fmt.Errorf("reading shipment file: %w", err)
	}

	log.Debug().
		Ctx(ctx).
		Str("component", "ingest").
		Int("file_size_bytes", len(data)).
		Msg("shipment file read successfully")

	return ParseRecordsWithContext(ctx, data)
}

package gazetteer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rshade/freightfocus/internal/geo"
)

// csvHeader is the required column order for location import files.
var csvHeader = []string{"code", "name", "kind", "lat", "lon"}

// ParseLocationsCSV reads a locations file. The first row must be the
// header code,name,kind,lat,lon; every data row is validated before any
// database work starts, so a bad file fails fast and imports nothing.
func ParseLocationsCSV(path string) ([]Location, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gazetteer: failed to open locations file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("gazetteer: failed to read CSV header: %w", err)
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	var locations []Location
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("gazetteer: failed to read CSV line %d: %w", line, err)
		}
		loc, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("gazetteer: invalid record on line %d: %w", line, err)
		}
		locations = append(locations, loc)
	}
	return locations, nil
}

func validateHeader(header []string) error {
	if len(header) != len(csvHeader) {
		return fmt.Errorf("gazetteer: expected %d columns, got %d", len(csvHeader), len(header))
	}
	for i, name := range csvHeader {
		if strings.ToLower(strings.TrimSpace(header[i])) != name {
			return fmt.Errorf("gazetteer: expected column %d to be %q, got %q", i+1, name, header[i])
		}
	}
	return nil
}

func parseRecord(record []string) (Location, error) {
	if len(record) != len(csvHeader) {
		return Location{}, fmt.Errorf("expected %d fields, got %d", len(csvHeader), len(record))
	}

	code := strings.ToUpper(strings.TrimSpace(record[0]))
	if code == "" {
		return Location{}, fmt.Errorf("code is empty")
	}

	name := strings.TrimSpace(record[1])
	if name == "" {
		return Location{}, fmt.Errorf("name is empty for code %q", code)
	}

	kind := Kind(strings.ToLower(strings.TrimSpace(record[2])))
	if kind != KindAirport && kind != KindSeaport {
		return Location{}, fmt.Errorf("unknown kind %q for code %q", record[2], code)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(record[3]), 64)
	if err != nil {
		return Location{}, fmt.Errorf("invalid latitude for code %q: %w", code, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(record[4]), 64)
	if err != nil {
		return Location{}, fmt.Errorf("invalid longitude for code %q: %w", code, err)
	}

	point := geo.Point{Lat: lat, Lon: lon}
	if err := point.Validate(); err != nil {
		return Location{}, fmt.Errorf("code %q: %w", code, err)
	}

	return Location{Code: code, Name: name, Kind: kind, Point: point}, nil
}

// ImportLocations upserts entries into the locations table. Existing rows
// for the imported codes are replaced inside one transaction, so a partial
// import never leaves the table half-updated.
func ImportLocations(ctx context.Context, db *pgxpool.Pool, locations []Location) (int64, error) {
	if len(locations) == 0 {
		return 0, nil
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("gazetteer: failed to begin import transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	codes := make([]string, len(locations))
	rows := make([][]any, len(locations))
	for i, loc := range locations {
		codes[i] = loc.Code
		rows[i] = []any{loc.Code, loc.Name, string(loc.Kind), loc.Point.Lat, loc.Point.Lon}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM locations WHERE code = ANY($1)`, codes); err != nil {
		return 0, fmt.Errorf("gazetteer: failed to clear existing codes: %w", err)
	}

	copied, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"locations"},
		[]string{"code", "name", "kind", "lat", "lon"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("gazetteer: failed to copy locations: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("gazetteer: failed to commit import: %w", err)
	}
	return copied, nil
}

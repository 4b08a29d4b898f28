package gazetteer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDirectory serves code lookups from the locations table. It is
// meant for full UN/LOCODE and IATA data sets imported via ImportLocations;
// the static directory stays the first stop for hot codes.
type PostgresDirectory struct {
	db *pgxpool.Pool
}

// NewPostgresDirectory wraps an existing connection pool. The caller owns
// the pool lifecycle.
func NewPostgresDirectory(db *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// Connect opens a pool for the given DSN and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("gazetteer: failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("gazetteer: failed to ping database: %w", err)
	}
	return pool, nil
}

// LookupCode fetches the entry for code, matching case-insensitively.
func (d *PostgresDirectory) LookupCode(ctx context.Context, code string) (*Location, error) {
	query := `
		SELECT code, name, kind, lat, lon
		FROM locations
		WHERE code = $1`

	var loc Location
	err := d.db.QueryRow(ctx, query, strings.ToUpper(strings.TrimSpace(code))).Scan(
		&loc.Code,
		&loc.Name,
		&loc.Kind,
		&loc.Point.Lat,
		&loc.Point.Lon,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrCodeNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("gazetteer: failed to query code %q: %w", code, err)
	}
	return &loc, nil
}

// ListByKind returns every entry of one kind ordered by code, for the
// locations import verification and for diagnostics.
func (d *PostgresDirectory) ListByKind(ctx context.Context, kind Kind) ([]Location, error) {
	query := `
		SELECT code, name, kind, lat, lon
		FROM locations
		WHERE kind = $1
		ORDER BY code`

	rows, err := d.db.Query(ctx, query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("gazetteer: failed to list %s entries: %w", kind, err)
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		var loc Location
		if err := rows.Scan(&loc.Code, &loc.Name, &loc.Kind, &loc.Point.Lat, &loc.Point.Lon); err != nil {
			return nil, fmt.Errorf("gazetteer: failed to scan entry: %w", err)
		}
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("gazetteer: failed to iterate entries: %w", err)
	}
	return locations, nil
}

// Count reports the number of stored entries.
func (d *PostgresDirectory) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := d.db.QueryRow(ctx, `SELECT COUNT(*) FROM locations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("gazetteer: failed to count entries: %w", err)
	}
	return count, nil
}

// Package gazetteer provides code directories: lookups from IATA and
// UN/LOCODE facility codes to named, typed coordinates. The static directory
// covers the common trade-lane codes with no network or database dependency;
// the Postgres directory serves large code sets.
package gazetteer

import (
	"context"
	"errors"

	"github.com/rshade/freightfocus/internal/geo"
)

// Kind classifies a gazetteer entry.
type Kind string

const (
	// KindAirport marks an IATA airport entry.
	KindAirport Kind = "airport"
	// KindSeaport marks a UN/LOCODE seaport entry.
	KindSeaport Kind = "seaport"
)

// ErrCodeNotFound indicates the directory has no entry for a code.
var ErrCodeNotFound = errors.New("code not found in gazetteer")

// Location is one gazetteer entry.
type Location struct {
	// Code is the canonical identifier: 3-letter IATA for airports,
	// 5-char UN/LOCODE for seaports.
	Code string `json:"code"`

	Name string `json:"name"`

	Kind Kind `json:"kind"`

	Point geo.Point `json:"point"`
}

// Directory answers code lookups. Implementations must be safe for
// concurrent use and return ErrCodeNotFound for unknown codes.
type Directory interface {
	LookupCode(ctx context.Context, code string) (*Location, error)
}

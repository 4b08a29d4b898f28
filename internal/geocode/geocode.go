// Package geocode turns free-text place descriptions into coordinates.
//
// The package exposes a small Client interface so the resolver does not
// care whether answers come from a live provider, a provider chain, or a
// recorded fixture. Providers distinguish an authoritative empty answer
// (ErrNoMatch) from a failure to answer at all (ErrUnavailable); the
// resolver retries only the latter.
package geocode

import (
	"context"

	"github.com/rshade/freightfocus/internal/geo"
)

type constError string

func (e constError) Error() string { return string(e) }

const (
	// ErrNoMatch means the provider answered and found nothing. Retrying
	// will not help.
	ErrNoMatch = constError("no geocoding match")

	// ErrUnavailable means the provider could not be reached or refused
	// to answer. The same query may succeed later.
	ErrUnavailable = constError("geocoding service unavailable")
)

// Result is one geocoded place.
type Result struct {
	Point geo.Point `json:"point"`

	// DisplayName is the provider's human-readable label for the match.
	DisplayName string `json:"display_name,omitempty"`

	// Provider names the client that produced the answer.
	Provider string `json:"provider"`
}

// Client geocodes one query. Implementations must be safe for concurrent
// use and honor context cancellation.
type Client interface {
	Geocode(ctx context.Context, query string) (*Result, error)
}

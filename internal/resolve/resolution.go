// Package resolve turns shipment location identifiers into coordinates.
//
// An identifier may be an IATA airport code, a UN/LOCODE seaport code, a
// facility phrase like "CNSHA seaport", a bare postal code, or free-text
// address. The resolver classifies the identifier by shape and walks a
// ladder: result cache, code directories, then the geocoder. Outcomes are
// values, never panics; a failed lookup is a Resolution with its Failure
// reason set, so batch callers always get something to report.
package resolve

import (
	"strings"

	"github.com/rshade/freightfocus/internal/gazetteer"
	"github.com/rshade/freightfocus/internal/geo"
)

// Provenance says how a resolution was produced.
type Provenance string

const (
	// ProvenanceCode means a code directory answered.
	ProvenanceCode Provenance = "resolved-from-code"
	// ProvenanceText means the geocoder answered.
	ProvenanceText Provenance = "resolved-from-text"
	// ProvenanceCached means a prior answer was served from the cache.
	ProvenanceCached Provenance = "cached"
	// ProvenanceUnresolved marks a failed resolution.
	ProvenanceUnresolved Provenance = "unresolved"
)

// FailureReason classifies why a resolution failed.
type FailureReason string

const (
	// FailureNotFound: every source answered and none knows the place.
	FailureNotFound FailureReason = "not_found"
	// FailureServiceUnavailable: a source could not answer; retrying later
	// may succeed.
	FailureServiceUnavailable FailureReason = "service_unavailable"
	// FailureAmbiguous: the identifier cannot be classified at all.
	FailureAmbiguous FailureReason = "ambiguous"
)

// Resolution is the outcome of resolving one identifier.
type Resolution struct {
	// Identifier is the input as given.
	Identifier string `json:"identifier"`

	// Code is the canonical code when a directory answered.
	Code string `json:"code,omitempty"`

	// Name is the resolved place name, when a source provides one.
	Name string `json:"name,omitempty"`

	Kind gazetteer.Kind `json:"kind,omitempty"`

	Point geo.Point `json:"point"`

	Provenance Provenance `json:"provenance"`

	// Failure is empty on success.
	Failure FailureReason `json:"failure,omitempty"`

	// Detail carries the underlying failure message for diagnostics.
	Detail string `json:"detail,omitempty"`
}

// Resolved reports whether the lookup produced coordinates.
func (r Resolution) Resolved() bool {
	return r.Failure == ""
}

// NormalizeKey canonicalizes an identifier for caching and coalescing:
// whitespace collapsed, case folded.
func NormalizeKey(identifier string) string {
	return strings.ToLower(strings.Join(strings.Fields(identifier), " "))
}

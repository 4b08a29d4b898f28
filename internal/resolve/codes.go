package resolve

import (
	"regexp"
	"strings"

	"github.com/rshade/freightfocus/internal/gazetteer"
)

// Identifier classification. Codes are recognized by shape alone; whether
// a code actually exists is the directory's call.
var (
	iataPattern     = regexp.MustCompile(`^[A-Z]{3}$`)
	unLocodePattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{3}$`)
	sgPostalPattern = regexp.MustCompile(`^[0-9]{6}$`)
	usZipPattern    = regexp.MustCompile(`^[0-9]{5}(-[0-9]{4})?$`)
	facilityPattern = regexp.MustCompile(`(?i)^([A-Za-z0-9]{3,5})\s+(airport|seaport|port)$`)
)

// singleCase reports whether s uses one letter case throughout. Mixed-case
// tokens like "Paris" read as place names, not codes.
func singleCase(s string) bool {
	return s == strings.ToUpper(s) || s == strings.ToLower(s)
}

// IsIATACode reports whether s has the shape of a 3-letter IATA airport
// code.
func IsIATACode(s string) bool {
	return singleCase(s) && iataPattern.MatchString(strings.ToUpper(s))
}

// IsUNLocode reports whether s has the shape of a 5-character UN/LOCODE:
// a 2-letter country followed by a 3-character location.
func IsUNLocode(s string) bool {
	return singleCase(s) && unLocodePattern.MatchString(strings.ToUpper(s))
}

// UNLocodeTail returns the 3-character location part of a UN/LOCODE. Many
// entries reuse the IATA code of the nearby airport, so the tail is worth
// a directory lookup of its own.
func UNLocodeTail(code string) string {
	if len(code) != 5 {
		return ""
	}
	return strings.ToUpper(code[2:])
}

// PostalQuery rewrites a bare postal code into a geocodable query with a
// country hint. Six digits is the Singapore format, five (with optional
// plus-four) a US ZIP.
func PostalQuery(s string) (string, bool) {
	switch {
	case sgPostalPattern.MatchString(s):
		return s + ", Singapore", true
	case usZipPattern.MatchString(s):
		return s + ", USA", true
	default:
		return "", false
	}
}

// ParseFacilityPhrase recognizes "<CODE> airport" and "<CODE> seaport"
// forms ("port" counts as seaport) and returns the code and expected kind.
func ParseFacilityPhrase(s string) (string, gazetteer.Kind, bool) {
	m := facilityPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", "", false
	}
	code := strings.ToUpper(m[1])
	if strings.EqualFold(m[2], "airport") {
		return code, gazetteer.KindAirport, true
	}
	return code, gazetteer.KindSeaport, true
}

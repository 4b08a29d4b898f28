package gazetteer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rshade/freightfocus/internal/geo"
)

// StaticDirectory is an in-memory code directory seeded with the airports
// and seaports that dominate the shipment corpus. It answers without I/O,
// so the resolver consults it before any database or geocoder.
type StaticDirectory struct {
	entries map[string]Location
}

// NewStaticDirectory builds the built-in directory.
func NewStaticDirectory() *StaticDirectory {
	d := &StaticDirectory{entries: make(map[string]Location, len(builtinLocations))}
	for _, loc := range builtinLocations {
		d.entries[loc.Code] = loc
	}
	return d
}

// LookupCode returns the entry for code, matching case-insensitively.
func (d *StaticDirectory) LookupCode(_ context.Context, code string) (*Location, error) {
	loc, ok := d.entries[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCodeNotFound, code)
	}
	return &loc, nil
}

// Len reports how many codes the directory carries.
func (d *StaticDirectory) Len() int {
	return len(d.entries)
}

// Codes returns every known code, unordered.
func (d *StaticDirectory) Codes() []string {
	codes := make([]string, 0, len(d.entries))
	for code := range d.entries {
		codes = append(codes, code)
	}
	return codes
}

// builtinLocations carries the high-traffic airports and container ports.
// Coordinates are facility coordinates, not city centroids: JFK is the
// airport itself, NLRTM the Maasvlakte harbor mouth.
var builtinLocations = []Location{
	{Code: "ZRH", Name: "Zurich Airport", Kind: KindAirport, Point: geo.Point{Lat: 47.458056, Lon: 8.548056}},
	{Code: "JFK", Name: "John F. Kennedy International Airport", Kind: KindAirport, Point: geo.Point{Lat: 40.641311, Lon: -73.778139}},
	{Code: "SIN", Name: "Singapore Changi Airport", Kind: KindAirport, Point: geo.Point{Lat: 1.364420, Lon: 103.991531}},
	{Code: "DXB", Name: "Dubai International Airport", Kind: KindAirport, Point: geo.Point{Lat: 25.253174, Lon: 55.365673}},
	{Code: "ICN", Name: "Incheon International Airport", Kind: KindAirport, Point: geo.Point{Lat: 37.460190, Lon: 126.440696}},

	{Code: "CNSHA", Name: "Port of Shanghai", Kind: KindSeaport, Point: geo.Point{Lat: 31.2304, Lon: 121.4737}},
	{Code: "CNZOS", Name: "Port of Zhoushan", Kind: KindSeaport, Point: geo.Point{Lat: 30.0440, Lon: 122.1391}},
	{Code: "CNSZX", Name: "Port of Shenzhen", Kind: KindSeaport, Point: geo.Point{Lat: 22.5350, Lon: 113.9400}},
	{Code: "CNTAO", Name: "Port of Qingdao", Kind: KindSeaport, Point: geo.Point{Lat: 36.0831, Lon: 120.3859}},
	{Code: "CNCAN", Name: "Port of Guangzhou", Kind: KindSeaport, Point: geo.Point{Lat: 23.1096, Lon: 113.3246}},
	{Code: "CNTSN", Name: "Port of Tianjin", Kind: KindSeaport, Point: geo.Point{Lat: 39.0860, Lon: 117.2179}},
	{Code: "KRPUS", Name: "Port of Busan", Kind: KindSeaport, Point: geo.Point{Lat: 35.1036, Lon: 129.0400}},
	{Code: "HKHKG", Name: "Port of Hong Kong", Kind: KindSeaport, Point: geo.Point{Lat: 22.3080, Lon: 114.2000}},
	{Code: "NLRTM", Name: "Port of Rotterdam", Kind: KindSeaport, Point: geo.Point{Lat: 51.9470, Lon: 4.1367}},
	{Code: "PHMNS", Name: "Manila South Harbor", Kind: KindSeaport, Point: geo.Point{Lat: 14.5833, Lon: 120.9667}},
	{Code: "PKKHI", Name: "Port of Karachi", Kind: KindSeaport, Point: geo.Point{Lat: 24.8100, Lon: 66.9700}},
}

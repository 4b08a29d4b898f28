package gazetteer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticDirectoryLookupCode(t *testing.T) {
	dir := NewStaticDirectory()
	ctx := context.Background()

	tests := []struct {
		name     string
		code     string
		wantName string
		wantKind Kind
		wantLat  float64
		wantLon  float64
	}{
		{
			name:     "IATA airport",
			code:     "ZRH",
			wantName: "Zurich Airport",
			wantKind: KindAirport,
			wantLat:  47.458056,
			wantLon:  8.548056,
		},
		{
			name:     "UN/LOCODE seaport",
			code:     "CNSHA",
			wantName: "Port of Shanghai",
			wantKind: KindSeaport,
			wantLat:  31.2304,
			wantLon:  121.4737,
		},
		{
			name:     "lowercase input",
			code:     "jfk",
			wantName: "John F. Kennedy International Airport",
			wantKind: KindAirport,
			wantLat:  40.641311,
			wantLon:  -73.778139,
		},
		{
			name:     "surrounding whitespace",
			code:     "  nlrtm ",
			wantName: "Port of Rotterdam",
			wantKind: KindSeaport,
			wantLat:  51.9470,
			wantLon:  4.1367,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := dir.LookupCode(ctx, tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, loc.Name)
			assert.Equal(t, tt.wantKind, loc.Kind)
			assert.InDelta(t, tt.wantLat, loc.Point.Lat, 1e-9)
			assert.InDelta(t, tt.wantLon, loc.Point.Lon, 1e-9)
		})
	}
}

func TestStaticDirectoryUnknownCode(t *testing.T) {
	dir := NewStaticDirectory()

	_, err := dir.LookupCode(context.Background(), "XXX")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestStaticDirectoryCoverage(t *testing.T) {
	dir := NewStaticDirectory()

	// The built-in set must keep the heavy trade-lane codes available
	// without a database.
	for _, code := range []string{"ZRH", "JFK", "SIN", "DXB", "ICN", "CNSHA", "KRPUS", "NLRTM", "HKHKG", "PKKHI"} {
		_, err := dir.LookupCode(context.Background(), code)
		assert.NoError(t, err, "expected built-in entry for %s", code)
	}
	assert.Equal(t, 16, dir.Len())
	assert.Len(t, dir.Codes(), dir.Len())
}

func TestStaticDirectoryValidCoordinates(t *testing.T) {
	dir := NewStaticDirectory()

	for _, code := range dir.Codes() {
		loc, err := dir.LookupCode(context.Background(), code)
		require.NoError(t, err)
		assert.NoError(t, loc.Point.Validate(), "entry %s has invalid coordinates", code)
	}
}

func TestParseLocationsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.csv")
	content := `code,name,kind,lat,lon
zrh,Zurich Airport,airport,47.458056,8.548056
CNSHA,Port of Shanghai,seaport,31.2304,121.4737
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	locations, err := ParseLocationsCSV(path)
	require.NoError(t, err)
	require.Len(t, locations, 2)

	assert.Equal(t, "ZRH", locations[0].Code)
	assert.Equal(t, KindAirport, locations[0].Kind)
	assert.Equal(t, "CNSHA", locations[1].Code)
	assert.InDelta(t, 121.4737, locations[1].Point.Lon, 1e-9)
}

func TestParseLocationsCSVRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "wrong header",
			content: "code,name,lat,lon,kind\nZRH,Zurich Airport,47.4,8.5,airport\n",
			wantErr: "expected column",
		},
		{
			name:    "unknown kind",
			content: "code,name,kind,lat,lon\nZRH,Zurich Airport,heliport,47.4,8.5\n",
			wantErr: "unknown kind",
		},
		{
			name:    "latitude out of range",
			content: "code,name,kind,lat,lon\nZRH,Zurich Airport,airport,147.4,8.5\n",
			wantErr: "latitude",
		},
		{
			name:    "missing name",
			content: "code,name,kind,lat,lon\nZRH,,airport,47.4,8.5\n",
			wantErr: "name is empty",
		},
		{
			name:    "non-numeric longitude",
			content: "code,name,kind,lat,lon\nZRH,Zurich Airport,airport,47.4,east\n",
			wantErr: "invalid longitude",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "locations.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := ParseLocationsCSV(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseLocationsCSVMissingFile(t *testing.T) {
	_, err := ParseLocationsCSV(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open")
}

package geocode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
)

// ReplayClient serves geocoding answers from a recorded fixture instead of
// the network. Tests and offline runs use it to keep results deterministic.
type ReplayClient struct {
	fixtures map[string]Result
}

// NewReplayClient loads a fixture file written by a Recorder.
func NewReplayClient(path string) (*ReplayClient, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("geocode: failed to read replay fixture: %w", err)
	}
	var fixtures map[string]Result
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("geocode: failed to parse replay fixture: %w", err)
	}
	return NewReplayClientFromMap(fixtures), nil
}

// NewReplayClientFromMap builds a replay client from in-memory fixtures.
// Keys are matched after trimming and case-folding.
func NewReplayClientFromMap(fixtures map[string]Result) *ReplayClient {
	normalized := make(map[string]Result, len(fixtures))
	for query, result := range fixtures {
		normalized[replayKey(query)] = result
	}
	return &ReplayClient{fixtures: normalized}
}

// Geocode answers from the fixture map. Unknown queries are authoritative
// misses, never unavailability: a replay run must not trigger retries.
func (c *ReplayClient) Geocode(_ context.Context, query string) (*Result, error) {
	result, ok := c.fixtures[replayKey(query)]
	if !ok {
		return nil, fmt.Errorf("%w: %q not in replay fixture", ErrNoMatch, query)
	}
	return &result, nil
}

// Len reports the number of recorded queries.
func (c *ReplayClient) Len() int {
	return len(c.fixtures)
}

func replayKey(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

// Recorder wraps a live client and captures every successful answer so it
// can be saved as a replay fixture.
type Recorder struct {
	client Client

	mu       sync.Mutex
	captured map[string]Result
}

// NewRecorder wraps client.
func NewRecorder(client Client) *Recorder {
	return &Recorder{client: client, captured: make(map[string]Result)}
}

// Geocode delegates to the wrapped client and records successes.
func (r *Recorder) Geocode(ctx context.Context, query string) (*Result, error) {
	result, err := r.client.Geocode(ctx, query)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.captured[replayKey(query)] = *result
	r.mu.Unlock()
	return result, nil
}

// Save writes the captured fixtures to path, creating parent directories
// as needed.
func (r *Recorder) Save(path string) error {
	r.mu.Lock()
	captured := make(map[string]Result, len(r.captured))
	for k, v := range r.captured {
		captured[k] = v
	}
	r.mu.Unlock()

	data, err := json.MarshalIndent(captured, "", "  ")
	if err != nil {
		return fmt.Errorf("geocode: failed to marshal fixtures: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("geocode: failed to create fixture directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("geocode: failed to write fixture: %w", err)
	}
	return nil
}

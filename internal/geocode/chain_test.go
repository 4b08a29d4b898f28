package geocode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/freightfocus/internal/geo"
)

type stubClient struct {
	result *Result
	err    error
	calls  int
}

func (s *stubClient) Geocode(_ context.Context, _ string) (*Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func TestChainFirstProviderWins(t *testing.T) {
	first := &stubClient{result: &Result{Point: geo.Point{Lat: 1, Lon: 2}, Provider: "first"}}
	second := &stubClient{result: &Result{Point: geo.Point{Lat: 3, Lon: 4}, Provider: "second"}}

	chain := NewChain().Append("first", first).Append("second", second)

	result, err := chain.Geocode(context.Background(), "Zurich")
	require.NoError(t, err)
	assert.Equal(t, "first", result.Provider)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls, "second provider should not be consulted")
}

func TestChainFallsBackOnMiss(t *testing.T) {
	first := &stubClient{err: ErrNoMatch}
	second := &stubClient{result: &Result{Point: geo.Point{Lat: 3, Lon: 4}, Provider: "second"}}

	chain := NewChain().Append("first", first).Append("second", second)

	result, err := chain.Geocode(context.Background(), "Zurich")
	require.NoError(t, err)
	assert.Equal(t, "second", result.Provider)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestChainAllMissesIsNoMatch(t *testing.T) {
	chain := NewChain().
		Append("first", &stubClient{err: ErrNoMatch}).
		Append("second", &stubClient{err: ErrNoMatch})

	_, err := chain.Geocode(context.Background(), "Nowhereville")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestChainOutageIsUnavailable(t *testing.T) {
	// One provider down and one authoritative miss: the place may still
	// exist, so the chain must report unavailability, not a miss.
	chain := NewChain().
		Append("first", &stubClient{err: ErrUnavailable}).
		Append("second", &stubClient{err: ErrNoMatch})

	_, err := chain.Geocode(context.Background(), "Zurich")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrNoMatch)
}

func TestChainEmpty(t *testing.T) {
	_, err := NewChain().Geocode(context.Background(), "Zurich")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestChainStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	second := &stubClient{result: &Result{Provider: "second"}}
	chain := NewChain().
		Append("first", &stubClient{err: ErrUnavailable}).
		Append("second", second)

	_, err := chain.Geocode(ctx, "Zurich")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 0, second.calls, "chain should not continue after cancellation")
}

package geocode

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/rshade/freightfocus/internal/logging"
)

// Chain tries providers in priority order and returns the first answer.
type Chain struct {
	clients []namedClient
}

type namedClient struct {
	name   string
	client Client
}

// NewChain builds an empty chain. Add providers with Append in priority
// order.
func NewChain() *Chain {
	return &Chain{}
}

// Append adds a provider to the end of the chain.
func (c *Chain) Append(name string, client Client) *Chain {
	c.clients = append(c.clients, namedClient{name: name, client: client})
	return c
}

// Len reports the number of providers.
func (c *Chain) Len() int {
	return len(c.clients)
}

// Geocode walks the chain until a provider answers. A provider that finds
// nothing does not stop the walk: a later provider may carry the place.
// When every provider fails, the error is ErrNoMatch only if all of them
// answered authoritatively; any outage makes the whole chain unavailable,
// so the caller knows a retry could still succeed.
func (c *Chain) Geocode(ctx context.Context, query string) (*Result, error) {
	if len(c.clients) == 0 {
		return nil, fmt.Errorf("%w: no geocoding providers configured", ErrUnavailable)
	}

	var errs *multierror.Error
	allNoMatch := true
	for _, nc := range c.clients {
		result, err := nc.client.Geocode(ctx, query)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, ErrNoMatch) {
			allNoMatch = false
		}
		logging.FromContext(ctx).Debug().
			Str("component", "geocode").
			Str("operation", "chain_fallback").
			Str("provider", nc.name).
			Str("query", query).
			Err(err).
			Msg("provider failed, trying next")
		errs = multierror.Append(errs, fmt.Errorf("%s: %w", nc.name, err))

		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
		}
	}

	// Provider detail is flattened with %v so callers classify the
	// outcome through the outer sentinel alone.
	if allNoMatch {
		return nil, fmt.Errorf("%w: %q: %v", ErrNoMatch, query, errs.ErrorOrNil())
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, errs.ErrorOrNil())
}

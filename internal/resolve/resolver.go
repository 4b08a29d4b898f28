package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/rshade/freightfocus/internal/engine/cache"
	"github.com/rshade/freightfocus/internal/gazetteer"
	"github.com/rshade/freightfocus/internal/geocode"
	"github.com/rshade/freightfocus/internal/logging"
)

const (
	// DefaultMaxRetries bounds repeat attempts after a geocoder outage.
	DefaultMaxRetries = 2
	// DefaultRetryBackoff is the first retry delay; later attempts double it.
	DefaultRetryBackoff = 250 * time.Millisecond
	// DefaultGeocodeTimeout bounds one geocoding attempt end to end.
	DefaultGeocodeTimeout = 10 * time.Second
)

// Config assembles a Resolver.
type Config struct {
	// Directories are consulted in order for code lookups. The static
	// directory usually comes first.
	Directories []gazetteer.Directory

	// Geocoder answers free-text queries. Nil disables text resolution;
	// identifiers that need it fail as service_unavailable.
	Geocoder geocode.Client

	// Cache is optional. Successful resolutions are stored under the
	// normalized identifier; failures are never cached.
	Cache *cache.Store

	// MaxRetries: 0 means the default, negative disables retries.
	MaxRetries     int
	RetryBackoff   time.Duration
	GeocodeTimeout time.Duration
}

// Resolver resolves identifiers to coordinates. Safe for concurrent use.
type Resolver struct {
	directories    []gazetteer.Directory
	geocoder       geocode.Client
	cache          *cache.Store
	maxRetries     int
	retryBackoff   time.Duration
	geocodeTimeout time.Duration
}

// New builds a Resolver, filling defaults for zero config values.
func New(cfg Config) *Resolver {
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	} else if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = DefaultRetryBackoff
	}
	timeout := cfg.GeocodeTimeout
	if timeout <= 0 {
		timeout = DefaultGeocodeTimeout
	}
	return &Resolver{
		directories:    cfg.Directories,
		geocoder:       cfg.Geocoder,
		cache:          cfg.Cache,
		maxRetries:     maxRetries,
		retryBackoff:   backoff,
		geocodeTimeout: timeout,
	}
}

// Resolve turns one identifier into a Resolution. It never panics and
// never returns an error: failures come back as a Resolution with the
// Failure reason set.
func (r *Resolver) Resolve(ctx context.Context, identifier string) Resolution {
	key := NormalizeKey(identifier)
	if key == "" {
		return Resolution{
			Identifier: identifier,
			Provenance: ProvenanceUnresolved,
			Failure:    FailureAmbiguous,
			Detail:     "identifier is empty",
		}
	}

	if r.cache == nil || !r.cache.IsEnabled() {
		return r.resolveLive(ctx, identifier)
	}

	data, fromCache, err := r.cache.GetOrCompute(key, func() (json.RawMessage, error) {
		res := r.resolveLive(ctx, identifier)
		if !res.Resolved() {
			return nil, resolutionError{res}
		}
		return json.Marshal(res)
	})
	if err != nil {
		var resErr resolutionError
		if errors.As(err, &resErr) {
			return resErr.resolution
		}
		return r.failure(identifier, err)
	}

	var res Resolution
	if err := json.Unmarshal(data, &res); err != nil {
		// A corrupt cache entry must not sink the lookup.
		logging.FromContext(ctx).Warn().
			Str("component", "resolver").
			Str("operation", "cache_decode").
			Str("identifier", identifier).
			Err(err).
			Msg("discarding unreadable cache entry")
		_ = r.cache.Delete(key)
		return r.resolveLive(ctx, identifier)
	}
	if fromCache {
		res.Identifier = identifier
		res.Provenance = ProvenanceCached
	}
	return res
}

// resolutionError carries a failed Resolution through the cache compute
// path so the failure is reported without being cached.
type resolutionError struct {
	resolution Resolution
}

func (e resolutionError) Error() string {
	return fmt.Sprintf("%s: %s", e.resolution.Failure, e.resolution.Detail)
}

// resolveLive walks the ladder without touching the cache.
func (r *Resolver) resolveLive(ctx context.Context, identifier string) Resolution {
	trimmed := strings.TrimSpace(identifier)
	log := logging.FromContext(ctx)

	switch {
	case IsIATACode(trimmed):
		code := strings.ToUpper(trimmed)
		if loc := r.lookupDirectories(ctx, code); loc != nil {
			return r.fromLocation(identifier, loc)
		}
		log.Debug().
			Str("component", "resolver").
			Str("operation", "resolve").
			Str("identifier", identifier).
			Msg("airport code not in directories, trying geocoder")
		return r.geocodeQuery(ctx, identifier, code+" airport")

	case IsUNLocode(trimmed):
		code := strings.ToUpper(trimmed)
		if loc := r.lookupDirectories(ctx, code); loc != nil {
			return r.fromLocation(identifier, loc)
		}
		// Many UN/LOCODEs end in the IATA code of the serving airport.
		if tail := UNLocodeTail(code); tail != "" {
			if loc := r.lookupDirectories(ctx, tail); loc != nil {
				return r.fromLocation(identifier, loc)
			}
		}
		return r.geocodeQuery(ctx, identifier, code+" seaport")

	default:
		if query, ok := PostalQuery(trimmed); ok {
			return r.geocodeQuery(ctx, identifier, query)
		}
		if code, kind, ok := ParseFacilityPhrase(trimmed); ok {
			if loc := r.lookupDirectories(ctx, code); loc != nil && loc.Kind == kind {
				return r.fromLocation(identifier, loc)
			}
		}
		return r.geocodeQuery(ctx, identifier, trimmed)
	}
}

// lookupDirectories asks each directory in order. Directory outages are
// logged and skipped: the ladder still has the geocoder below it.
func (r *Resolver) lookupDirectories(ctx context.Context, code string) *gazetteer.Location {
	for _, dir := range r.directories {
		loc, err := dir.LookupCode(ctx, code)
		if err == nil {
			return loc
		}
		if !errors.Is(err, gazetteer.ErrCodeNotFound) {
			logging.FromContext(ctx).Warn().
				Str("component", "resolver").
				Str("operation", "directory_lookup").
				Str("code", code).
				Err(err).
				Msg("directory lookup failed, trying next source")
		}
	}
	return nil
}

func (r *Resolver) fromLocation(identifier string, loc *gazetteer.Location) Resolution {
	return Resolution{
		Identifier: identifier,
		Code:       loc.Code,
		Name:       loc.Name,
		Kind:       loc.Kind,
		Point:      loc.Point,
		Provenance: ProvenanceCode,
	}
}

// geocodeQuery resolves through the geocoder, retrying outages with a
// doubling backoff. Authoritative misses are never retried.
func (r *Resolver) geocodeQuery(ctx context.Context, identifier, query string) Resolution {
	if r.geocoder == nil {
		return r.failure(identifier, fmt.Errorf("%w: no geocoder configured", geocode.ErrUnavailable))
	}

	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := r.retryBackoff << (attempt - 1)
			logging.FromContext(ctx).Debug().
				Str("component", "resolver").
				Str("operation", "geocode_retry").
				Str("identifier", identifier).
				Int("attempt", attempt).
				Dur("backoff", delay).
				Msg("retrying after geocoder outage")
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return r.failure(identifier, fmt.Errorf("%w: %w", geocode.ErrUnavailable, ctx.Err()))
			case <-timer.C:
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, r.geocodeTimeout)
		result, err := r.geocoder.Geocode(attemptCtx, query)
		cancel()

		if err == nil {
			return Resolution{
				Identifier: identifier,
				Name:       result.DisplayName,
				Point:      result.Point,
				Provenance: ProvenanceText,
			}
		}
		lastErr = err
		if !errors.Is(err, geocode.ErrUnavailable) {
			break
		}
	}
	return r.failure(identifier, lastErr)
}

// failure maps an underlying error to a failed Resolution.
func (r *Resolver) failure(identifier string, err error) Resolution {
	reason := FailureServiceUnavailable
	switch {
	case errors.Is(err, geocode.ErrNoMatch), errors.Is(err, gazetteer.ErrCodeNotFound):
		reason = FailureNotFound
	case errors.Is(err, geocode.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		reason = FailureServiceUnavailable
	}
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return Resolution{
		Identifier: identifier,
		Provenance: ProvenanceUnresolved,
		Failure:    reason,
		Detail:     detail,
	}
}

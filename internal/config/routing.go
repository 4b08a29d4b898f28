package config

import (
	"fmt"
	"net/url"
	"sort"
	"time"
)

// Defaults for the routing section. They match the resolver's built-in
// retry bound and initial backoff so an empty config behaves the same as
// no config at all.
const (
	DefaultMaxRetries = 2
	DefaultBackoffMS  = 250
)

// RoutingConfig defines how free-text location queries are routed across
// geocoding providers.
//
// YAML Location: ~/.freightfocus/config.yaml under "routing" key
//
// Example:
//
//	routing:
//	  providers:
//	    - name: nominatim
//	      priority: 10
//	  timeout_seconds: 10
//	  politeness_delay_ms: 1000
//	  retry:
//	    max_retries: 2
//	    backoff_ms: 250
type RoutingConfig struct {
	// Providers contains the ordered list of geocoding providers.
	// Order matters for tie-breaking when priorities are equal.
	// May be empty (uses the built-in Nominatim provider only).
	Providers []ProviderRouting `yaml:"providers" json:"providers"`

	// TimeoutSeconds bounds a single geocoding request.
	// 0 uses the client default.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`

	// PolitenessDelayMS spaces successive requests to a provider.
	// 0 uses the client default (one request per second, per the public
	// Nominatim usage policy).
	PolitenessDelayMS int `yaml:"politeness_delay_ms,omitempty" json:"politeness_delay_ms,omitempty"`

	// Retry bounds retries of transient provider outages. Definitive
	// no-match answers are never retried.
	Retry RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty"`
}

// ProviderRouting defines how a specific geocoding provider should be used.
type ProviderRouting struct {
	// Name is the provider identifier (for example "nominatim").
	// Required.
	Name string `yaml:"name" json:"name"`

	// BaseURL overrides the provider's endpoint. Empty uses the provider's
	// public endpoint. Useful for self-hosted instances.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`

	// Priority determines query order.
	// Higher values = higher priority (tried first).
	// Default is 0. Providers with equal priority keep their config order.
	Priority int `yaml:"priority,omitempty" json:"priority,omitempty"`

	// Enabled toggles the provider without removing its entry.
	// Default is true if not specified.
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

// IsEnabled returns whether this provider participates in routing.
// Returns true if Enabled is nil (default behavior).
func (p ProviderRouting) IsEnabled() bool {
	if p.Enabled == nil {
		return true
	}
	return *p.Enabled
}

// RetryConfig bounds retries of transient geocoding failures.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first.
	// Nil uses DefaultMaxRetries; 0 disables retries.
	MaxRetries *int `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`

	// BackoffMS is the first retry delay in milliseconds; later attempts
	// double it. 0 uses DefaultBackoffMS.
	BackoffMS int `yaml:"backoff_ms,omitempty" json:"backoff_ms,omitempty"`
}

// EffectiveMaxRetries returns the configured retry bound, or
// DefaultMaxRetries when none is set.
func (r RetryConfig) EffectiveMaxRetries() int {
	if r.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *r.MaxRetries
}

// Backoff returns the first retry delay as a duration, applying
// DefaultBackoffMS when none is set.
func (r RetryConfig) Backoff() time.Duration {
	ms := r.BackoffMS
	if ms <= 0 {
		ms = DefaultBackoffMS
	}
	return time.Duration(ms) * time.Millisecond
}

// Timeout returns the per-request timeout as a duration, or 0 when unset so
// the geocoding client applies its own default.
func (r *RoutingConfig) Timeout() time.Duration {
	if r == nil || r.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// PolitenessDelay returns the inter-request delay as a duration, or 0 when
// unset so the geocoding client applies its own default.
func (r *RoutingConfig) PolitenessDelay() time.Duration {
	if r == nil || r.PolitenessDelayMS <= 0 {
		return 0
	}
	return time.Duration(r.PolitenessDelayMS) * time.Millisecond
}

// EnabledProviders returns the enabled providers in query order: highest
// priority first, config order preserved for equal priorities.
func (r *RoutingConfig) EnabledProviders() []ProviderRouting {
	if r == nil {
		return nil
	}

	providers := make([]ProviderRouting, 0, len(r.Providers))
	for _, p := range r.Providers {
		if p.IsEnabled() {
			providers = append(providers, p)
		}
	}

	sort.SliceStable(providers, func(i, j int) bool {
		return providers[i].Priority > providers[j].Priority
	})
	return providers
}

// Validate performs lightweight structural validation of the routing
// configuration. It checks that provider names are non-empty, base URLs
// parse, and numeric settings are non-negative.
func (r *RoutingConfig) Validate() error {
	if r == nil {
		return nil
	}

	for i, provider := range r.Providers {
		if provider.Name == "" {
			return fmt.Errorf("provider at index %d: name is required", i)
		}

		if provider.Priority < 0 {
			return fmt.Errorf("provider %q: priority must be non-negative, got %d", provider.Name, provider.Priority)
		}

		if provider.BaseURL != "" {
			parsed, err := url.Parse(provider.BaseURL)
			if err != nil {
				return fmt.Errorf("provider %q: invalid base_url %q: %w", provider.Name, provider.BaseURL, err)
			}
			if parsed.Scheme != "http" && parsed.Scheme != "https" {
				return fmt.Errorf("provider %q: base_url %q must use http or https", provider.Name, provider.BaseURL)
			}
		}
	}

	if r.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must be non-negative, got %d", r.TimeoutSeconds)
	}
	if r.PolitenessDelayMS < 0 {
		return fmt.Errorf("politeness_delay_ms must be non-negative, got %d", r.PolitenessDelayMS)
	}
	if r.Retry.MaxRetries != nil && *r.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be non-negative, got %d", *r.Retry.MaxRetries)
	}
	if r.Retry.BackoffMS < 0 {
		return fmt.Errorf("retry.backoff_ms must be non-negative, got %d", r.Retry.BackoffMS)
	}

	return nil
}

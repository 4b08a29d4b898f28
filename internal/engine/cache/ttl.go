package cache

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// TTL configuration constants and defaults.
const (
	// DefaultTTLSeconds is the default cache TTL (24 hours). Coordinates of
	// airports and seaports change rarely; a long TTL keeps repeat batch
	// runs off the network.
	DefaultTTLSeconds = 86400

	// MinTTLSeconds is the minimum allowed TTL (1 minute).
	MinTTLSeconds = 60

	// MaxTTLSeconds is the maximum allowed TTL (7 days).
	MaxTTLSeconds = 604800

	// DefaultMaxEntries bounds the in-memory LRU.
	DefaultMaxEntries = 512

	// minutesPerHour is used for duration formatting calculations.
	minutesPerHour = 60

	// hoursPerDay is used for duration formatting calculations.
	hoursPerDay = 24

	// EnvTTLSeconds is the environment variable for overriding TTL.
	EnvTTLSeconds = "FREIGHTFOCUS_CACHE_TTL_SECONDS"

	// EnvCacheEnabled is the environment variable for enabling/disabling cache.
	EnvCacheEnabled = "FREIGHTFOCUS_CACHE_ENABLED"

	// EnvCacheDir is the environment variable for the persistence directory.
	EnvCacheDir = "FREIGHTFOCUS_CACHE_DIR"

	// EnvCacheMaxEntries is the environment variable for the LRU bound.
	EnvCacheMaxEntries = "FREIGHTFOCUS_CACHE_MAX_ENTRIES"
)

// TTL validation errors.
var (
	ErrInvalidTTL = fmt.Errorf("TTL must be between %d and %d seconds", MinTTLSeconds, MaxTTLSeconds)
)

// GetTTLFromEnv reads the TTL from the environment or returns the default.
// Invalid or out-of-range values fall back to the default.
func GetTTLFromEnv() int {
	envVal := os.Getenv(EnvTTLSeconds)
	if envVal == "" {
		return DefaultTTLSeconds
	}

	ttl, err := strconv.Atoi(envVal)
	if err != nil {
		return DefaultTTLSeconds
	}
	if ttl < MinTTLSeconds || ttl > MaxTTLSeconds {
		return DefaultTTLSeconds
	}
	return ttl
}

// GetCacheEnabledFromEnv reads the cache enabled flag from the environment.
// The cache is enabled by default.
func GetCacheEnabledFromEnv() bool {
	envVal := os.Getenv(EnvCacheEnabled)
	if envVal == "" {
		return true
	}

	enabled, err := strconv.ParseBool(envVal)
	if err != nil {
		return true
	}
	return enabled
}

// GetCacheDirFromEnv reads the persistence directory from the environment.
// Returns "" when unset (caller should use the config default).
func GetCacheDirFromEnv() string {
	return os.Getenv(EnvCacheDir)
}

// GetCacheMaxEntriesFromEnv reads the LRU bound from the environment.
// Returns DefaultMaxEntries when unset or invalid.
func GetCacheMaxEntriesFromEnv() int {
	envVal := os.Getenv(EnvCacheMaxEntries)
	if envVal == "" {
		return DefaultMaxEntries
	}

	maxEntries, err := strconv.Atoi(envVal)
	if err != nil || maxEntries <= 0 {
		return DefaultMaxEntries
	}
	return maxEntries
}

// FormatDuration formats a duration in a human-readable way.
// Examples: "1h", "30m", "2d3h".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	if d < hoursPerDay*time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % minutesPerHour
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	days := int(d.Hours()) / hoursPerDay
	hours := int(d.Hours()) % hoursPerDay
	if hours == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd%dh", days, hours)
}

// ParseTTL parses a TTL string in either format:
//   - Integer seconds: "3600"
//   - Duration string: "1h", "30m", "1h30m"
func ParseTTL(s string) (int, error) {
	if seconds, err := strconv.Atoi(s); err == nil {
		if seconds < MinTTLSeconds || seconds > MaxTTLSeconds {
			return 0, fmt.Errorf("%w: got %d", ErrInvalidTTL, seconds)
		}
		return seconds, nil
	}

	duration, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid TTL format: %w", err)
	}

	seconds := int(duration.Seconds())
	if seconds < MinTTLSeconds || seconds > MaxTTLSeconds {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidTTL, seconds)
	}
	return seconds, nil
}

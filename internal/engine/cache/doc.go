// Package cache provides the resolution cache: an in-memory LRU with TTL
// expiration and optional file persistence for resolved locations.
//
// Resolving a location can cost a remote geocoding round-trip, so results are
// cached aggressively. Key features:
//   - In-memory LRU bounded by a configurable entry count (default 512)
//   - Configurable TTL via config file, FREIGHTFOCUS_CACHE_* environment
//     variables, or the --cache-ttl CLI flag
//   - Optional write-through persistence in ~/.freightfocus/cache/ so
//     resolutions survive across CLI runs (SHA256-hashed file names)
//   - In-flight coalescing: concurrent lookups of the same key share one
//     computation (x/sync/singleflight)
//
// The cache is injectable, never ambient: the resolver receives it at
// construction and long-running services can supply their own policy.
package cache

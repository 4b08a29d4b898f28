package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"
	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"
)

// cacheFileExtension is the file extension used for persisted entries.
const cacheFileExtension = ".json"

// Common cache errors.
var (
	ErrNotFound   = errors.New("cache entry not found")
	ErrExpired    = errors.New("cache entry expired")
	ErrInvalidKey = errors.New("cache key cannot be empty")
	ErrDisabled   = errors.New("cache is disabled")
)

// Options configures a Store.
type Options struct {
	// Enabled toggles the cache. A disabled store errors on Get/Set and
	// GetOrCompute passes straight through to the compute function.
	Enabled bool

	// Directory, when non-empty, enables write-through file persistence so
	// resolutions survive across runs.
	Directory string

	// TTLSeconds is applied to new entries; 0 uses DefaultTTLSeconds.
	TTLSeconds int

	// MaxEntries bounds the in-memory LRU; 0 uses DefaultMaxEntries.
	MaxEntries int
}

// Stats holds cumulative store counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Coalesced int64 `json:"coalesced"`
	Evictions int64 `json:"evictions"`
}

// Store is the resolution cache: a bounded in-memory LRU with TTL expiration,
// optional write-through file persistence and in-flight coalescing.
// Safe for concurrent use.
type Store struct {
	enabled    bool
	directory  string
	ttlSeconds int
	maxEntries int

	// mu guards entries, lru and file operations.
	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List // front = most recently used

	group singleflight.Group

	hits      atomic.Int64
	misses    atomic.Int64
	coalesced atomic.Int64
	evictions atomic.Int64
}

// New creates a Store. The persistence directory is created when configured.
func New(opts Options) (*Store, error) {
	if !opts.Enabled {
		return &Store{enabled: false}, nil
	}

	if opts.TTLSeconds <= 0 {
		opts.TTLSeconds = DefaultTTLSeconds
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.Directory != "" {
		if err := os.MkdirAll(opts.Directory, 0750); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	return &Store{
		enabled:    true,
		directory:  opts.Directory,
		ttlSeconds: opts.TTLSeconds,
		maxEntries: opts.MaxEntries,
		entries:    make(map[string]*list.Element),
		lru:        list.New(),
	}, nil
}

// Get retrieves an entry by key, consulting memory first and the persistence
// directory second. Returns ErrNotFound when absent and ErrExpired when the
// entry's TTL has elapsed.
func (s *Store) Get(key string) (*Entry, error) {
	if !s.enabled {
		return nil, ErrDisabled
	}
	if key == "" {
		return nil, ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.entries[key]; ok {
		entry := elem.Value.(*Entry)
		if entry.IsExpired() {
			s.removeLocked(key, elem)
			s.removeFileAsync(key)
			s.misses.Inc()
			return nil, ErrExpired
		}
		s.lru.MoveToFront(elem)
		s.hits.Inc()
		return entry, nil
	}

	if s.directory != "" {
		entry, err := s.readFileLocked(key)
		if err == nil {
			s.insertLocked(entry)
			s.hits.Inc()
			return entry, nil
		}
		if errors.Is(err, ErrExpired) {
			s.misses.Inc()
			return nil, ErrExpired
		}
	}

	s.misses.Inc()
	return nil, ErrNotFound
}

// Set stores data under key, overwriting any previous entry. When a
// persistence directory is configured the entry is also written through to
// disk atomically (temp file + rename).
func (s *Store) Set(key string, data json.RawMessage) error {
	if !s.enabled {
		return ErrDisabled
	}
	if key == "" {
		return ErrInvalidKey
	}

	entry := NewEntry(key, data, s.ttlSeconds)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.insertLocked(entry)

	if s.directory == "" {
		return nil
	}

	entryData, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	filePath := s.keyToFilePath(key)
	tempPath := filePath + ".tmp"
	if writeErr := os.WriteFile(tempPath, entryData, 0600); writeErr != nil {
		return fmt.Errorf("failed to write cache file: %w", writeErr)
	}
	if renameErr := os.Rename(tempPath, filePath); renameErr != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename cache file: %w", renameErr)
	}
	return nil
}

// GetOrCompute returns the cached value for key, or runs compute once to
// produce it. Concurrent callers with the same key share a single in-flight
// computation. The boolean reports whether the value came from cache. Cache
// write failures never fail the computation.
func (s *Store) GetOrCompute(key string, compute func() (json.RawMessage, error)) (json.RawMessage, bool, error) {
	if !s.enabled || key == "" {
		data, err := compute()
		return data, false, err
	}

	if entry, err := s.Get(key); err == nil {
		return entry.Data, true, nil
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		data, computeErr := compute()
		if computeErr != nil {
			return nil, computeErr
		}
		_ = s.Set(key, data)
		return data, nil
	})
	if shared {
		s.coalesced.Inc()
	}
	if err != nil {
		return nil, false, err
	}
	return v.(json.RawMessage), false, nil
}

// Delete removes an entry by key. Idempotent.
func (s *Store) Delete(key string) error {
	if !s.enabled {
		return ErrDisabled
	}
	if key == "" {
		return ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.entries[key]; ok {
		s.removeLocked(key, elem)
	}
	if s.directory == "" {
		return nil
	}
	err := os.Remove(s.keyToFilePath(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}
	return nil
}

// Clear removes all entries from memory and disk.
func (s *Store) Clear() error {
	if !s.enabled {
		return ErrDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*list.Element)
	s.lru.Init()

	if s.directory == "" {
		return nil
	}

	dirEntries, err := os.ReadDir(s.directory)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() || filepath.Ext(dirEntry.Name()) != cacheFileExtension {
			continue
		}
		filePath := filepath.Join(s.directory, dirEntry.Name())
		if removeErr := os.Remove(filePath); removeErr != nil {
			return fmt.Errorf("failed to remove cache file %s: %w", dirEntry.Name(), removeErr)
		}
	}
	return nil
}

// CleanupExpired removes expired entries from memory and disk. Useful for
// periodic maintenance in long-running services.
func (s *Store) CleanupExpired() error {
	if !s.enabled {
		return ErrDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, elem := range s.entries {
		if elem.Value.(*Entry).IsExpired() {
			s.removeLocked(key, elem)
		}
	}

	if s.directory == "" {
		return nil
	}

	dirEntries, err := os.ReadDir(s.directory)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() || filepath.Ext(dirEntry.Name()) != cacheFileExtension {
			continue
		}
		filePath := filepath.Join(s.directory, dirEntry.Name())
		data, readErr := os.ReadFile(filePath)
		if readErr != nil {
			continue
		}
		var entry Entry
		if unmarshalErr := json.Unmarshal(data, &entry); unmarshalErr != nil {
			continue
		}
		if entry.IsExpired() {
			_ = os.Remove(filePath)
		}
	}
	return nil
}

// Count returns the number of in-memory entries, including expired ones not
// yet swept.
func (s *Store) Count() (int, error) {
	if !s.enabled {
		return 0, ErrDisabled
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}

// Stats returns a snapshot of the cumulative counters.
func (s *Store) Stats() Stats {
	return Stats{
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Coalesced: s.coalesced.Load(),
		Evictions: s.evictions.Load(),
	}
}

// IsEnabled reports whether caching is active.
func (s *Store) IsEnabled() bool {
	return s.enabled
}

// Directory returns the persistence directory, or "" for memory-only stores.
func (s *Store) Directory() string {
	return s.directory
}

// TTL returns the default TTL in seconds.
func (s *Store) TTL() int {
	return s.ttlSeconds
}

// insertLocked adds or replaces an entry and evicts from the LRU tail when
// over capacity. Eviction only drops the memory copy; persisted files remain
// until they expire.
func (s *Store) insertLocked(entry *Entry) {
	if elem, ok := s.entries[entry.Key]; ok {
		elem.Value = entry
		s.lru.MoveToFront(elem)
		return
	}
	s.entries[entry.Key] = s.lru.PushFront(entry)

	for len(s.entries) > s.maxEntries {
		oldest := s.lru.Back()
		if oldest == nil {
			break
		}
		s.removeLocked(oldest.Value.(*Entry).Key, oldest)
		s.evictions.Inc()
	}
}

func (s *Store) removeLocked(key string, elem *list.Element) {
	s.lru.Remove(elem)
	delete(s.entries, key)
}

// readFileLocked loads a persisted entry, removing it when expired.
func (s *Store) readFileLocked(key string) (*Entry, error) {
	filePath := s.keyToFilePath(key)
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var entry Entry
	if unmarshalErr := json.Unmarshal(data, &entry); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", unmarshalErr)
	}
	if entry.IsExpired() {
		_ = os.Remove(filePath)
		return nil, ErrExpired
	}
	return &entry, nil
}

func (s *Store) removeFileAsync(key string) {
	if s.directory == "" {
		return
	}
	filePath := s.keyToFilePath(key)
	go func() {
		_ = os.Remove(filePath)
	}()
}

// keyToFilePath converts a cache key to a file path. Keys are hashed so any
// key value is filesystem-safe.
func (s *Store) keyToFilePath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.directory, hex.EncodeToString(sum[:])+cacheFileExtension)
}

package cache

import (
	"errors"
	"time"

	json "github.com/goccy/go-json"
)

// Entry is a single cached resolution with TTL metadata. Data holds the
// JSON-serialized resolution value; the cache never interprets it.
type Entry struct {
	// Key is the normalized resolution key (e.g. "code:ZRH").
	Key string `json:"key"`

	// Data is the cached value.
	Data json.RawMessage `json:"data"`

	// CreatedAt is when the entry was created.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is when the entry expires.
	ExpiresAt time.Time `json:"expires_at"`

	// TTLSeconds is the time-to-live in seconds, kept for reference.
	TTLSeconds int `json:"ttl_seconds"`
}

// NewEntry creates an entry with the given TTL starting now.
func NewEntry(key string, data json.RawMessage, ttlSeconds int) *Entry {
	now := time.Now()
	return &Entry{
		Key:        key,
		Data:       data,
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Duration(ttlSeconds) * time.Second),
		TTLSeconds: ttlSeconds,
	}
}

// IsExpired reports whether the entry has passed its expiration time.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// IsValid is the inverse of IsExpired, provided for readability.
func (e *Entry) IsValid() bool {
	return !e.IsExpired()
}

// Age returns the duration since the entry was created.
func (e *Entry) Age() time.Duration {
	return time.Since(e.CreatedAt)
}

// TimeUntilExpiration returns the duration until expiry, or 0 if already
// expired.
func (e *Entry) TimeUntilExpiration() time.Duration {
	remaining := time.Until(e.ExpiresAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Touch extends the expiration by the original TTL from now, implementing
// refresh-on-access.
func (e *Entry) Touch() {
	e.ExpiresAt = time.Now().Add(time.Duration(e.TTLSeconds) * time.Second)
}

// MarshalJSON formats timestamps as RFC3339 so persisted cache files stay
// readable.
func (e *Entry) MarshalJSON() ([]byte, error) {
	type Alias Entry
	return json.Marshal(&struct {
		*Alias

		CreatedAt string `json:"created_at"`
		ExpiresAt string `json:"expires_at"`
	}{
		Alias:     (*Alias)(e),
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
		ExpiresAt: e.ExpiresAt.Format(time.RFC3339),
	})
}

// UnmarshalJSON parses the RFC3339 timestamps written by MarshalJSON.
func (e *Entry) UnmarshalJSON(data []byte) error {
	if e == nil {
		return errors.New("cannot unmarshal into nil Entry")
	}
	type Alias Entry
	aux := &struct {
		*Alias

		CreatedAt string `json:"created_at"`
		ExpiresAt string `json:"expires_at"`
	}{
		Alias: (*Alias)(e),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	e.CreatedAt, err = time.Parse(time.RFC3339, aux.CreatedAt)
	if err != nil {
		return err
	}

	e.ExpiresAt, err = time.Parse(time.RFC3339, aux.ExpiresAt)
	if err != nil {
		return err
	}

	return nil
}

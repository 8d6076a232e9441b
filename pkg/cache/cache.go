// Package cache implements the tiered get-or-fetch cache shared by the
// upstream clients: an in-process memory map with TTLs and amortized
// cleanup, backed by an optional best-effort Redis tier. Every cache
// failure degrades towards the fetcher; callers never see a cache
// error.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultCleanupThreshold = 100

type memoryEntry struct {
	payload   string
	expiresAt time.Time
}

type Cache struct {
	enabled          bool
	cleanupThreshold int

	mu               sync.Mutex
	memory           map[string]memoryEntry
	writesSinceSweep int

	remote *remoteTier

	now func() time.Time
}

type Options struct {
	// Enabled turns the whole cache off when false; every lookup goes
	// straight to the fetcher.
	Enabled bool

	// CleanupThreshold is the number of memory writes between expired
	// entry sweeps.
	CleanupThreshold int

	// RedisAddress enables the remote tier when non-empty.
	RedisAddress  string
	RedisPassword string
	RedisDatabase int
}

func New(opts Options) *Cache {
	c := &Cache{
		enabled:          opts.Enabled,
		cleanupThreshold: opts.CleanupThreshold,
		memory:           map[string]memoryEntry{},
		now:              time.Now,
	}

	if c.cleanupThreshold <= 0 {
		c.cleanupThreshold = defaultCleanupThreshold
	}

	if opts.Enabled && opts.RedisAddress != "" {
		c.remote = newRemoteTier(opts.RedisAddress, opts.RedisPassword, opts.RedisDatabase)
	}

	return c
}

// Close releases the remote connection. The memory tier needs no
// teardown.
func (c *Cache) Close() error {
	if c.remote == nil {
		return nil
	}

	return c.remote.close()
}

// GetOrFetch returns the cached value for key, falling through memory,
// then Redis, then the fetcher. Fetched values are written through to
// every tier with the given TTL. An entry that fails to deserialize
// counts as a miss; the error never reaches the caller.
func GetOrFetch[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fetcher func(context.Context) (T, error)) (T, error) {
	if c == nil || !c.enabled {
		return fetcher(ctx)
	}

	if payload, ok := c.memoryGet(key); ok {
		value, err := Deserialize[T](payload)
		if err == nil {
			return value, nil
		}

		log.Error().Err(err).Str("key", key).Msg("Cache deserialization error")
	}

	if c.remote != nil {
		if payload, ok := c.remote.get(ctx, key); ok {
			value, err := Deserialize[T](payload)
			if err == nil {
				c.memorySet(key, payload, ttl)
				return value, nil
			}

			log.Error().Err(err).Str("key", key).Msg("Cache deserialization error")
		}
	}

	value, err := fetcher(ctx)
	if err != nil {
		return value, err
	}

	payload, err := Serialize(value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Value cannot be cached")
		return value, nil
	}

	c.memorySet(key, payload, ttl)

	if c.remote != nil {
		c.remote.set(ctx, key, payload, ttl)
	}

	return value, nil
}

func (c *Cache) memoryGet(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.memory[key]
	if !ok {
		return "", false
	}

	// Expired entries are treated as absent, never returned.
	if !c.now().Before(entry.expiresAt) {
		delete(c.memory, key)
		return "", false
	}

	return entry.payload, true
}

func (c *Cache) memorySet(key string, payload string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.memory[key] = memoryEntry{
		payload:   payload,
		expiresAt: c.now().Add(ttl),
	}

	c.writesSinceSweep++
	if c.writesSinceSweep >= c.cleanupThreshold {
		c.sweepLocked()
	}
}

// sweepLocked removes every expired entry. Amortizing the sweep over a
// write threshold keeps individual writes cheap.
func (c *Cache) sweepLocked() {
	now := c.now()

	for key, entry := range c.memory {
		if !now.Before(entry.expiresAt) {
			delete(c.memory, key)
		}
	}

	c.writesSinceSweep = 0
}

// Package cache provides the process-wide tiered cache: an in-memory
// key/value store with per-entry TTL, tag-based group invalidation and a
// bounded memory estimate.
//
// A single Cache is built at process start and injected into every
// consumer. Failures inside Set, Get and Delete are logged and degrade to
// "no effect"; only GetOrSet surfaces errors, and only those returned by
// its factory.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/txn2/helix/pkg/clock"
)

const (
	// DefaultTTL is applied when Set is called without WithTTL.
	DefaultTTL = time.Hour

	// DefaultMaxMemoryBytes is the ceiling on the estimated size of all
	// live entries.
	DefaultMaxMemoryBytes int64 = 100 << 20

	// DefaultSweepInterval is the cadence of the expiry sweep.
	DefaultSweepInterval = time.Minute

	// DefaultCompressThreshold is the serialized size above which a value
	// stored WithCompression is actually compressed.
	DefaultCompressThreshold = 1024

	evictFraction = 0.1
	bytesPerChar  = 2
)

// Config configures a Cache.
type Config struct {
	MaxMemoryBytes    int64
	DefaultTTL        time.Duration
	CompressThreshold int
	Clock             clock.Clock
}

// Stats is a point-in-time view of cache counters.
type Stats struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	Sets        int64   `json:"sets"`
	Deletes     int64   `json:"deletes"`
	HitRate     float64 `json:"hit_rate"`
	MemoryUsage int64   `json:"memory_usage"`
	Entries     int     `json:"entries"`
}

type entry struct {
	value      any
	typ        reflect.Type // dynamic type of the value before compression
	compressed bool
	expiresAt  time.Time
	tags       []string
	size       int64
}

func (e *entry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

func (e *entry) hasAnyTag(tags map[string]struct{}) bool {
	for _, t := range e.tags {
		if _, ok := tags[t]; ok {
			return true
		}
	}
	return false
}

// Cache is a TTL and tag aware in-memory cache. It is safe for concurrent
// use; the expiry sweep interleaves with reads and writes.
type Cache struct {
	cfg    Config
	clock  clock.Clock
	codec  *codec
	flight singleflight.Group

	mu      sync.Mutex
	entries map[string]*entry
	memory  int64
	hits    int64
	misses  int64
	sets    int64
	deletes int64

	sweepMu sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a cache. Zero config fields take their defaults.
func New(cfg Config) (*Cache, error) {
	if cfg.MaxMemoryBytes <= 0 {
		cfg.MaxMemoryBytes = DefaultMaxMemoryBytes
	}
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.CompressThreshold <= 0 {
		cfg.CompressThreshold = DefaultCompressThreshold
	}

	cd, err := newCodec()
	if err != nil {
		return nil, fmt.Errorf("creating cache codec: %w", err)
	}

	return &Cache{
		cfg:     cfg,
		clock:   clock.OrReal(cfg.Clock),
		codec:   cd,
		entries: make(map[string]*entry),
	}, nil
}

// Set stores value under key. Replacing an existing key is last writer
// wins. If the estimated size would exceed the memory ceiling, entries
// are evicted in sorted key order first. A value larger than the whole
// ceiling is rejected and leaves any existing entry for key in place.
func (c *Cache) Set(key string, value any, opts ...Option) {
	o := c.resolve(opts)

	stored, compressed, err := c.prepare(value, o.compress)
	if err != nil {
		slog.Error("cache set failed", "key", key, "error", err)
		return
	}

	expiresAt := c.clock.Now().Add(o.ttl)
	size, err := estimateSize(key, stored, expiresAt, o.tags)
	if err != nil {
		slog.Error("cache set failed", "key", key, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if size > c.cfg.MaxMemoryBytes {
		slog.Warn("cache entry larger than memory ceiling", "key", key, "size", size, "max", c.cfg.MaxMemoryBytes)
		return
	}

	if old, ok := c.entries[key]; ok {
		c.removeLocked(key, old)
	}

	for c.memory+size > c.cfg.MaxMemoryBytes && len(c.entries) > 0 {
		c.evictLocked()
	}

	c.entries[key] = &entry{
		value:      stored,
		typ:        reflect.TypeOf(value),
		compressed: compressed,
		expiresAt:  expiresAt,
		tags:       o.tags,
		size:       size,
	}
	c.memory += size
	c.sets++

	slog.Debug("cache set", "key", key, "ttl", o.ttl, "tags", o.tags, "size", size)
}

// Get returns the value stored under key. Compressed entries are decoded
// back into the type they were stored with, so the dynamic type of the
// result does not depend on the value's size.
func (c *Cache) Get(key string) (any, bool) {
	e, ok := c.lookup(key)
	if !ok {
		return nil, false
	}
	if !e.compressed {
		return e.value, true
	}

	ptr := reflect.New(e.typ)
	if err := c.unpack(e.value, ptr.Interface()); err != nil {
		slog.Error("cache get failed", "key", key, "error", err)
		return nil, false
	}
	return ptr.Elem().Interface(), true
}

// lookup returns a copy of the live entry for key and records the hit or
// miss. Expired entries found here are removed.
func (c *Cache) lookup(key string) (entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[key]
	if !found {
		c.misses++
		return entry{}, false
	}
	if e.expired(c.clock.Now()) {
		c.removeLocked(key, e)
		c.misses++
		return entry{}, false
	}

	c.hits++
	return *e, true
}

// unpack decompresses a stored value and decodes it into out.
func (c *Cache) unpack(stored any, out any) error {
	data, err := c.codec.decode(stored.([]byte))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding cached value: %w", err)
	}
	return nil
}

// Delete removes key and reports whether an entry was removed.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeLocked(key, e)
	c.deletes++
	slog.Debug("cache delete", "key", key)
	return true
}

// DeleteByTags removes every entry carrying at least one of tags and
// returns the number removed.
func (c *Cache) DeleteByTags(tags ...string) int {
	if len(tags) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if e.hasAnyTag(set) {
			c.removeLocked(key, e)
			removed++
		}
	}
	c.deletes += int64(removed)

	slog.Info("cache delete by tags", "tags", tags, "removed", removed)
	return removed
}

// Clear drops every entry and resets memory accounting. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	c.memory = 0
	slog.Info("cache cleared")
}

// Stats returns the current counters. HitRate is a percentage.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var rate float64
	if total := c.hits + c.misses; total > 0 {
		rate = float64(c.hits) / float64(total) * 100
	}
	return Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		Sets:        c.sets,
		Deletes:     c.deletes,
		HitRate:     rate,
		MemoryUsage: c.memory,
		Entries:     len(c.entries),
	}
}

// Size returns the number of stored entries, including expired entries
// the sweep has not reached yet.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Cleanup removes all expired entries and returns how many were removed.
func (c *Cache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	var freed int64
	for key, e := range c.entries {
		if e.expired(now) {
			freed += e.size
			c.removeLocked(key, e)
			removed++
		}
	}

	if removed > 0 {
		slog.Debug("cache cleanup", "removed", removed, "freed", freed)
	}
	return removed
}

// StartCleanupRoutine starts a background goroutine that periodically
// removes expired entries. The goroutine is stopped when Close is called.
// Calling it while a sweeper is running is a no-op.
func (c *Cache) StartCleanupRoutine(interval time.Duration) {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()
	if c.cancel != nil {
		return
	}

	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	ticker := c.clock.NewTicker(interval)

	done := c.done
	go func() {
		defer close(done)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				c.Cleanup()
			}
		}
	}()
}

// Close stops the cleanup goroutine and waits for it to exit.
// It is safe to call Close even if StartCleanupRoutine was never called.
func (c *Cache) Close() error {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()
	if c.cancel != nil {
		c.cancel()
		<-c.done
		c.cancel = nil
	}
	return nil
}

// removeLocked deletes key and releases its accounted size. Must be
// called with c.mu held.
func (c *Cache) removeLocked(key string, e *entry) {
	delete(c.entries, key)
	c.memory -= e.size
}

// evictLocked drops the first tenth of keys in sorted order. Key order
// stands in for recency; entries carry no access timestamps.
func (c *Cache) evictLocked() {
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	n := max(1, int(math.Floor(float64(len(keys))*evictFraction)))
	for _, k := range keys[:n] {
		c.removeLocked(k, c.entries[k])
	}
	slog.Info("cache eviction", "removed", n, "remaining", len(c.entries))
}

// prepare returns the representation actually stored for value.
func (c *Cache) prepare(value any, compress bool) (any, bool, error) {
	if !compress {
		return value, false, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, false, fmt.Errorf("serializing value: %w", err)
	}
	if len(data) <= c.cfg.CompressThreshold {
		return value, false, nil
	}
	return c.codec.encode(data), true, nil
}

// estimateSize approximates the memory held by an entry as twice the
// length of its JSON form. It is a monotonic heuristic, not byte-exact.
func estimateSize(key string, value any, expiresAt time.Time, tags []string) (int64, error) {
	data, err := json.Marshal(struct {
		Key     string   `json:"key"`
		Value   any      `json:"value"`
		Expires int64    `json:"expires"`
		Tags    []string `json:"tags"`
	}{key, value, expiresAt.UnixMilli(), tags})
	if err != nil {
		return 0, fmt.Errorf("estimating entry size: %w", err)
	}
	return int64(len(data)) * bytesPerChar, nil
}

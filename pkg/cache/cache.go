package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"

	"github.com/angelmondragon/gemline-backend/pkg/logger"
	"github.com/angelmondragon/gemline-backend/pkg/metrics"
)

// DefaultTTL applies when Set is called without a positive ttl.
const DefaultTTL = 5 * time.Minute

// Options configure a Cache.
type Options struct {
	// Persistent is optional; nil keeps the cache memory-only.
	Persistent PersistentStore
	Clock      clockwork.Clock
	Logger     *logger.Logger
	Metrics    *metrics.CacheMetrics
}

// Status describes an entry without touching it.
type Status struct {
	Exists bool   `json:"exists"`
	AgeMs  int64  `json:"ageMs"`
	Source Source `json:"source,omitempty"`
	Stale  bool   `json:"stale"`
}

type entry struct {
	data      json.RawMessage
	timestamp time.Time
	ttl       time.Duration
}

// record is the persisted form of an entry.
type record struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	TTL       int64           `json:"ttl"`
}

// Cache is a TTL memo with an optional persistent mirror for allow-listed keys.
// Persistent storage failures are logged and never returned.
type Cache struct {
	mu         sync.Mutex
	memory     map[Key]*entry
	persistent PersistentStore
	clock      clockwork.Clock
	logg       *logger.Logger
	metrics    *metrics.CacheMetrics
}

// New constructs a Cache.
func New(opts Options) (*Cache, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cache{
		memory:     make(map[Key]*entry),
		persistent: opts.Persistent,
		clock:      clock,
		logg:       opts.Logger,
		metrics:    opts.Metrics,
	}, nil
}

func (e *entry) stale(now time.Time) bool {
	return now.Sub(e.timestamp) > e.ttl
}

// Set stores data under key. The persistent mirror is written only when
// persistent is true and key is allow-listed.
func (c *Cache) Set(ctx context.Context, key Key, data any, ttl time.Duration, persistent bool) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	raw, err := json.Marshal(data)
	if err != nil {
		c.logStorageError(ctx, key, "encode", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry{data: raw, timestamp: c.clock.Now(), ttl: ttl}
	c.memory[key] = e

	if persistent && key.Persistable() {
		c.writePersistent(ctx, key, e)
	}
}

// Get decodes a live entry into dst and reports whether one was found.
func (c *Cache) Get(ctx context.Context, key Key, dst any) bool {
	raw, ok := c.GetRaw(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logStorageError(ctx, key, "decode", err)
		c.Clear(ctx, key)
		return false
	}
	return true
}

// GetRaw returns the JSON payload of a live entry.
func (c *Cache) GetRaw(ctx context.Context, key Key) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if e, ok := c.memory[key]; ok {
		if !e.stale(now) {
			c.metrics.IncHit(metrics.LayerMemory)
			return e.data, true
		}
		delete(c.memory, key)
		c.metrics.IncEviction(metrics.LayerMemory)
		if key.Persistable() {
			c.deletePersistent(ctx, key)
		}
		return nil, false
	}
	c.metrics.IncMiss(metrics.LayerMemory)

	if !key.Persistable() || c.persistent == nil {
		return nil, false
	}

	e, err := c.readPersistent(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		c.metrics.IncMiss(metrics.LayerPersistent)
		return nil, false
	case err != nil:
		c.logStorageError(ctx, key, "read", err)
		c.metrics.IncEviction(metrics.LayerPersistent)
		c.deletePersistent(ctx, key)
		return nil, false
	case e.stale(now):
		c.metrics.IncEviction(metrics.LayerPersistent)
		c.deletePersistent(ctx, key)
		return nil, false
	}

	c.memory[key] = e
	c.metrics.IncHit(metrics.LayerPersistent)
	return e.data, true
}

// Clear removes key from both layers.
func (c *Cache) Clear(ctx context.Context, key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked(ctx, key)
}

// ClearAll empties memory and every allow-listed persistent entry.
func (c *Cache) ClearAll(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.memory = make(map[Key]*entry)
	for _, key := range persistableKeys {
		c.deletePersistent(ctx, key)
	}
}

// Status reports whether an entry exists (live or stale), its age and the
// layer it was found in.
func (c *Cache) Status(ctx context.Context, key Key) Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if e, ok := c.memory[key]; ok {
		return Status{Exists: true, AgeMs: now.Sub(e.timestamp).Milliseconds(), Source: SourceMemory, Stale: e.stale(now)}
	}
	if !key.Persistable() || c.persistent == nil {
		return Status{}
	}
	e, err := c.readPersistent(ctx, key)
	if err != nil {
		return Status{}
	}
	return Status{Exists: true, AgeMs: now.Sub(e.timestamp).Milliseconds(), Source: SourcePersistent, Stale: e.stale(now)}
}

// InvalidateOnDataChange drops every key derived from data of the given
// type and returns the keys it cleared.
func (c *Cache) InvalidateOnDataChange(ctx context.Context, change ChangeType) []Key {
	keys := change.AffectedKeys()
	if len(keys) == 0 {
		c.logg.Warn(c.logg.WithField(ctx, "change_type", string(change)), "cache.invalidate.unknown_change")
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		c.clearLocked(ctx, key)
	}

	c.logg.Debug(c.logg.WithFields(ctx, map[string]any{"change_type": string(change), "keys": keys}), "cache.invalidated")
	return keys
}

// ClearOnHardReload drops every persistent entry when the process starts
// from a hard reload. Navigations keep the mirror intact.
func (c *Cache) ClearOnHardReload(ctx context.Context, kind LoadKind) bool {
	if kind != LoadReload {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range persistableKeys {
		c.deletePersistent(ctx, key)
	}
	c.logg.Info(ctx, "cache.persistent_cleared_on_reload")
	return true
}

func (c *Cache) clearLocked(ctx context.Context, key Key) {
	delete(c.memory, key)
	if key.Persistable() {
		c.deletePersistent(ctx, key)
	}
}

func (c *Cache) writePersistent(ctx context.Context, key Key, e *entry) {
	if c.persistent == nil {
		return
	}
	payload, err := json.Marshal(record{
		Data:      e.data,
		Timestamp: e.timestamp.UnixMilli(),
		TTL:       e.ttl.Milliseconds(),
	})
	if err != nil {
		c.logStorageError(ctx, key, "encode", err)
		return
	}
	if err := c.persistent.Set(ctx, key.StorageKey(), payload); err != nil {
		c.logStorageError(ctx, key, "write", err)
	}
}

func (c *Cache) readPersistent(ctx context.Context, key Key) (*entry, error) {
	payload, err := c.persistent.Get(ctx, key.StorageKey())
	if err != nil {
		return nil, err
	}
	var rec record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key.StorageKey(), err)
	}
	if len(rec.Data) == 0 {
		return nil, fmt.Errorf("decode %s: empty payload", key.StorageKey())
	}
	return &entry{
		data:      rec.Data,
		timestamp: time.UnixMilli(rec.Timestamp),
		ttl:       time.Duration(rec.TTL) * time.Millisecond,
	}, nil
}

func (c *Cache) deletePersistent(ctx context.Context, key Key) {
	if c.persistent == nil {
		return
	}
	if err := c.persistent.Delete(ctx, key.StorageKey()); err != nil && !errors.Is(err, ErrNotFound) {
		c.logStorageError(ctx, key, "delete", err)
	}
}

func (c *Cache) logStorageError(ctx context.Context, key Key, op string, err error) {
	c.metrics.IncStorageError(op)
	ctx = c.logg.WithFields(ctx, map[string]any{"cache_key": string(key), "op": op})
	c.logg.Error(ctx, "cache.storage_error", err)
}

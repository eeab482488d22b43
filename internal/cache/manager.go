package cache

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"forgedeck/internal/forge"
)

// Manager owns both cache layers. It is created once at process start and
// handed explicitly to the dispatcher, so tests construct isolated
// instances against temp directories.
//
// Consistency rules: a memory entry is always the freshest known value for
// its key, and anything on disk is loadable into memory verbatim. Reads
// never touch the network; staleness is advisory and reported to the
// caller, not enforced here.
type Manager struct {
	mem  *memoryLayer
	disk *diskLayer // nil when running memory-only
	ttls TTLTable
	log  *zap.Logger
}

// NewManager opens the disk layer at path and wires both layers together.
// A disk that cannot be opened degrades the whole manager to memory-only
// mode rather than failing: cache trouble must never take the app down.
func NewManager(path string, ttls TTLTable, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if ttls == nil {
		ttls = DefaultTTLs()
	}
	m := &Manager{mem: newMemoryLayer(), ttls: ttls, log: log}
	disk, err := openDiskLayer(path)
	if err != nil {
		log.Warn("cache: disk layer unavailable, running memory-only",
			zap.String("path", path), zap.Error(err))
		return m
	}
	m.disk = disk
	return m
}

// Close releases the disk layer.
func (m *Manager) Close() error {
	if m.disk == nil {
		return nil
	}
	return m.disk.close()
}

// Get returns the freshest known entry for key, consulting memory first
// and falling back to disk (populating memory on the way back). Corrupt or
// undecodable disk rows are deleted and reported as a miss.
func (m *Manager) Get(key forge.ResourceKey) (Entry, bool) {
	if e, ok := m.mem.get(key); ok {
		return e, true
	}
	if m.disk == nil {
		return Entry{}, false
	}
	e, ok, err := m.disk.get(key)
	if err != nil {
		m.log.Debug("cache: disk read degraded to miss",
			zap.String("key", key.String()), zap.Error(err))
		// Drop the unreadable row so it cannot keep tripping readers.
		_ = m.disk.delete(key)
		return Entry{}, false
	}
	if !ok {
		return Entry{}, false
	}
	m.mem.putIfNewer(e)
	return e, true
}

// Put writes a fetched value through both layers. The disk write is
// best-effort: on failure the entry stays memory-only for this session.
func (m *Manager) Put(key forge.ResourceKey, value any, fetchedAt time.Time) {
	m.mem.putIfNewer(Entry{Key: key, Value: value, FetchedAt: fetchedAt})
	if m.disk == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		m.log.Warn("cache: payload not serializable, entry stays memory-only",
			zap.String("key", key.String()), zap.Error(err))
		return
	}
	if err := m.disk.put(key, payload, fetchedAt); err != nil {
		m.log.Warn("cache: disk write failed, entry stays memory-only",
			zap.String("key", key.String()), zap.Error(err))
	}
}

// Invalidate purges the given keys from both layers. Called after a
// successful mutation so the next fetch goes to the provider.
func (m *Manager) Invalidate(keys ...forge.ResourceKey) {
	for _, key := range keys {
		m.mem.delete(key)
		if m.disk != nil {
			if err := m.disk.delete(key); err != nil {
				m.log.Warn("cache: disk invalidation failed",
					zap.String("key", key.String()), zap.Error(err))
			}
		}
	}
}

// Purge empties both layers. Backs the user-triggered full refresh and
// the `cache purge` CLI command.
func (m *Manager) Purge() {
	m.mem.purge()
	if m.disk != nil {
		if err := m.disk.purge(); err != nil {
			m.log.Warn("cache: disk purge failed", zap.Error(err))
		}
	}
}

// Stale reports whether an entry is past its kind's TTL at the given time.
func (m *Manager) Stale(e Entry, now time.Time) bool {
	return e.Age(now) > m.ttls.For(e.Key.Kind)
}

// TTLFor exposes the effective TTL for a kind.
func (m *Manager) TTLFor(kind forge.Kind) time.Duration {
	return m.ttls.For(kind)
}

// Len reports how many entries the memory layer currently holds.
func (m *Manager) Len() int { return m.mem.len() }

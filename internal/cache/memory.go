package cache

import (
	"sync"
	"time"

	"forgedeck/internal/forge"
)

// Entry is one cached value plus the metadata that drives staleness
// decisions. Value is the decoded normalized record; the serialized form
// lives only in the disk layer.
type Entry struct {
	Key       forge.ResourceKey
	Value     any
	FetchedAt time.Time
}

// Age returns how long ago the entry was fetched.
func (e Entry) Age(now time.Time) time.Duration { return now.Sub(e.FetchedAt) }

// memoryLayer is the authoritative in-session store. All access is behind
// one mutex so concurrent tasks always observe fully-written entries.
type memoryLayer struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func newMemoryLayer() *memoryLayer {
	return &memoryLayer{entries: map[string]Entry{}}
}

func (m *memoryLayer) get(key forge.ResourceKey) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key.String()]
	return e, ok
}

func (m *memoryLayer) put(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.Key.String()] = e
}

// putIfNewer installs e unless a strictly newer entry is already present.
// Concurrent writers to the same key serialize here; completion order wins
// except when a slow writer would clobber a fresher value.
func (m *memoryLayer) putIfNewer(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := e.Key.String()
	if cur, ok := m.entries[id]; ok && cur.FetchedAt.After(e.FetchedAt) {
		return
	}
	m.entries[id] = e
}

func (m *memoryLayer) delete(key forge.ResourceKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key.String())
}

func (m *memoryLayer) purge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = map[string]Entry{}
}

func (m *memoryLayer) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

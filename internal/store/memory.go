package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memoryEntry holds a value and its absolute expiry (zero = never expires).
type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

type indexEntry struct {
	score  float64
	member string
}

// MemoryBackend is the pure in-process fallback. TTLs are emulated by storing
// an absolute expiry and evicting lazily on the read that discovers it; there
// is no background sweep, so memory is only reclaimed on access.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	indexes map[string][]indexEntry

	// now is swappable for TTL tests.
	now func() time.Time
}

// NewMemoryBackend creates an empty in-process backend. Each instance is
// independent; construct one per test run rather than sharing a global.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]memoryEntry),
		indexes: make(map[string][]indexEntry),
		now:     time.Now,
	}
}

// Put stores value under key. A zero ttl means the entry never expires.
func (b *MemoryBackend) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = b.now().Add(ttl)
	}
	b.entries[key] = e
	return nil
}

// Get returns the value for key, or ErrNotFound if absent or expired.
// An expired entry is deleted by the read that discovers it.
func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	if !e.expiresAt.IsZero() && !b.now().Before(e.expiresAt) {
		delete(b.entries, key)
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

// Delete removes key and reports whether anything was removed. An expired
// entry counts as already gone.
func (b *MemoryBackend) Delete(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	if !ok {
		return false, nil
	}
	delete(b.entries, key)
	if !e.expiresAt.IsZero() && !b.now().Before(e.expiresAt) {
		return false, nil
	}
	return true, nil
}

// IndexAdd inserts or rescores member in the named index.
func (b *MemoryBackend) IndexAdd(_ context.Context, index string, score float64, member string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.indexes[index]
	for i := range entries {
		if entries[i].member == member {
			entries[i].score = score
			b.resort(index, entries)
			return nil
		}
	}
	entries = append(entries, indexEntry{score: score, member: member})
	b.resort(index, entries)
	return nil
}

// resort keeps an index sorted descending by score. Caller holds the lock.
func (b *MemoryBackend) resort(index string, entries []indexEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].score > entries[j].score
	})
	b.indexes[index] = entries
}

// IndexRangeDesc returns up to count members starting at offset, highest
// score first.
func (b *MemoryBackend) IndexRangeDesc(_ context.Context, index string, offset, count int) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entries := b.indexes[index]
	if offset >= len(entries) || count <= 0 {
		return nil, nil
	}
	end := offset + count
	if end > len(entries) {
		end = len(entries)
	}
	members := make([]string, 0, end-offset)
	for _, e := range entries[offset:end] {
		members = append(members, e.member)
	}
	return members, nil
}

// IndexRemove removes member from the named index if present.
func (b *MemoryBackend) IndexRemove(_ context.Context, index, member string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.indexes[index]
	for i := range entries {
		if entries[i].member == member {
			b.indexes[index] = append(entries[:i], entries[i+1:]...)
			return nil
		}
	}
	return nil
}

// Close releases nothing; memory backends have no external resources.
func (b *MemoryBackend) Close() error {
	return nil
}

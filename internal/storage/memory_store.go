package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// memoryStore keeps everything in process memory. It backs the "none" and
// "memory" storage types.
type memoryStore struct {
	mu        sync.RWMutex
	dedupe    bool
	ttl       time.Duration
	seen      map[string]time.Time
	snapshots map[string]Snapshot
	now       func() time.Time
}

func newMemoryStore(opts Options, dedupe bool) *memoryStore {
	opts = normalizeOptions(opts)
	return &memoryStore{
		dedupe:    dedupe,
		ttl:       opts.ArticleTTL,
		seen:      make(map[string]time.Time),
		snapshots: make(map[string]Snapshot),
		now:       time.Now,
	}
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) SeenArticle(key string) (bool, error) {
	if !m.dedupe {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.seen[key]
	if !ok {
		return false, nil
	}
	if !expiry.After(m.now()) {
		delete(m.seen, key)
		return false, nil
	}
	return true, nil
}

func (m *memoryStore) MarkArticle(key string) error {
	if !m.dedupe {
		return nil
	}
	m.mu.Lock()
	m.seen[key] = m.now().Add(m.ttl)
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) SaveSnapshot(s Snapshot) error {
	id := strings.TrimSpace(s.FeedID)
	if id == "" {
		return fmt.Errorf("snapshot feed id is empty")
	}
	m.mu.Lock()
	m.snapshots[id] = cloneSnapshot(s)
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) LoadSnapshot(feedID string) (Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.snapshots[feedID]
	if !ok {
		return Snapshot{}, false, nil
	}
	return cloneSnapshot(s), true, nil
}

func (m *memoryStore) ListSnapshots() ([]Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Snapshot, 0, len(m.snapshots))
	for _, s := range m.snapshots {
		out = append(out, cloneSnapshot(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FeedID < out[j].FeedID })
	return out, nil
}

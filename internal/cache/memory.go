package cache

import (
	"container/list"
	"sync"
)

// MemoryTier is the in-process cache tier. It holds at most maxEntries
// entries and evicts the oldest-inserted one when the cap is exceeded.
type MemoryTier struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
	maxEntries int
}

type memoryItem struct {
	key   string
	entry *Entry
}

// NewMemoryTier creates a bounded in-process tier.
func NewMemoryTier(maxEntries int) *MemoryTier {
	return &MemoryTier{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
	}
}

// Get returns the entry for key, if present.
func (t *MemoryTier) Get(key string) (*Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	elem, ok := t.entries[key]
	if !ok {
		return nil, false
	}
	return elem.Value.(*memoryItem).entry, true
}

// Set inserts or replaces the entry for key, evicting the oldest-inserted
// entry when the tier is full. Replacing keeps the original insertion slot.
func (t *MemoryTier) Set(key string, entry *Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if elem, ok := t.entries[key]; ok {
		elem.Value.(*memoryItem).entry = entry
		return
	}

	if t.order.Len() >= t.maxEntries {
		oldest := t.order.Front()
		if oldest != nil {
			t.order.Remove(oldest)
			delete(t.entries, oldest.Value.(*memoryItem).key)
		}
	}

	t.entries[key] = t.order.PushBack(&memoryItem{key: key, entry: entry})
}

// Delete removes the entry for key.
func (t *MemoryTier) Delete(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if elem, ok := t.entries[key]; ok {
		t.order.Remove(elem)
		delete(t.entries, key)
	}
}

// Len returns the number of cached entries.
func (t *MemoryTier) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.order.Len()
}

// Clear drops every entry.
func (t *MemoryTier) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[string]*list.Element)
	t.order.Init()
}

package cache_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/tesseract-hub/translation-gateway/internal/cache"
)

// fakeStore is an in-memory Store standing in for Redis.
type fakeStore struct {
	mu      sync.Mutex
	data    map[string]*cache.Entry
	ttls    map[string]time.Duration
	getErr  error
	deletes []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]*cache.Entry), ttls: make(map[string]time.Duration)}
}

func (s *fakeStore) Get(_ context.Context, key string) (*cache.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.data[key], nil
}

func (s *fakeStore) Set(_ context.Context, key string, entry *cache.Entry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry
	s.ttls[key] = ttl
	return nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	s.deletes = append(s.deletes, key)
	return nil
}

func (s *fakeStore) DeleteByPattern(_ context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			delete(s.data, key)
		}
	}
	return nil
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("component", "test")
}

func TestManager_SetThenGet(t *testing.T) {
	store := newFakeStore()
	m := cache.NewManager(store, cache.Options{Version: "v1"}, testLogger())

	m.Set(context.Background(), "Hello", "en", "es", &cache.Entry{TranslatedText: "Hola", Provider: "libre"})

	entry := m.Get(context.Background(), "Hello", "en", "es")
	require.NotNil(t, entry)
	require.Equal(t, "Hola", entry.TranslatedText)
	require.Equal(t, "v1", entry.Version)
	require.False(t, entry.CachedAt.IsZero())
}

func TestManager_MissOnDifferentPair(t *testing.T) {
	m := cache.NewManager(newFakeStore(), cache.Options{Version: "v1"}, testLogger())

	m.Set(context.Background(), "Hello", "en", "es", &cache.Entry{TranslatedText: "Hola"})

	require.Nil(t, m.Get(context.Background(), "Hello", "en", "fr"))
	require.Nil(t, m.Get(context.Background(), "Hello!", "en", "es"))
}

func TestManager_VersionMismatchIsMissAndDeletes(t *testing.T) {
	store := newFakeStore()
	key := cache.Key("Hello", "en", "es")
	store.data[key] = &cache.Entry{TranslatedText: "Hola", Version: "v1"}

	m := cache.NewManager(store, cache.Options{Version: "v2"}, testLogger())

	require.Nil(t, m.Get(context.Background(), "Hello", "en", "es"))
	require.Contains(t, store.deletes, key)
	require.NotContains(t, store.data, key)
}

func TestManager_StoreErrorFallsBackToMemory(t *testing.T) {
	store := newFakeStore()
	m := cache.NewManager(store, cache.Options{Version: "v1"}, testLogger())

	m.Set(context.Background(), "Hello", "en", "es", &cache.Entry{TranslatedText: "Hola"})

	store.mu.Lock()
	store.getErr = context.DeadlineExceeded
	store.mu.Unlock()

	entry := m.Get(context.Background(), "Hello", "en", "es")
	require.NotNil(t, entry)
	require.Equal(t, "Hola", entry.TranslatedText)
}

func TestManager_NilPersistentStore(t *testing.T) {
	m := cache.NewManager(nil, cache.Options{Version: "v1"}, testLogger())

	m.Set(context.Background(), "Hello", "en", "es", &cache.Entry{TranslatedText: "Hola"})
	entry := m.Get(context.Background(), "Hello", "en", "es")
	require.NotNil(t, entry)
	require.Equal(t, "Hola", entry.TranslatedText)
}

func TestManager_TTLPassedToStore(t *testing.T) {
	store := newFakeStore()
	m := cache.NewManager(store, cache.Options{Version: "v1", TTL: time.Hour}, testLogger())

	m.Set(context.Background(), "Hello", "en", "es", &cache.Entry{TranslatedText: "Hola"})

	require.Equal(t, time.Hour, store.ttls[cache.Key("Hello", "en", "es")])
}

func TestManager_BatchGetAligned(t *testing.T) {
	m := cache.NewManager(newFakeStore(), cache.Options{Version: "v1"}, testLogger())

	m.Set(context.Background(), "one", "en", "es", &cache.Entry{TranslatedText: "uno"})
	m.Set(context.Background(), "three", "en", "es", &cache.Entry{TranslatedText: "tres"})

	entries := m.BatchGet(context.Background(), []string{"one", "two", "three"}, "en", "es")
	require.Len(t, entries, 3)
	require.Equal(t, "uno", entries[0].TranslatedText)
	require.Nil(t, entries[1])
	require.Equal(t, "tres", entries[2].TranslatedText)
}

func TestManager_InvalidateLanguagePair(t *testing.T) {
	store := newFakeStore()
	m := cache.NewManager(store, cache.Options{Version: "v1"}, testLogger())

	m.Set(context.Background(), "Hello", "en", "es", &cache.Entry{TranslatedText: "Hola"})
	m.Set(context.Background(), "Hello", "en", "fr", &cache.Entry{TranslatedText: "Bonjour"})

	require.NoError(t, m.InvalidateLanguagePair(context.Background(), "en", "es"))

	require.Nil(t, m.Get(context.Background(), "Hello", "en", "es"))
	require.NotNil(t, m.Get(context.Background(), "Hello", "en", "fr"))
}

func TestKey_Deterministic(t *testing.T) {
	a := cache.Key("Hello", "en", "es")
	b := cache.Key("Hello", "en", "es")
	require.Equal(t, a, b)
	require.True(t, strings.HasPrefix(a, "trans:en:es:"))
	require.NotEqual(t, a, cache.Key("Hello", "en", "fr"))
}

func TestMemoryTier_EvictsOldestInserted(t *testing.T) {
	tier := cache.NewMemoryTier(2)

	tier.Set("a", &cache.Entry{TranslatedText: "A"})
	tier.Set("b", &cache.Entry{TranslatedText: "B"})
	tier.Set("c", &cache.Entry{TranslatedText: "C"})

	_, ok := tier.Get("a")
	require.False(t, ok)
	_, ok = tier.Get("b")
	require.True(t, ok)
	_, ok = tier.Get("c")
	require.True(t, ok)
	require.Equal(t, 2, tier.Len())
}

func TestMemoryTier_ReplaceKeepsInsertionSlot(t *testing.T) {
	tier := cache.NewMemoryTier(2)

	tier.Set("a", &cache.Entry{TranslatedText: "A"})
	tier.Set("b", &cache.Entry{TranslatedText: "B"})
	// Rewriting "a" must not refresh its eviction position.
	tier.Set("a", &cache.Entry{TranslatedText: "A2"})
	tier.Set("c", &cache.Entry{TranslatedText: "C"})

	_, ok := tier.Get("a")
	require.False(t, ok)
	entry, ok := tier.Get("b")
	require.True(t, ok)
	require.Equal(t, "B", entry.TranslatedText)
}

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/translation-gateway/internal/scoring"
)

// Entry is one cached translation. Entries are stamped with the cache format
// version; a stored version that doesn't match the configured one is treated
// as a miss and deleted on read.
type Entry struct {
	TranslatedText string                `json:"translated_text"`
	Provider       string                `json:"provider"`
	Version        string                `json:"version"`
	Quality        *scoring.QualityScore `json:"quality,omitempty"`
	CachedAt       time.Time             `json:"cached_at"`
}

// Store is a persistent key-value store with TTL semantics. The Redis tier
// implements it; tests substitute fakes.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Key builds the cache key for a translation, namespaced by language pair.
func Key(sourceText, sourceLang, targetLang string) string {
	sum := sha256.Sum256([]byte(sourceLang + "|" + targetLang + "|" + sourceText))
	return fmt.Sprintf("trans:%s:%s:%s", sourceLang, targetLang, hex.EncodeToString(sum[:]))
}

// Manager is the two-tier translation cache. Reads consult the persistent
// tier first, then the in-process memory tier; writes go to both.
type Manager struct {
	persistent Store
	memory     *MemoryTier
	version    string
	ttl        time.Duration
	logger     *logrus.Entry
}

// Options configures a Manager.
type Options struct {
	Version    string
	TTL        time.Duration
	MaxEntries int
}

// NewManager creates a cache manager. persistent may be nil when the store is
// unavailable; the memory tier then carries everything.
func NewManager(persistent Store, opts Options, logger *logrus.Entry) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = 30 * 24 * time.Hour
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 10000
	}
	return &Manager{
		persistent: persistent,
		memory:     NewMemoryTier(opts.MaxEntries),
		version:    opts.Version,
		ttl:        opts.TTL,
		logger:     logger,
	}
}

// Get returns the cached entry for (sourceText, sourceLang, targetLang), or
// nil on a miss. Store errors are logged and treated as misses.
func (m *Manager) Get(ctx context.Context, sourceText, sourceLang, targetLang string) *Entry {
	key := Key(sourceText, sourceLang, targetLang)

	if m.persistent != nil {
		entry, err := m.persistent.Get(ctx, key)
		if err != nil {
			m.logger.WithError(err).Warn("Persistent cache read failed")
		} else if entry != nil {
			if entry.Version == m.version {
				return entry
			}
			// Stale format; drop it so it never resurfaces.
			if err := m.persistent.Delete(ctx, key); err != nil {
				m.logger.WithError(err).Warn("Failed to delete stale cache entry")
			}
		}
	}

	if entry, ok := m.memory.Get(key); ok {
		if entry.Version == m.version {
			return entry
		}
		m.memory.Delete(key)
	}

	return nil
}

// Set writes the entry to both tiers. Persistent-tier errors are logged and
// swallowed.
func (m *Manager) Set(ctx context.Context, sourceText, sourceLang, targetLang string, entry *Entry) {
	entry.Version = m.version
	if entry.CachedAt.IsZero() {
		entry.CachedAt = time.Now()
	}
	key := Key(sourceText, sourceLang, targetLang)

	if m.persistent != nil {
		if err := m.persistent.Set(ctx, key, entry, m.ttl); err != nil {
			m.logger.WithError(err).Warn("Persistent cache write failed")
		}
	}
	m.memory.Set(key, entry)
}

// BatchGet looks up all requested texts concurrently. The returned slice is
// index-aligned with texts; misses are nil.
func (m *Manager) BatchGet(ctx context.Context, texts []string, sourceLang, targetLang string) []*Entry {
	entries := make([]*Entry, len(texts))
	var wg sync.WaitGroup
	for i, text := range texts {
		wg.Add(1)
		go func(idx int, t string) {
			defer wg.Done()
			entries[idx] = m.Get(ctx, t, sourceLang, targetLang)
		}(i, text)
	}
	wg.Wait()
	return entries
}

// BatchSet writes all entries concurrently. entries is index-aligned with
// texts; nil entries are skipped.
func (m *Manager) BatchSet(ctx context.Context, texts []string, sourceLang, targetLang string, entries []*Entry) {
	var wg sync.WaitGroup
	for i := range texts {
		if i >= len(entries) || entries[i] == nil {
			continue
		}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			m.Set(ctx, texts[idx], sourceLang, targetLang, entries[idx])
		}(i)
	}
	wg.Wait()
}

// InvalidateLanguagePair drops every persistent entry for a language pair.
func (m *Manager) InvalidateLanguagePair(ctx context.Context, sourceLang, targetLang string) error {
	m.memory.Clear()
	if purger, ok := m.persistent.(PatternPurger); ok {
		return purger.DeleteByPattern(ctx, fmt.Sprintf("trans:%s:%s:*", sourceLang, targetLang))
	}
	return nil
}

// PatternPurger is implemented by persistent stores that support wildcard
// deletes.
type PatternPurger interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// HealthChecker is implemented by persistent stores that can be pinged.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthCheck pings the persistent tier. A nil store is healthy; the memory
// tier carries everything then.
func (m *Manager) HealthCheck(ctx context.Context) error {
	if checker, ok := m.persistent.(HealthChecker); ok {
		return checker.HealthCheck(ctx)
	}
	return nil
}

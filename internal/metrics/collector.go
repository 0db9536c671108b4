package metrics

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Entry records one provider call or cache lookup outcome.
type Entry struct {
	Timestamp    time.Time     `json:"timestamp"`
	Provider     string        `json:"provider"`
	SourceLang   string        `json:"source_lang"`
	TargetLang   string        `json:"target_lang"`
	ResponseTime time.Duration `json:"response_time"`
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
	Quality      *float64      `json:"quality,omitempty"`
	FromCache    bool          `json:"from_cache"`
	TextLength   int           `json:"text_length"`
}

// DefaultCapacity bounds the ring buffer when none is configured.
const DefaultCapacity = 10000

// Thresholds configures degradation detection. A zero value gets defaults.
type Thresholds struct {
	MaxErrorRate         float64       // overall, exceeded when strictly greater
	MaxProviderErrorRate float64       // per provider
	MaxProviderLatency   time.Duration // per provider average
	MinCacheHitRate      float64       // overall, breached when strictly lower
}

// DefaultThresholds returns the stock degradation thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxErrorRate:         0.10,
		MaxProviderErrorRate: 0.20,
		MaxProviderLatency:   10 * time.Second,
		MinCacheHitRate:      0.30,
	}
}

// Collector is a process-wide, concurrency-safe event log with a fixed
// capacity: once full, the oldest entries are silently dropped.
type Collector struct {
	mu         sync.RWMutex
	entries    []Entry
	next       int
	size       int
	capacity   int
	thresholds Thresholds
}

// NewCollector creates a collector with the given ring-buffer capacity.
func NewCollector(capacity int, thresholds Thresholds) *Collector {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if thresholds == (Thresholds{}) {
		thresholds = DefaultThresholds()
	}
	return &Collector{
		entries:    make([]Entry, capacity),
		capacity:   capacity,
		thresholds: thresholds,
	}
}

// Record appends an entry, dropping the oldest when the buffer is full.
func (c *Collector) Record(entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.next] = entry
	c.next = (c.next + 1) % c.capacity
	if c.size < c.capacity {
		c.size++
	}
}

// Len returns the number of retained entries.
func (c *Collector) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.size
}

// snapshot copies retained entries oldest-first. Caller must not hold the lock.
func (c *Collector) snapshot() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, 0, c.size)
	start := 0
	if c.size == c.capacity {
		start = c.next
	}
	for i := 0; i < c.size; i++ {
		out = append(out, c.entries[(start+i)%c.capacity])
	}
	return out
}

// ProviderStats aggregates per-provider outcomes.
type ProviderStats struct {
	Total        int64         `json:"total"`
	Success      int64         `json:"success"`
	Failure      int64         `json:"failure"`
	AvgLatency   time.Duration `json:"avg_latency"`
	AvgQuality   float64       `json:"avg_quality"`
	qualityCount int64
}

// LanguageCount pairs a target language with its request count.
type LanguageCount struct {
	Language string `json:"language"`
	Count    int64  `json:"count"`
}

// Summary is the on-demand aggregate view of the collector.
type Summary struct {
	TotalEntries       int                      `json:"total_entries"`
	CacheLookups       int64                    `json:"cache_lookups"`
	CacheHitRate       float64                  `json:"cache_hit_rate"`
	ErrorRate          float64                  `json:"error_rate"`
	AvgQuality         float64                  `json:"avg_quality"`
	Providers          map[string]ProviderStats `json:"providers"`
	TopTargetLanguages []LanguageCount          `json:"top_target_languages"`
}

// Aggregate computes summary statistics over the retained entries. topN
// bounds the most-requested-target-languages list.
func (c *Collector) Aggregate(topN int) Summary {
	entries := c.snapshot()

	summary := Summary{
		TotalEntries: len(entries),
		Providers:    make(map[string]ProviderStats),
	}
	if len(entries) == 0 {
		return summary
	}

	var (
		cacheLookups, cacheHits int64
		calls, failures         int64
		qualitySum              float64
		qualityCount            int64
		langCounts              = make(map[string]int64)
	)

	for _, e := range entries {
		langCounts[e.TargetLang]++

		// Cache lookups carry no provider name; FromCache marks the hit.
		if e.Provider == "" {
			cacheLookups++
			if e.FromCache {
				cacheHits++
			}
			continue
		}

		calls++
		stats := summary.Providers[e.Provider]
		stats.Total++
		if e.Success {
			stats.Success++
		} else {
			stats.Failure++
			failures++
		}
		stats.AvgLatency += e.ResponseTime // running sum until the final pass
		if e.Quality != nil {
			stats.AvgQuality += *e.Quality
			stats.qualityCount++
			qualitySum += *e.Quality
			qualityCount++
		}
		summary.Providers[e.Provider] = stats
	}

	for name, stats := range summary.Providers {
		if stats.Total > 0 {
			stats.AvgLatency = time.Duration(int64(stats.AvgLatency) / stats.Total)
		}
		if stats.qualityCount > 0 {
			stats.AvgQuality /= float64(stats.qualityCount)
		}
		summary.Providers[name] = stats
	}

	summary.CacheLookups = cacheLookups
	if cacheLookups > 0 {
		summary.CacheHitRate = float64(cacheHits) / float64(cacheLookups)
	}
	if calls > 0 {
		summary.ErrorRate = float64(failures) / float64(calls)
	}
	if qualityCount > 0 {
		summary.AvgQuality = qualitySum / float64(qualityCount)
	}

	if topN > 0 {
		top := make([]LanguageCount, 0, len(langCounts))
		for lang, count := range langCounts {
			if lang == "" {
				continue
			}
			top = append(top, LanguageCount{Language: lang, Count: count})
		}
		sort.Slice(top, func(i, j int) bool {
			if top[i].Count != top[j].Count {
				return top[i].Count > top[j].Count
			}
			return top[i].Language < top[j].Language
		})
		if len(top) > topN {
			top = top[:topN]
		}
		summary.TopTargetLanguages = top
	}

	return summary
}

// CheckDegradation reports whether any configured threshold is exceeded,
// with one issue string per breach. An empty buffer is never degraded.
func (c *Collector) CheckDegradation() (bool, []string) {
	summary := c.Aggregate(0)
	if summary.TotalEntries == 0 {
		return false, nil
	}

	var issues []string

	if summary.ErrorRate > c.thresholds.MaxErrorRate {
		issues = append(issues, fmt.Sprintf("overall error rate %.1f%% exceeds %.1f%%",
			summary.ErrorRate*100, c.thresholds.MaxErrorRate*100))
	}

	for name, stats := range summary.Providers {
		if stats.Total == 0 {
			continue
		}
		errRate := float64(stats.Failure) / float64(stats.Total)
		if errRate > c.thresholds.MaxProviderErrorRate {
			issues = append(issues, fmt.Sprintf("provider %s error rate %.1f%% exceeds %.1f%%",
				name, errRate*100, c.thresholds.MaxProviderErrorRate*100))
		}
		if stats.AvgLatency > c.thresholds.MaxProviderLatency {
			issues = append(issues, fmt.Sprintf("provider %s average latency %s exceeds %s",
				name, stats.AvgLatency, c.thresholds.MaxProviderLatency))
		}
	}

	// The hit rate is only meaningful once at least one lookup was recorded.
	if summary.CacheLookups > 0 && summary.CacheHitRate < c.thresholds.MinCacheHitRate {
		issues = append(issues, fmt.Sprintf("cache hit rate %.1f%% below %.1f%%",
			summary.CacheHitRate*100, c.thresholds.MinCacheHitRate*100))
	}

	sort.Strings(issues)
	return len(issues) > 0, issues
}

package metrics_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tesseract-hub/translation-gateway/internal/metrics"
)

func quality(v float64) *float64 { return &v }

func TestRecord_RingBufferDropsOldest(t *testing.T) {
	c := metrics.NewCollector(3, metrics.DefaultThresholds())

	for i := 0; i < 5; i++ {
		c.Record(metrics.Entry{Provider: "p", TargetLang: fmt.Sprintf("l%d", i), Success: true})
	}

	require.Equal(t, 3, c.Len())

	// Only the three newest target languages survive.
	summary := c.Aggregate(10)
	require.Len(t, summary.TopTargetLanguages, 3)
	langs := make([]string, 0, 3)
	for _, lc := range summary.TopTargetLanguages {
		langs = append(langs, lc.Language)
	}
	require.ElementsMatch(t, []string{"l2", "l3", "l4"}, langs)
}

func TestAggregate_ProviderStats(t *testing.T) {
	c := metrics.NewCollector(100, metrics.DefaultThresholds())

	c.Record(metrics.Entry{Provider: "libre", TargetLang: "es", Success: true, ResponseTime: 100 * time.Millisecond, Quality: quality(0.9)})
	c.Record(metrics.Entry{Provider: "libre", TargetLang: "es", Success: true, ResponseTime: 300 * time.Millisecond, Quality: quality(0.7)})
	c.Record(metrics.Entry{Provider: "libre", TargetLang: "fr", Success: false, ResponseTime: 50 * time.Millisecond, Error: "boom"})
	c.Record(metrics.Entry{Provider: "hf", TargetLang: "es", Success: true, ResponseTime: 2 * time.Second})

	summary := c.Aggregate(5)

	require.Equal(t, 4, summary.TotalEntries)
	require.InDelta(t, 0.25, summary.ErrorRate, 1e-9)
	require.InDelta(t, 0.8, summary.AvgQuality, 1e-9)

	libre := summary.Providers["libre"]
	require.EqualValues(t, 3, libre.Total)
	require.EqualValues(t, 2, libre.Success)
	require.EqualValues(t, 1, libre.Failure)
	require.Equal(t, 150*time.Millisecond, libre.AvgLatency)
	require.InDelta(t, 0.8, libre.AvgQuality, 1e-9)

	require.Equal(t, "es", summary.TopTargetLanguages[0].Language)
	require.EqualValues(t, 3, summary.TopTargetLanguages[0].Count)
}

func TestAggregate_CacheHitRate(t *testing.T) {
	c := metrics.NewCollector(100, metrics.DefaultThresholds())

	// Cache lookups carry no provider name.
	c.Record(metrics.Entry{TargetLang: "es", FromCache: true, Success: true})
	c.Record(metrics.Entry{TargetLang: "es", FromCache: true, Success: true})
	c.Record(metrics.Entry{TargetLang: "es", FromCache: false})
	c.Record(metrics.Entry{Provider: "libre", TargetLang: "es", Success: true})

	summary := c.Aggregate(0)
	require.EqualValues(t, 3, summary.CacheLookups)
	require.InDelta(t, 2.0/3.0, summary.CacheHitRate, 1e-9)
	// Provider calls don't count toward the hit rate.
	require.InDelta(t, 0.0, summary.ErrorRate, 1e-9)
}

func TestAggregate_Empty(t *testing.T) {
	c := metrics.NewCollector(10, metrics.DefaultThresholds())
	summary := c.Aggregate(5)
	require.Equal(t, 0, summary.TotalEntries)
	require.Empty(t, summary.Providers)
	require.Empty(t, summary.TopTargetLanguages)
}

func TestCheckDegradation_EmptyBufferHealthy(t *testing.T) {
	c := metrics.NewCollector(10, metrics.DefaultThresholds())
	degraded, issues := c.CheckDegradation()
	require.False(t, degraded)
	require.Empty(t, issues)
}

func TestCheckDegradation_ErrorRateBoundary(t *testing.T) {
	thresholds := metrics.Thresholds{
		MaxErrorRate:         0.10,
		MaxProviderErrorRate: 0.50,
		MaxProviderLatency:   time.Minute,
		MinCacheHitRate:      0.0,
	}

	t.Run("exactly at threshold is healthy", func(t *testing.T) {
		c := metrics.NewCollector(100, thresholds)
		// 1 failure in 10 calls: exactly 10%.
		c.Record(metrics.Entry{Provider: "p", Success: false})
		for i := 0; i < 9; i++ {
			c.Record(metrics.Entry{Provider: "p", Success: true})
		}
		degraded, _ := c.CheckDegradation()
		require.False(t, degraded)
	})

	t.Run("just over threshold is degraded", func(t *testing.T) {
		c := metrics.NewCollector(100, thresholds)
		// 2 failures in 10 calls: 20%.
		c.Record(metrics.Entry{Provider: "p", Success: false})
		c.Record(metrics.Entry{Provider: "p", Success: false})
		for i := 0; i < 8; i++ {
			c.Record(metrics.Entry{Provider: "p", Success: true})
		}
		degraded, issues := c.CheckDegradation()
		require.True(t, degraded)
		require.Len(t, issues, 1)
		require.Contains(t, issues[0], "error rate")
	})
}

func TestCheckDegradation_ProviderLatency(t *testing.T) {
	thresholds := metrics.Thresholds{
		MaxErrorRate:         1.0,
		MaxProviderErrorRate: 1.0,
		MaxProviderLatency:   time.Second,
		MinCacheHitRate:      0.0,
	}
	c := metrics.NewCollector(100, thresholds)
	c.Record(metrics.Entry{Provider: "slow", Success: true, ResponseTime: 3 * time.Second})
	c.Record(metrics.Entry{Provider: "fast", Success: true, ResponseTime: 10 * time.Millisecond})

	degraded, issues := c.CheckDegradation()
	require.True(t, degraded)
	require.Len(t, issues, 1)
	require.Contains(t, issues[0], "slow")
}

func TestCheckDegradation_CacheHitRateOnlyWithLookups(t *testing.T) {
	thresholds := metrics.Thresholds{
		MaxErrorRate:         1.0,
		MaxProviderErrorRate: 1.0,
		MaxProviderLatency:   time.Minute,
		MinCacheHitRate:      0.30,
	}

	t.Run("no lookups recorded", func(t *testing.T) {
		c := metrics.NewCollector(100, thresholds)
		c.Record(metrics.Entry{Provider: "p", Success: true})
		degraded, _ := c.CheckDegradation()
		require.False(t, degraded)
	})

	t.Run("all misses", func(t *testing.T) {
		c := metrics.NewCollector(100, thresholds)
		c.Record(metrics.Entry{FromCache: false})
		c.Record(metrics.Entry{FromCache: false})
		degraded, issues := c.CheckDegradation()
		require.True(t, degraded)
		require.Contains(t, issues[0], "cache hit rate")
	})
}

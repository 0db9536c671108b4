package orchestrator

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/tesseract-hub/translation-gateway/internal/cache"
	"github.com/tesseract-hub/translation-gateway/internal/metrics"
	"github.com/tesseract-hub/translation-gateway/internal/providers"
	"github.com/tesseract-hub/translation-gateway/internal/scoring"
)

// Translation is what the orchestrator hands back to callers.
type Translation struct {
	TranslatedText string
	SourceLang     string
	TargetLang     string
	Provider       string
	Quality        *scoring.QualityScore
	FromCache      bool
}

// Config tunes the orchestrator.
type Config struct {
	// QualityThreshold is the minimum passing overall score.
	QualityThreshold float64
	// BatchGroupSize partitions batches when no native-batch provider is up.
	BatchGroupSize int
	// BatchConcurrency bounds simultaneous in-flight per-item calls.
	BatchConcurrency int
}

// ArchiveLookup is a durable fallback store consulted after both cache tiers
// miss, before any provider is called. Implementations return ok=false on a
// miss or any error.
type ArchiveLookup interface {
	LookupTranslation(ctx context.Context, sourceText, sourceLang, targetLang string) (*Translation, bool)
}

// Orchestrator races the configured providers, scores their candidates,
// caches the winner and records every outcome.
type Orchestrator struct {
	providers []providers.Provider
	cache     *cache.Manager
	collector *metrics.Collector
	archive   ArchiveLookup
	logger    *logrus.Entry

	threshold        float64
	batchGroupSize   int
	batchConcurrency int

	// Concurrent misses on the same cold key are coalesced so only one
	// provider race runs per (text, source, target) at a time.
	flight singleflight.Group
}

// New creates an orchestrator. Providers are kept sorted by priority weight,
// highest first; construction order breaks ties. archive may be nil when no
// durable fallback store is wired.
func New(provs []providers.Provider, cacheManager *cache.Manager, collector *metrics.Collector, archive ArchiveLookup, cfg Config, logger *logrus.Entry) *Orchestrator {
	sorted := make([]providers.Provider, len(provs))
	copy(sorted, provs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Weight() > sorted[j].Weight()
	})

	if cfg.QualityThreshold <= 0 {
		cfg.QualityThreshold = scoring.DefaultThreshold
	}
	if cfg.BatchGroupSize <= 0 {
		cfg.BatchGroupSize = 10
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 5
	}

	names := make([]string, len(sorted))
	for i, p := range sorted {
		names[i] = p.Name()
	}
	logger.WithField("providers", names).Info("Translation orchestrator initialized")

	return &Orchestrator{
		providers:        sorted,
		cache:            cacheManager,
		collector:        collector,
		archive:          archive,
		logger:           logger,
		threshold:        cfg.QualityThreshold,
		batchGroupSize:   cfg.BatchGroupSize,
		batchConcurrency: cfg.BatchConcurrency,
	}
}

var errEmptyAfterSanitize = fmt.Errorf("empty text after sanitization")

var (
	scriptTagPattern     = regexp.MustCompile(`(?is)<\s*script[^>]*>.*?<\s*/\s*script\s*>`)
	danglingScriptTag    = regexp.MustCompile(`(?i)<\s*/?\s*script[^>]*>`)
	eventHandlerPattern  = regexp.MustCompile(`(?i)\bon[a-z]+\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]+)`)
	javascriptURLPattern = regexp.MustCompile(`(?i)javascript\s*:`)
)

// Sanitize strips script-tag-like sequences and inline event-handler-like
// attribute patterns before the text reaches any backend.
func Sanitize(text string) string {
	text = scriptTagPattern.ReplaceAllString(text, "")
	text = danglingScriptTag.ReplaceAllString(text, "")
	text = eventHandlerPattern.ReplaceAllString(text, "")
	text = javascriptURLPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Translate resolves one text into the target language: cache lookup, then a
// provider race on a miss, quality selection among the successes, cache write
// and metrics on the way out.
func (o *Orchestrator) Translate(ctx context.Context, text, sourceLang, targetLang string) (*Translation, error) {
	text = Sanitize(text)
	if text == "" {
		return nil, errEmptyAfterSanitize
	}

	if entry := o.cache.Get(ctx, text, sourceLang, targetLang); entry != nil {
		o.collector.Record(metrics.Entry{
			SourceLang: sourceLang,
			TargetLang: targetLang,
			Success:    true,
			FromCache:  true,
			TextLength: len(text),
		})
		return &Translation{
			TranslatedText: entry.TranslatedText,
			SourceLang:     sourceLang,
			TargetLang:     targetLang,
			Provider:       entry.Provider,
			Quality:        entry.Quality,
			FromCache:      true,
		}, nil
	}

	o.collector.Record(metrics.Entry{
		SourceLang: sourceLang,
		TargetLang: targetLang,
		FromCache:  false,
		TextLength: len(text),
	})

	v, err, _ := o.flight.Do(cache.Key(text, sourceLang, targetLang), func() (any, error) {
		return o.translateUncached(ctx, text, sourceLang, targetLang)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Translation), nil
}

func (o *Orchestrator) translateUncached(ctx context.Context, text, sourceLang, targetLang string) (*Translation, error) {
	// The durable archive may still hold the pair after a cache flush or a
	// version bump; a hit rewarms the hot cache and skips the providers.
	if o.archive != nil {
		if archived, ok := o.archive.LookupTranslation(ctx, text, sourceLang, targetLang); ok && archived.TranslatedText != "" {
			o.cache.Set(ctx, text, sourceLang, targetLang, &cache.Entry{
				TranslatedText: archived.TranslatedText,
				Provider:       archived.Provider,
				Quality:        archived.Quality,
			})
			archived.SourceLang = sourceLang
			archived.TargetLang = targetLang
			archived.FromCache = true
			return archived, nil
		}
	}

	eligible := o.eligibleProviders(ctx, sourceLang, targetLang)
	if len(eligible) == 0 {
		return nil, &AggregateError{
			SourceLang: sourceLang,
			TargetLang: targetLang,
			Failures:   []Failure{{Provider: "none", Message: "no available provider supports this language pair"}},
		}
	}

	outcomes := o.race(ctx, eligible, text, sourceLang, targetLang)

	successes := make([]outcome, 0, len(outcomes))
	failures := make([]Failure, 0, len(outcomes))
	for _, out := range outcomes {
		if out.err != nil {
			o.recordAttempt(out.provider, sourceLang, targetLang, out.latency, len(text), out.err, nil)
			failures = append(failures, Failure{Provider: out.provider, Message: out.err.Error()})
			continue
		}
		successes = append(successes, out)
	}

	if len(successes) == 0 {
		// Parallel racing got nothing; walk the chain once more, one
		// provider at a time, and take the first success.
		out, retryFailures := o.retrySequential(ctx, eligible, text, sourceLang, targetLang)
		failures = append(failures, retryFailures...)
		if out == nil {
			return nil, &AggregateError{SourceLang: sourceLang, TargetLang: targetLang, Failures: failures}
		}
		successes = append(successes, *out)
	}

	best := o.selectBest(text, sourceLang, targetLang, successes)

	// Successful attempts are recorded once scored so the collector's
	// quality averages reflect what the providers actually produced.
	for _, s := range successes {
		quality := s.quality.Overall
		o.recordAttempt(s.provider, sourceLang, targetLang, s.latency, len(text), nil, &quality)
	}

	if !best.quality.Passes {
		o.logger.WithFields(logrus.Fields{
			"provider":    best.provider,
			"score":       best.quality.Overall,
			"threshold":   o.threshold,
			"issues":      best.quality.Issues,
			"source_lang": sourceLang,
			"target_lang": targetLang,
		}).Warn("Best candidate below quality threshold, returning best effort")
	}

	o.cache.Set(ctx, text, sourceLang, targetLang, &cache.Entry{
		TranslatedText: best.result.TranslatedText,
		Provider:       best.provider,
		Quality:        &best.quality,
	})

	return &Translation{
		TranslatedText: best.result.TranslatedText,
		SourceLang:     sourceLang,
		TargetLang:     targetLang,
		Provider:       best.provider,
		Quality:        &best.quality,
	}, nil
}

type outcome struct {
	provider string
	rank     int // position in the priority-sorted eligible list
	result   *providers.Result
	quality  scoring.QualityScore
	latency  time.Duration
	err      error
}

// eligibleProviders filters to available providers supporting the pair,
// preserving priority order.
func (o *Orchestrator) eligibleProviders(ctx context.Context, sourceLang, targetLang string) []providers.Provider {
	eligible := make([]providers.Provider, 0, len(o.providers))
	for _, p := range o.providers {
		if !p.IsAvailable(ctx) {
			o.logger.WithField("provider", p.Name()).Debug("Skipping unavailable provider")
			continue
		}
		if !p.SupportsLanguagePair(sourceLang, targetLang) {
			o.logger.WithFields(logrus.Fields{
				"provider":    p.Name(),
				"source_lang": sourceLang,
				"target_lang": targetLang,
			}).Debug("Provider doesn't support language pair")
			continue
		}
		eligible = append(eligible, p)
	}
	return eligible
}

// race launches every eligible provider concurrently, each under its own
// timeout, and collects every outcome. A slow provider never delays or
// cancels its siblings; the whole phase lasts at most the largest timeout.
func (o *Orchestrator) race(ctx context.Context, eligible []providers.Provider, text, sourceLang, targetLang string) []outcome {
	results := make(chan outcome, len(eligible))

	for rank, p := range eligible {
		go func(rank int, p providers.Provider) {
			callCtx, cancel := context.WithTimeout(ctx, p.Timeout())
			defer cancel()

			start := time.Now()
			result, err := p.Translate(callCtx, text, sourceLang, targetLang)
			latency := time.Since(start)

			if err != nil && callCtx.Err() == context.DeadlineExceeded {
				err = &providers.Error{Provider: p.Name(), Kind: providers.ErrTimeout, Err: callCtx.Err()}
			}

			results <- outcome{provider: p.Name(), rank: rank, result: result, latency: latency, err: err}
		}(rank, p)
	}

	outcomes := make([]outcome, 0, len(eligible))
	for range eligible {
		outcomes = append(outcomes, <-results)
	}
	return outcomes
}

// retrySequential walks the eligible list in priority order and returns the
// first success, or every failure when none succeeds.
func (o *Orchestrator) retrySequential(ctx context.Context, eligible []providers.Provider, text, sourceLang, targetLang string) (*outcome, []Failure) {
	var failures []Failure

	for rank, p := range eligible {
		callCtx, cancel := context.WithTimeout(ctx, p.Timeout())
		start := time.Now()
		result, err := p.Translate(callCtx, text, sourceLang, targetLang)
		latency := time.Since(start)
		if err != nil && callCtx.Err() == context.DeadlineExceeded {
			err = &providers.Error{Provider: p.Name(), Kind: providers.ErrTimeout, Err: callCtx.Err()}
		}
		cancel()

		if err != nil {
			o.recordAttempt(p.Name(), sourceLang, targetLang, latency, len(text), err, nil)
			failures = append(failures, Failure{Provider: p.Name(), Message: "retry: " + err.Error()})
			continue
		}
		return &outcome{provider: p.Name(), rank: rank, result: result, latency: latency}, failures
	}
	return nil, failures
}

// selectBest scores every successful candidate and picks the highest score.
// Ties go to the candidate from the higher-priority provider.
func (o *Orchestrator) selectBest(text, sourceLang, targetLang string, successes []outcome) outcome {
	for i := range successes {
		successes[i].quality = scoring.Score(text, successes[i].result.TranslatedText, sourceLang, targetLang, o.threshold)
	}

	best := successes[0]
	for _, cand := range successes[1:] {
		if cand.quality.Overall > best.quality.Overall ||
			(cand.quality.Overall == best.quality.Overall && cand.rank < best.rank) {
			best = cand
		}
	}
	return best
}

func (o *Orchestrator) recordAttempt(provider, sourceLang, targetLang string, latency time.Duration, textLen int, err error, quality *float64) {
	entry := metrics.Entry{
		Provider:     provider,
		SourceLang:   sourceLang,
		TargetLang:   targetLang,
		ResponseTime: latency,
		Success:      err == nil,
		Quality:      quality,
		TextLength:   textLen,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	o.collector.Record(entry)
}

// Providers returns the configured provider names in priority order.
func (o *Orchestrator) Providers() []string {
	names := make([]string, len(o.providers))
	for i, p := range o.providers {
		names[i] = p.Name()
	}
	return names
}

// ProviderAvailability reports each configured provider's current availability.
func (o *Orchestrator) ProviderAvailability(ctx context.Context) map[string]bool {
	availability := make(map[string]bool, len(o.providers))
	for _, p := range o.providers {
		availability[p.Name()] = p.IsAvailable(ctx)
	}
	return availability
}

// Failure is one provider's error inside an aggregate failure.
type Failure struct {
	Provider string `json:"provider"`
	Message  string `json:"message"`
}

// AggregateError carries every collected provider error after both the
// parallel race and the sequential retry are exhausted.
type AggregateError struct {
	SourceLang string
	TargetLang string
	Failures   []Failure
}

func (e *AggregateError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %s", f.Provider, f.Message)
	}
	return fmt.Sprintf("no provider could translate %s->%s: [%s]",
		e.SourceLang, e.TargetLang, strings.Join(parts, "; "))
}

package orchestrator

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/translation-gateway/internal/cache"
	"github.com/tesseract-hub/translation-gateway/internal/metrics"
	"github.com/tesseract-hub/translation-gateway/internal/providers"
	"github.com/tesseract-hub/translation-gateway/internal/scoring"
)

// BatchItem is one slot of a batch result. Exactly one of Translation and
// Error is set; slots line up with the input slice.
type BatchItem struct {
	Translation *Translation
	Error       error
}

// TranslateBatch resolves a slice of texts in input order. Cached entries are
// served first; the remainder goes to a native-batch provider when one is
// eligible, otherwise through per-item calls in bounded groups. Cancelling the
// context stops new groups from starting.
func (o *Orchestrator) TranslateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) []BatchItem {
	items := make([]BatchItem, len(texts))

	sanitized := make([]string, len(texts))
	missing := make([]int, 0, len(texts))

	for i, text := range texts {
		sanitized[i] = Sanitize(text)
	}
	cached := o.cache.BatchGet(ctx, sanitized, sourceLang, targetLang)
	for i := range texts {
		if sanitized[i] == "" {
			items[i] = BatchItem{Error: errEmptyAfterSanitize}
			continue
		}
		if entry := cached[i]; entry != nil {
			o.collector.Record(metrics.Entry{
				SourceLang: sourceLang,
				TargetLang: targetLang,
				Success:    true,
				FromCache:  true,
				TextLength: len(sanitized[i]),
			})
			items[i] = BatchItem{Translation: &Translation{
				TranslatedText: entry.TranslatedText,
				SourceLang:     sourceLang,
				TargetLang:     targetLang,
				Provider:       entry.Provider,
				Quality:        entry.Quality,
				FromCache:      true,
			}}
			continue
		}
		missing = append(missing, i)
	}

	if len(missing) == 0 {
		return items
	}

	if p := o.nativeBatchProvider(ctx, sourceLang, targetLang); p != nil {
		if o.batchViaProvider(ctx, p, items, sanitized, missing, sourceLang, targetLang) {
			return items
		}
		// Native batch failed as a whole; fall through to per-item calls.
	}

	o.batchPerItem(ctx, items, sanitized, missing, sourceLang, targetLang)
	return items
}

func (o *Orchestrator) nativeBatchProvider(ctx context.Context, sourceLang, targetLang string) providers.Provider {
	for _, p := range o.providers {
		if p.SupportsBatch() && p.IsAvailable(ctx) && p.SupportsLanguagePair(sourceLang, targetLang) {
			return p
		}
	}
	return nil
}

// batchViaProvider sends all missing texts in one native-batch call. Returns
// false when the call fails so the caller can fall back to per-item mode.
func (o *Orchestrator) batchViaProvider(ctx context.Context, p providers.Provider, items []BatchItem, sanitized []string, missing []int, sourceLang, targetLang string) bool {
	texts := make([]string, len(missing))
	for i, idx := range missing {
		texts[i] = sanitized[idx]
	}

	callCtx, cancel := context.WithTimeout(ctx, p.Timeout())
	defer cancel()

	results, err := p.TranslateBatch(callCtx, texts, sourceLang, targetLang)
	if err != nil || len(results) != len(missing) {
		o.logger.WithFields(logrus.Fields{
			"provider": p.Name(),
			"batch":    len(missing),
		}).WithError(err).Warn("Native batch call failed, falling back to per-item")
		return false
	}
	for _, result := range results {
		if result.TranslatedText == "" {
			o.logger.WithFields(logrus.Fields{
				"provider": p.Name(),
				"batch":    len(missing),
			}).Warn("Native batch returned an empty translation, falling back to per-item")
			return false
		}
	}

	for i, idx := range missing {
		result := results[i]
		quality := scoring.Score(sanitized[idx], result.TranslatedText, sourceLang, targetLang, o.threshold)
		o.recordAttempt(p.Name(), sourceLang, targetLang, result.Latency, len(sanitized[idx]), nil, &quality.Overall)

		if !quality.Passes {
			o.logger.WithFields(logrus.Fields{
				"provider":    p.Name(),
				"score":       quality.Overall,
				"threshold":   o.threshold,
				"issues":      quality.Issues,
				"source_lang": sourceLang,
				"target_lang": targetLang,
			}).Warn("Batch candidate below quality threshold, returning best effort")
		}

		o.cache.Set(ctx, sanitized[idx], sourceLang, targetLang, &cache.Entry{
			TranslatedText: result.TranslatedText,
			Provider:       p.Name(),
			Quality:        &quality,
		})
		items[idx] = BatchItem{Translation: &Translation{
			TranslatedText: result.TranslatedText,
			SourceLang:     sourceLang,
			TargetLang:     targetLang,
			Provider:       p.Name(),
			Quality:        &quality,
		}}
	}
	return true
}

// batchPerItem runs the missing indices through the single-text flow in
// fixed-size groups, at most batchConcurrency in flight at once.
func (o *Orchestrator) batchPerItem(ctx context.Context, items []BatchItem, sanitized []string, missing []int, sourceLang, targetLang string) {
	for start := 0; start < len(missing); start += o.batchGroupSize {
		if ctx.Err() != nil {
			for _, idx := range missing[start:] {
				items[idx] = BatchItem{Error: ctx.Err()}
			}
			return
		}

		end := start + o.batchGroupSize
		if end > len(missing) {
			end = len(missing)
		}

		var wg sync.WaitGroup
		sem := make(chan struct{}, o.batchConcurrency)
		for _, idx := range missing[start:end] {
			wg.Add(1)
			sem <- struct{}{}
			go func(idx int) {
				defer wg.Done()
				defer func() { <-sem }()
				translation, err := o.Translate(ctx, sanitized[idx], sourceLang, targetLang)
				items[idx] = BatchItem{Translation: translation, Error: err}
			}(idx)
		}
		wg.Wait()
	}
}

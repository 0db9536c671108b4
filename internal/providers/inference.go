package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/translation-gateway/internal/languages"
	"github.com/tesseract-hub/translation-gateway/internal/registry"
)

// InferenceProvider wraps a hosted inference API serving translation models.
// Wire contract: POST {base}/{model} {inputs, parameters:{src_lang, tgt_lang}}
// -> [{translation_text}] or {generated_text}. Which model serves a language
// pair, and whether the pair needs FLORES-style language+script tags, comes
// from the backend registry.
type InferenceProvider struct {
	baseURL    string
	apiKey     string
	weight     int
	timeout    time.Duration
	httpClient *http.Client
	logger     *logrus.Entry
	registry   *registry.Registry

	healthMu     sync.RWMutex
	healthy      bool
	lastHealthy  time.Time
	lastFailure  time.Time
	failureCount int
}

type inferenceRequest struct {
	Inputs     string           `json:"inputs"`
	Parameters *inferenceParams `json:"parameters,omitempty"`
	Options    map[string]any   `json:"options,omitempty"`
}

type inferenceParams struct {
	SrcLang string `json:"src_lang,omitempty"`
	TgtLang string `json:"tgt_lang,omitempty"`
}

type inferenceTranslation struct {
	TranslationText string `json:"translation_text"`
}

type inferenceGenerated struct {
	GeneratedText string `json:"generated_text"`
}

type inferenceError struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time,omitempty"`
}

// InferenceConfig carries the backend settings for the inference API.
type InferenceConfig struct {
	BaseURL string
	APIKey  string
	Weight  int
	Timeout time.Duration
}

// NewInferenceProvider creates a provider backed by a model inference API.
func NewInferenceProvider(cfg InferenceConfig, reg *registry.Registry, logger *logrus.Entry) *InferenceProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api-inference.huggingface.co/models"
	}
	if cfg.Timeout <= 0 {
		// Inference backends can be slow on cold starts.
		cfg.Timeout = 15 * time.Second
	}
	return &InferenceProvider{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		weight:  cfg.Weight,
		timeout: cfg.Timeout,
		httpClient: &http.Client{
			Timeout: cfg.Timeout + 5*time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger:   logger,
		registry: reg,
		healthy:  true,
	}
}

// Name returns the provider identifier.
func (p *InferenceProvider) Name() string { return "inference" }

// Weight returns the configured priority weight.
func (p *InferenceProvider) Weight() int { return p.weight }

// Timeout returns the per-call timeout.
func (p *InferenceProvider) Timeout() time.Duration { return p.timeout }

// SupportsBatch is false; the API takes one input per call.
func (p *InferenceProvider) SupportsBatch() bool { return false }

// IsAvailable reports whether the backend is configured and not backing off.
func (p *InferenceProvider) IsAvailable(ctx context.Context) bool {
	if p.apiKey == "" && strings.Contains(p.baseURL, "huggingface.co") {
		return false
	}

	p.healthMu.RLock()
	healthy := p.healthy
	lastFailure := p.lastFailure
	failureCount := p.failureCount
	p.healthMu.RUnlock()

	if !healthy && failureCount > 0 {
		backoff := time.Duration(failureCount) * 30 * time.Second
		if backoff > 5*time.Minute {
			backoff = 5 * time.Minute
		}
		// Allow a probe once the backoff window has elapsed.
		return time.Since(lastFailure) >= backoff
	}
	return healthy
}

// SupportsLanguagePair consults the backend registry.
func (p *InferenceProvider) SupportsLanguagePair(sourceLang, targetLang string) bool {
	src := normalizeCode(sourceLang)
	tgt := normalizeCode(targetLang)
	_, ok := p.registry.Lookup(p.Name(), src, tgt)
	return ok
}

// SupportedLanguages returns every code the registry maps for this provider.
func (p *InferenceProvider) SupportedLanguages(ctx context.Context) []string {
	return p.registry.SupportedLanguages(p.Name())
}

// Translate runs one inference call for the language pair's registered model.
func (p *InferenceProvider) Translate(ctx context.Context, text, sourceLang, targetLang string) (*Result, error) {
	start := time.Now()

	src := normalizeCode(sourceLang)
	tgt := normalizeCode(targetLang)
	desc, ok := p.registry.Lookup(p.Name(), src, tgt)
	if !ok {
		return nil, newError(p.Name(), ErrUnsupportedPair,
			fmt.Errorf("no model registered for %s->%s", src, tgt))
	}

	reqBody := inferenceRequest{
		Inputs:  text,
		Options: map[string]any{"wait_for_model": true},
	}
	if desc.SourceTag != "" || desc.TargetTag != "" {
		reqBody.Parameters = &inferenceParams{
			SrcLang: desc.SourceTag,
			TgtLang: desc.TargetTag,
		}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, newError(p.Name(), ErrMalformedResponse, fmt.Errorf("marshal request: %w", err))
	}

	url := fmt.Sprintf("%s/%s", p.baseURL, desc.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, newError(p.Name(), ErrBackendUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.markUnhealthy(err.Error())
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, newError(p.Name(), ErrTimeout, err)
		}
		return nil, newError(p.Name(), ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		p.logger.Warn("Inference API rate limit reached")
		return nil, newError(p.Name(), ErrBackendUnavailable, errors.New("rate limit exceeded"))
	}

	if resp.StatusCode == http.StatusServiceUnavailable {
		var errResp inferenceError
		if json.Unmarshal(respBody, &errResp) == nil && errResp.EstimatedTime > 0 {
			p.logger.WithField("estimated_time", errResp.EstimatedTime).Warn("Inference model is loading")
			return nil, newError(p.Name(), ErrBackendUnavailable,
				fmt.Errorf("model loading, estimated wait: %.0fs", errResp.EstimatedTime))
		}
		p.markUnhealthy("service unavailable")
		return nil, newError(p.Name(), ErrBackendUnavailable, errors.New("service unavailable"))
	}

	if resp.StatusCode != http.StatusOK {
		var errResp inferenceError
		json.Unmarshal(respBody, &errResp)
		p.markUnhealthy(errResp.Error)
		return nil, newError(p.Name(), ErrBackendUnavailable,
			fmt.Errorf("status %d: %s", resp.StatusCode, errResp.Error))
	}

	translated, err := decodeInferenceOutput(respBody)
	if err != nil {
		return nil, newError(p.Name(), ErrMalformedResponse, err)
	}

	p.markHealthy()
	return &Result{
		TranslatedText: translated,
		SourceLang:     sourceLang,
		TargetLang:     targetLang,
		Provider:       p.Name(),
		Latency:        time.Since(start),
	}, nil
}

// decodeInferenceOutput normalizes the two response shapes the API produces
// into a plain string.
func decodeInferenceOutput(body []byte) (string, error) {
	var list []inferenceTranslation
	if err := json.Unmarshal(body, &list); err == nil && len(list) > 0 && list[0].TranslationText != "" {
		return list[0].TranslationText, nil
	}

	var gen inferenceGenerated
	if err := json.Unmarshal(body, &gen); err == nil && gen.GeneratedText != "" {
		return gen.GeneratedText, nil
	}

	var genList []inferenceGenerated
	if err := json.Unmarshal(body, &genList); err == nil && len(genList) > 0 && genList[0].GeneratedText != "" {
		return genList[0].GeneratedText, nil
	}

	return "", fmt.Errorf("unrecognized response shape: %s", truncate(string(body), 200))
}

// TranslateBatch has no native endpoint; callers get concurrent per-item
// calls under a small window to respect the API's rate limits.
func (p *InferenceProvider) TranslateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) ([]Result, error) {
	results := make([]Result, len(texts))
	errs := make([]error, len(texts))

	var wg sync.WaitGroup
	sem := make(chan struct{}, 3)

	for i, text := range texts {
		wg.Add(1)
		go func(idx int, txt string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result, err := p.Translate(ctx, txt, sourceLang, targetLang)
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx] = *result
		}(i, text)
	}
	wg.Wait()

	// Callers expect a result per input; a partial batch would hand back
	// zero-value slots, so any item failure fails the whole call.
	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed > 0 {
		p.logger.WithFields(logrus.Fields{
			"failed_count": failed,
			"batch_size":   len(texts),
		}).Warn("Batch translation failed")
		return nil, newError(p.Name(), ErrBackendUnavailable,
			fmt.Errorf("%d of %d batch items failed", failed, len(texts)))
	}
	return results, nil
}

func (p *InferenceProvider) markHealthy() {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()
	p.healthy = true
	p.lastHealthy = time.Now()
	p.failureCount = 0
}

func (p *InferenceProvider) markUnhealthy(reason string) {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()
	p.healthy = false
	p.lastFailure = time.Now()
	p.failureCount++
	p.logger.WithFields(logrus.Fields{
		"reason":        reason,
		"failure_count": p.failureCount,
	}).Warn("Inference backend marked unhealthy")
}

func normalizeCode(code string) string {
	info, ok := languages.Normalize(code)
	if !ok {
		return code
	}
	return info.Code
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

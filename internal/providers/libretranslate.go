package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/translation-gateway/internal/languages"
)

// LibreTranslateProvider wraps a self-hosted LibreTranslate instance.
// Wire contract: POST /translate {q, source, target, format} -> {translatedText}.
type LibreTranslateProvider struct {
	baseURL    string
	apiKey     string
	weight     int
	timeout    time.Duration
	httpClient *http.Client
	logger     *logrus.Entry

	// Supported-language cache, refreshed hourly.
	mu        sync.RWMutex
	codes     []string
	codeSet   map[string]struct{}
	lastFetch time.Time

	// Availability tracking with failure backoff.
	healthMu     sync.RWMutex
	healthy      bool
	lastHealthy  time.Time
	lastFailure  time.Time
	failureCount int
}

type libreTranslateRequest struct {
	Q      any    `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format,omitempty"`
	APIKey string `json:"api_key,omitempty"`
}

type libreTranslateResponse struct {
	TranslatedText string `json:"translatedText"`
}

type libreTranslateBatchResponse struct {
	TranslatedText []string `json:"translatedText"`
}

type libreTranslateLanguage struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type libreTranslateDetection struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// LibreTranslateConfig carries the backend settings for one instance.
type LibreTranslateConfig struct {
	BaseURL string
	APIKey  string
	Weight  int
	Timeout time.Duration
}

// NewLibreTranslateProvider creates a provider for a LibreTranslate backend.
func NewLibreTranslateProvider(cfg LibreTranslateConfig, logger *logrus.Entry) *LibreTranslateProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &LibreTranslateProvider{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		weight:  cfg.Weight,
		timeout: cfg.Timeout,
		httpClient: &http.Client{
			Timeout: cfg.Timeout + 5*time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger:  logger,
		healthy: true,
	}
}

// Name returns the provider identifier.
func (p *LibreTranslateProvider) Name() string { return "libretranslate" }

// Weight returns the configured priority weight.
func (p *LibreTranslateProvider) Weight() int { return p.weight }

// Timeout returns the per-call timeout.
func (p *LibreTranslateProvider) Timeout() time.Duration { return p.timeout }

// SupportsBatch reports native batch support. LibreTranslate accepts q as an
// array and returns translatedText as an array.
func (p *LibreTranslateProvider) SupportsBatch() bool { return true }

// IsAvailable reports whether the backend is configured and not in a failure
// backoff window.
func (p *LibreTranslateProvider) IsAvailable(ctx context.Context) bool {
	if p.baseURL == "" {
		return false
	}

	p.healthMu.RLock()
	healthy := p.healthy
	lastFailure := p.lastFailure
	failureCount := p.failureCount
	p.healthMu.RUnlock()

	if !healthy && failureCount > 0 {
		backoff := time.Duration(failureCount) * 10 * time.Second
		if backoff > 2*time.Minute {
			backoff = 2 * time.Minute
		}
		// Allow a probe once the backoff window has elapsed.
		return time.Since(lastFailure) >= backoff
	}
	return healthy
}

// SupportsLanguagePair checks both codes against the backend's language list.
func (p *LibreTranslateProvider) SupportsLanguagePair(sourceLang, targetLang string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	set := p.languageSet(ctx)
	if set == nil {
		// Language list unavailable; let the translate call decide.
		return true
	}
	_, src := set[p.mapCode(sourceLang)]
	_, tgt := set[p.mapCode(targetLang)]
	return src && tgt
}

// SupportedLanguages returns the backend's language codes.
func (p *LibreTranslateProvider) SupportedLanguages(ctx context.Context) []string {
	p.refreshLanguages(ctx)
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.codes))
	copy(out, p.codes)
	return out
}

// mapCode translates the gateway's language codes into the ones this backend
// expects.
func (p *LibreTranslateProvider) mapCode(code string) string {
	info, ok := languages.Normalize(code)
	if !ok {
		return code
	}
	// LibreTranslate uses the zh-Hans/zh-Hant convention already.
	return info.Code
}

// Translate performs a single translation call.
func (p *LibreTranslateProvider) Translate(ctx context.Context, text, sourceLang, targetLang string) (*Result, error) {
	start := time.Now()

	body, err := p.post(ctx, "/translate", libreTranslateRequest{
		Q:      text,
		Source: p.mapCode(sourceLang),
		Target: p.mapCode(targetLang),
		Format: "text",
		APIKey: p.apiKey,
	})
	if err != nil {
		return nil, err
	}

	var result libreTranslateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, newError(p.Name(), ErrMalformedResponse, fmt.Errorf("decode response: %w", err))
	}
	if result.TranslatedText == "" {
		return nil, newError(p.Name(), ErrMalformedResponse, errors.New("empty translation in response"))
	}

	p.markHealthy()
	return &Result{
		TranslatedText: result.TranslatedText,
		SourceLang:     sourceLang,
		TargetLang:     targetLang,
		Provider:       p.Name(),
		Latency:        time.Since(start),
	}, nil
}

// TranslateBatch sends the whole batch as a q array in one call.
func (p *LibreTranslateProvider) TranslateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) ([]Result, error) {
	start := time.Now()

	body, err := p.post(ctx, "/translate", libreTranslateRequest{
		Q:      texts,
		Source: p.mapCode(sourceLang),
		Target: p.mapCode(targetLang),
		Format: "text",
		APIKey: p.apiKey,
	})
	if err != nil {
		return nil, err
	}

	var batch libreTranslateBatchResponse
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, newError(p.Name(), ErrMalformedResponse, fmt.Errorf("decode batch response: %w", err))
	}
	if len(batch.TranslatedText) != len(texts) {
		return nil, newError(p.Name(), ErrMalformedResponse,
			fmt.Errorf("batch count mismatch: got %d, expected %d", len(batch.TranslatedText), len(texts)))
	}

	p.markHealthy()
	latency := time.Since(start)

	results := make([]Result, len(texts))
	for i, translated := range batch.TranslatedText {
		results[i] = Result{
			TranslatedText: translated,
			SourceLang:     sourceLang,
			TargetLang:     targetLang,
			Provider:       p.Name(),
			Latency:        latency,
		}
	}
	return results, nil
}

// DetectLanguage asks the backend to identify the text's language.
func (p *LibreTranslateProvider) DetectLanguage(ctx context.Context, text string) (string, float64, error) {
	req := struct {
		Q      string `json:"q"`
		APIKey string `json:"api_key,omitempty"`
	}{Q: text, APIKey: p.apiKey}

	body, err := p.post(ctx, "/detect", req)
	if err != nil {
		return "", 0, err
	}

	var detections []libreTranslateDetection
	if err := json.Unmarshal(body, &detections); err != nil {
		return "", 0, newError(p.Name(), ErrMalformedResponse, fmt.Errorf("decode detect response: %w", err))
	}
	if len(detections) == 0 {
		return "", 0, newError(p.Name(), ErrMalformedResponse, errors.New("no language detected"))
	}
	return detections[0].Language, detections[0].Confidence, nil
}

// HealthCheck pings the backend's languages endpoint.
func (p *LibreTranslateProvider) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/languages", nil)
	if err != nil {
		return err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service unhealthy, status: %d", resp.StatusCode)
	}
	return nil
}

func (p *LibreTranslateProvider) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, newError(p.Name(), ErrMalformedResponse, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, newError(p.Name(), ErrBackendUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.markUnhealthy(err.Error())
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, newError(p.Name(), ErrTimeout, err)
		}
		return nil, newError(p.Name(), ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		return respBody, nil
	case resp.StatusCode == http.StatusBadRequest:
		return nil, newError(p.Name(), ErrUnsupportedPair,
			fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody)))
	case resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests:
		p.markUnhealthy(fmt.Sprintf("status %d", resp.StatusCode))
		return nil, newError(p.Name(), ErrBackendUnavailable,
			fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody)))
	default:
		p.markUnhealthy(fmt.Sprintf("status %d", resp.StatusCode))
		return nil, newError(p.Name(), ErrBackendUnavailable,
			fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody)))
	}
}

func (p *LibreTranslateProvider) languageSet(ctx context.Context) map[string]struct{} {
	p.refreshLanguages(ctx)
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.codeSet
}

func (p *LibreTranslateProvider) refreshLanguages(ctx context.Context) {
	p.mu.RLock()
	fresh := len(p.codes) > 0 && time.Since(p.lastFetch) < time.Hour
	p.mu.RUnlock()
	if fresh {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/languages", nil)
	if err != nil {
		return
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.WithError(err).Debug("Failed to fetch language list")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return
	}

	var langs []libreTranslateLanguage
	if err := json.NewDecoder(resp.Body).Decode(&langs); err != nil {
		return
	}

	codes := make([]string, 0, len(langs))
	set := make(map[string]struct{}, len(langs))
	for _, l := range langs {
		codes = append(codes, l.Code)
		set[l.Code] = struct{}{}
	}

	p.mu.Lock()
	p.codes = codes
	p.codeSet = set
	p.lastFetch = time.Now()
	p.mu.Unlock()
}

func (p *LibreTranslateProvider) markHealthy() {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()
	p.healthy = true
	p.lastHealthy = time.Now()
	p.failureCount = 0
}

func (p *LibreTranslateProvider) markUnhealthy(reason string) {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()
	p.healthy = false
	p.lastFailure = time.Now()
	p.failureCount++
	p.logger.WithFields(logrus.Fields{
		"reason":        reason,
		"failure_count": p.failureCount,
	}).Warn("LibreTranslate marked unhealthy")
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/translation-gateway/internal/cache"
	"github.com/tesseract-hub/translation-gateway/internal/config"
	"github.com/tesseract-hub/translation-gateway/internal/languages"
	"github.com/tesseract-hub/translation-gateway/internal/metrics"
	"github.com/tesseract-hub/translation-gateway/internal/middleware"
	"github.com/tesseract-hub/translation-gateway/internal/models"
	"github.com/tesseract-hub/translation-gateway/internal/orchestrator"
	"github.com/tesseract-hub/translation-gateway/internal/repository"
	"github.com/tesseract-hub/translation-gateway/internal/scoring"
)

// Detector resolves the language of a text sample. The LibreTranslate
// provider implements it.
type Detector interface {
	DetectLanguage(ctx context.Context, text string) (string, float64, error)
}

// TranslationHandler handles translation API requests
type TranslationHandler struct {
	repo         repository.TranslationRepository
	cache        *cache.Manager
	orchestrator *orchestrator.Orchestrator
	collector    *metrics.Collector
	detector     Detector
	config       *config.TranslationConfig
	logger       *logrus.Entry
}

// NewTranslationHandler creates a new translation handler
func NewTranslationHandler(
	repo repository.TranslationRepository,
	cacheManager *cache.Manager,
	orch *orchestrator.Orchestrator,
	collector *metrics.Collector,
	detector Detector,
	cfg *config.TranslationConfig,
	logger *logrus.Entry,
) *TranslationHandler {
	return &TranslationHandler{
		repo:         repo,
		cache:        cacheManager,
		orchestrator: orch,
		collector:    collector,
		detector:     detector,
		config:       cfg,
		logger:       logger,
	}
}

// normalizeLanguageCode converts common language code variants to the codes
// the providers expect, e.g. zh-CN -> zh-Hans.
func normalizeLanguageCode(code string) string {
	if info, ok := languages.Normalize(code); ok {
		return info.Code
	}
	return code
}

func qualityReport(q *scoring.QualityScore) *models.QualityReport {
	if q == nil {
		return nil
	}
	return &models.QualityReport{
		Overall:           q.Overall,
		LengthRatio:       q.LengthRatio,
		Encoding:          q.Encoding,
		ScriptConsistency: q.ScriptConsistency,
		LanguageMatch:     q.LanguageMatch,
		Confidence:        q.Confidence,
		Passes:            q.Passes,
		Issues:            q.Issues,
	}
}

// Translate handles single translation requests
// POST /api/v1/translate
func (h *TranslationHandler) Translate(c *gin.Context) {
	var req models.TranslationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_REQUEST",
			"message": err.Error(),
		})
		return
	}

	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		tenantID = "default"
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	// Set default source language if not provided
	sourceLang := req.SourceLang
	if sourceLang == "" {
		sourceLang = h.config.DefaultSourceLang
	}
	sourceLang = normalizeLanguageCode(sourceLang)
	targetLang := normalizeLanguageCode(req.TargetLang)

	result, err := h.orchestrator.Translate(ctx, req.Text, sourceLang, targetLang)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"error":       err.Error(),
			"source_lang": sourceLang,
			"target_lang": targetLang,
		}).Error("Translation failed (all providers)")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "TRANSLATION_FAILED",
			"message": err.Error(),
		})
		return
	}

	go h.repo.UpdateStats(context.Background(), tenantID, result.FromCache, int64(len(req.Text)))

	if !result.FromCache {
		h.archive(tenantID, sourceLang, targetLang, req.Text, result)
	}

	c.JSON(http.StatusOK, models.TranslationResponse{
		OriginalText:   req.Text,
		TranslatedText: result.TranslatedText,
		SourceLang:     sourceLang,
		TargetLang:     targetLang,
		Cached:         result.FromCache,
		Provider:       result.Provider,
		Quality:        qualityReport(result.Quality),
	})
}

// archive persists a freshly produced translation in the background. The
// sanitized text is stored so archive keys line up with cache lookups.
func (h *TranslationHandler) archive(tenantID, sourceLang, targetLang, sourceText string, result *orchestrator.Translation) {
	sourceText = orchestrator.Sanitize(sourceText)
	entry := &models.TranslationArchive{
		TenantID:       tenantID,
		SourceLang:     sourceLang,
		TargetLang:     targetLang,
		SourceHash:     models.GenerateSourceHash(sourceLang, targetLang, sourceText),
		SourceText:     sourceText,
		TranslatedText: result.TranslatedText,
		Provider:       result.Provider,
		ExpiresAt:      time.Now().Add(h.config.CacheTTL),
	}
	if result.Quality != nil {
		entry.QualityScore = result.Quality.Overall
	}
	go func() {
		if err := h.repo.SaveTranslation(context.Background(), entry); err != nil {
			h.logger.WithError(err).Warn("Failed to archive translation")
		}
	}()
}

// TranslateBatch handles batch translation requests
// POST /api/v1/translate/batch
func (h *TranslationHandler) TranslateBatch(c *gin.Context) {
	var req models.BatchTranslationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_REQUEST",
			"message": err.Error(),
		})
		return
	}

	if len(req.Items) > h.config.MaxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "BATCH_TOO_LARGE",
			"message":  "Batch size exceeds maximum allowed",
			"max_size": h.config.MaxBatchSize,
		})
		return
	}

	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		tenantID = "default"
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	sourceLang := req.SourceLang
	if sourceLang == "" {
		sourceLang = h.config.DefaultSourceLang
	}
	sourceLang = normalizeLanguageCode(sourceLang)
	targetLang := normalizeLanguageCode(req.TargetLang)

	texts := make([]string, len(req.Items))
	for i, item := range req.Items {
		texts[i] = item.Text
	}

	batch := h.orchestrator.TranslateBatch(ctx, texts, sourceLang, targetLang)

	response := models.BatchTranslationResponse{
		Items:      make([]models.BatchTranslationItem, len(req.Items)),
		TotalCount: len(req.Items),
		TargetLang: targetLang,
	}

	totalChars := int64(0)
	for i, item := range req.Items {
		totalChars += int64(len(item.Text))

		responseItem := models.BatchTranslationItem{
			ID:           item.ID,
			OriginalText: item.Text,
			SourceLang:   sourceLang,
		}

		result := batch[i]
		if result.Error != nil {
			responseItem.Error = result.Error.Error()
			responseItem.TranslatedText = item.Text // Return original on error
		} else {
			responseItem.TranslatedText = result.Translation.TranslatedText
			responseItem.Provider = result.Translation.Provider
			responseItem.Cached = result.Translation.FromCache
			if result.Translation.FromCache {
				response.CachedCount++
			} else {
				h.archive(tenantID, sourceLang, targetLang, item.Text, result.Translation)
			}
		}
		response.Items[i] = responseItem
	}

	go h.repo.UpdateStats(context.Background(), tenantID, response.CachedCount > 0, totalChars)

	c.JSON(http.StatusOK, response)
}

// DetectLanguage handles language detection requests
// POST /api/v1/detect
func (h *TranslationHandler) DetectLanguage(c *gin.Context) {
	var req models.DetectLanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_REQUEST",
			"message": err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	lang, confidence, err := h.detector.DetectLanguage(ctx, req.Text)
	if err != nil {
		h.logger.WithError(err).Error("Language detection failed")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "DETECTION_FAILED",
			"message": "Failed to detect language",
		})
		return
	}

	response := models.DetectLanguageResponse{
		Language:   lang,
		Confidence: confidence,
	}
	if known, err := h.repo.GetLanguageByCode(ctx, normalizeLanguageCode(lang)); err == nil {
		response.Name = known.Name
		response.Script = known.Script
		response.RTL = known.RTL
	}

	c.JSON(http.StatusOK, response)
}

// GetLanguages returns supported languages
// GET /api/v1/languages
func (h *TranslationHandler) GetLanguages(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	langs, err := h.repo.GetLanguages(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get languages")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "LANGUAGES_FAILED",
			"message": "Failed to retrieve languages",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"languages": langs,
		"count":     len(langs),
	})
}

// GetStats returns translation statistics for a tenant
// GET /api/v1/stats
func (h *TranslationHandler) GetStats(c *gin.Context) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		tenantID = "default"
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	stats, err := h.repo.GetStats(ctx, tenantID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get stats")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "STATS_FAILED",
			"message": "Failed to retrieve statistics",
		})
		return
	}

	cacheHitRate := float64(0)
	if stats.TotalRequests > 0 {
		cacheHitRate = float64(stats.CacheHits) / float64(stats.TotalRequests) * 100
	}

	c.JSON(http.StatusOK, gin.H{
		"tenant_id":        stats.TenantID,
		"total_requests":   stats.TotalRequests,
		"cache_hits":       stats.CacheHits,
		"cache_misses":     stats.CacheMisses,
		"cache_hit_rate":   cacheHitRate,
		"total_characters": stats.TotalCharacters,
		"last_request_at":  stats.LastRequestAt,
	})
}

// GetMetrics returns the aggregated in-process metrics and degradation state
// GET /api/v1/metrics
func (h *TranslationHandler) GetMetrics(c *gin.Context) {
	summary := h.collector.Aggregate(10)
	degraded, issues := h.collector.CheckDegradation()

	c.JSON(http.StatusOK, gin.H{
		"summary":  summary,
		"degraded": degraded,
		"issues":   issues,
	})
}

// InvalidateCache drops cached translations for a language pair
// DELETE /api/v1/cache/:source/:target
func (h *TranslationHandler) InvalidateCache(c *gin.Context) {
	sourceLang := normalizeLanguageCode(c.Param("source"))
	targetLang := normalizeLanguageCode(c.Param("target"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	if err := h.cache.InvalidateLanguagePair(ctx, sourceLang, targetLang); err != nil {
		h.logger.WithError(err).Error("Cache invalidation failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "INVALIDATION_FAILED",
			"message": "Failed to invalidate cache",
		})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"source_lang": sourceLang,
		"target_lang": targetLang,
	}).Info("Cache invalidated for language pair")

	c.JSON(http.StatusOK, gin.H{
		"message":     "cache invalidated",
		"source_lang": sourceLang,
		"target_lang": targetLang,
	})
}

// PurgeTenant removes archived translations for a tenant
// DELETE /api/v1/tenant/translations
func (h *TranslationHandler) PurgeTenant(c *gin.Context) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "MISSING_TENANT_ID",
			"message": "X-Tenant-ID header is required",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	if err := h.repo.DeleteTranslationsByTenant(ctx, tenantID); err != nil {
		h.logger.WithError(err).Error("Failed to purge tenant translations")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "PURGE_FAILED",
			"message": "Failed to purge translations",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "tenant translations purged", "tenant_id": tenantID})
}

// Health returns service health with per-provider availability, cache health
// and degradation status
// GET /health
func (h *TranslationHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	checks := make(map[string]string)

	availableProviders := 0
	for name, available := range h.orchestrator.ProviderAvailability(ctx) {
		if available {
			checks[name] = "available"
			availableProviders++
		} else {
			checks[name] = "unavailable"
		}
	}

	if err := h.cache.HealthCheck(ctx); err != nil {
		checks["cache"] = "unhealthy: " + err.Error()
	} else {
		checks["cache"] = "healthy"
	}

	degraded, issues := h.collector.CheckDegradation()

	// The service is degraded when no provider can take traffic.
	httpStatus := http.StatusOK
	if availableProviders == 0 {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	} else if degraded {
		status = "degraded"
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"service":   "translation-gateway",
		"checks":    checks,
		"degraded":  degraded,
		"issues":    issues,
		"timestamp": time.Now().UTC(),
	})
}

// Livez returns liveness status
// GET /livez
func (h *TranslationHandler) Livez(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// Readyz returns readiness status
// GET /readyz
func (h *TranslationHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	for _, available := range h.orchestrator.ProviderAvailability(ctx) {
		if available {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		}
	}

	c.JSON(http.StatusServiceUnavailable, gin.H{
		"status": "not ready",
		"reason": "no translation provider available",
	})
}

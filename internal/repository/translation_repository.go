package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tesseract-hub/translation-gateway/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TranslationRepository interface for translation data operations
type TranslationRepository interface {
	// Language operations
	GetLanguages(ctx context.Context) ([]models.Language, error)
	GetLanguageByCode(ctx context.Context, code string) (*models.Language, error)
	UpsertLanguage(ctx context.Context, lang *models.Language) error
	SeedLanguages(ctx context.Context) error

	// Archive operations (database-backed)
	GetArchivedTranslation(ctx context.Context, sourceLang, targetLang, sourceHash string) (*models.TranslationArchive, error)
	SaveTranslation(ctx context.Context, archive *models.TranslationArchive) error
	IncrementHitCount(ctx context.Context, id uuid.UUID) error
	DeleteExpiredTranslations(ctx context.Context) (int64, error)
	DeleteTranslationsByTenant(ctx context.Context, tenantID string) error

	// Stats operations
	GetStats(ctx context.Context, tenantID string) (*models.TranslationStats, error)
	UpdateStats(ctx context.Context, tenantID string, cacheHit bool, characters int64) error
}

// translationRepository implements TranslationRepository
type translationRepository struct {
	db *gorm.DB
}

// NewTranslationRepository creates a new translation repository
func NewTranslationRepository(db *gorm.DB) TranslationRepository {
	return &translationRepository{db: db}
}

// GetLanguages returns all active languages
func (r *translationRepository) GetLanguages(ctx context.Context) ([]models.Language, error) {
	var languages []models.Language
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("region, name").
		Find(&languages).Error
	return languages, err
}

// GetLanguageByCode returns a language by its code
func (r *translationRepository) GetLanguageByCode(ctx context.Context, code string) (*models.Language, error) {
	var language models.Language
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&language).Error
	if err != nil {
		return nil, err
	}
	return &language, nil
}

// UpsertLanguage inserts or updates a language
func (r *translationRepository) UpsertLanguage(ctx context.Context, lang *models.Language) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "native_name", "script", "rtl", "is_active", "region", "updated_at"}),
		}).
		Create(lang).Error
}

// SeedLanguages seeds the initial languages
func (r *translationRepository) SeedLanguages(ctx context.Context) error {
	for _, lang := range models.SupportedLanguages {
		lang.IsActive = true
		if err := r.UpsertLanguage(ctx, &lang); err != nil {
			return err
		}
	}
	return nil
}

// GetArchivedTranslation retrieves a stored translation from the database.
// Archived content is keyed by source hash alone; tenancy only scopes purges
// and stats.
func (r *translationRepository) GetArchivedTranslation(ctx context.Context, sourceLang, targetLang, sourceHash string) (*models.TranslationArchive, error) {
	var archive models.TranslationArchive
	err := r.db.WithContext(ctx).
		Where("source_lang = ? AND target_lang = ? AND source_hash = ?",
			sourceLang, targetLang, sourceHash).
		Where("expires_at > ?", time.Now()).
		First(&archive).Error
	if err != nil {
		return nil, err
	}
	return &archive, nil
}

// SaveTranslation stores a served translation in the archive
func (r *translationRepository) SaveTranslation(ctx context.Context, archive *models.TranslationArchive) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source_hash"}},
			DoUpdates: clause.AssignmentColumns([]string{"translated_text", "provider", "quality_score", "hit_count", "updated_at", "expires_at"}),
		}).
		Create(archive).Error
}

// IncrementHitCount increments the hit count for an archived translation
func (r *translationRepository) IncrementHitCount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.TranslationArchive{}).
		Where("id = ?", id).
		Update("hit_count", gorm.Expr("hit_count + 1")).Error
}

// DeleteExpiredTranslations removes expired translations from the database
func (r *translationRepository) DeleteExpiredTranslations(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&models.TranslationArchive{})
	return result.RowsAffected, result.Error
}

// DeleteTranslationsByTenant removes all archived translations for a tenant
func (r *translationRepository) DeleteTranslationsByTenant(ctx context.Context, tenantID string) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Delete(&models.TranslationArchive{}).Error
}

// GetStats returns translation statistics for a tenant
func (r *translationRepository) GetStats(ctx context.Context, tenantID string) (*models.TranslationStats, error) {
	var stats models.TranslationStats
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&stats).Error
	if err == gorm.ErrRecordNotFound {
		// Create new stats entry
		stats = models.TranslationStats{
			TenantID: tenantID,
		}
		if err := r.db.WithContext(ctx).Create(&stats).Error; err != nil {
			return nil, err
		}
		return &stats, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// UpdateStats updates translation statistics
func (r *translationRepository) UpdateStats(ctx context.Context, tenantID string, cacheHit bool, characters int64) error {
	updates := map[string]interface{}{
		"total_requests":   gorm.Expr("total_requests + 1"),
		"total_characters": gorm.Expr("total_characters + ?", characters),
		"last_request_at":  time.Now(),
		"updated_at":       time.Now(),
	}

	if cacheHit {
		updates["cache_hits"] = gorm.Expr("cache_hits + 1")
	} else {
		updates["cache_misses"] = gorm.Expr("cache_misses + 1")
	}

	result := r.db.WithContext(ctx).
		Model(&models.TranslationStats{}).
		Where("tenant_id = ?", tenantID).
		Updates(updates)

	if result.RowsAffected == 0 {
		// Create new stats entry
		stats := models.TranslationStats{
			TenantID:        tenantID,
			TotalRequests:   1,
			TotalCharacters: characters,
			LastRequestAt:   time.Now(),
		}
		if cacheHit {
			stats.CacheHits = 1
		} else {
			stats.CacheMisses = 1
		}
		return r.db.WithContext(ctx).Create(&stats).Error
	}

	return result.Error
}

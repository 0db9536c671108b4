package handlers

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/tesseract-hub/translation-gateway/internal/models"
	"github.com/tesseract-hub/translation-gateway/internal/orchestrator"
	"github.com/tesseract-hub/translation-gateway/internal/repository"
)

// Archive adapts the durable postgres translation archive to the
// orchestrator's fallback lookup, so the hot cache can be rebuilt after a
// flush or a cache version bump. Served entries count as archive hits.
type Archive struct {
	repo   repository.TranslationRepository
	logger *logrus.Entry
}

// NewArchive creates the archive lookup over the translation repository.
func NewArchive(repo repository.TranslationRepository, logger *logrus.Entry) *Archive {
	return &Archive{repo: repo, logger: logger}
}

// LookupTranslation returns the archived translation for the text and pair,
// or ok=false on a miss. Store errors read as misses.
func (a *Archive) LookupTranslation(ctx context.Context, sourceText, sourceLang, targetLang string) (*orchestrator.Translation, bool) {
	hash := models.GenerateSourceHash(sourceLang, targetLang, sourceText)
	row, err := a.repo.GetArchivedTranslation(ctx, sourceLang, targetLang, hash)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			a.logger.WithError(err).Warn("Archive lookup failed")
		}
		return nil, false
	}

	go func() {
		if err := a.repo.IncrementHitCount(context.Background(), row.ID); err != nil {
			a.logger.WithError(err).Debug("Failed to increment archive hit count")
		}
	}()

	return &orchestrator.Translation{
		TranslatedText: row.TranslatedText,
		SourceLang:     sourceLang,
		TargetLang:     targetLang,
		Provider:       row.Provider,
	}, true
}

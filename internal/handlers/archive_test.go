package handlers_test

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tesseract-hub/translation-gateway/internal/handlers"
	"github.com/tesseract-hub/translation-gateway/internal/models"
	"github.com/tesseract-hub/translation-gateway/internal/repository"
)

type fakeArchiveRepo struct {
	repository.TranslationRepository

	rows       map[string]*models.TranslationArchive
	lookupErr  error
	increments atomic.Int64
	lastHitID  atomic.Value
}

func (f *fakeArchiveRepo) GetArchivedTranslation(ctx context.Context, sourceLang, targetLang, sourceHash string) (*models.TranslationArchive, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	row, ok := f.rows[sourceHash]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return row, nil
}

func (f *fakeArchiveRepo) IncrementHitCount(ctx context.Context, id uuid.UUID) error {
	f.lastHitID.Store(id)
	f.increments.Add(1)
	return nil
}

func archiveLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log.WithField("component", "archive")
}

func TestArchive_LookupHitIncrementsHitCount(t *testing.T) {
	id := uuid.New()
	hash := models.GenerateSourceHash("en", "es", "Hello world")
	repo := &fakeArchiveRepo{rows: map[string]*models.TranslationArchive{
		hash: {
			ID:             id,
			SourceLang:     "en",
			TargetLang:     "es",
			SourceHash:     hash,
			TranslatedText: "Hola mundo",
			Provider:       "libretranslate",
		},
	}}

	archive := handlers.NewArchive(repo, archiveLogger())
	result, ok := archive.LookupTranslation(context.Background(), "Hello world", "en", "es")
	require.True(t, ok)
	require.Equal(t, "Hola mundo", result.TranslatedText)
	require.Equal(t, "libretranslate", result.Provider)
	require.Equal(t, "en", result.SourceLang)
	require.Equal(t, "es", result.TargetLang)

	// The hit count is bumped off the request path.
	require.Eventually(t, func() bool {
		return repo.increments.Load() == 1
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, id, repo.lastHitID.Load())
}

func TestArchive_LookupMiss(t *testing.T) {
	repo := &fakeArchiveRepo{rows: map[string]*models.TranslationArchive{}}
	archive := handlers.NewArchive(repo, archiveLogger())

	result, ok := archive.LookupTranslation(context.Background(), "Hello world", "en", "es")
	require.False(t, ok)
	require.Nil(t, result)
	require.Equal(t, int64(0), repo.increments.Load())
}

func TestArchive_StoreErrorReadsAsMiss(t *testing.T) {
	repo := &fakeArchiveRepo{lookupErr: gorm.ErrInvalidDB}
	archive := handlers.NewArchive(repo, archiveLogger())

	result, ok := archive.LookupTranslation(context.Background(), "Hello world", "en", "es")
	require.False(t, ok)
	require.Nil(t, result)
}

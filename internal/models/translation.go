package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Language represents a supported language
type Language struct {
	Code       string `json:"code" gorm:"primaryKey;type:varchar(10)"`
	Name       string `json:"name" gorm:"type:varchar(100);not null"`
	NativeName string `json:"native_name" gorm:"type:varchar(100)"`
	Script     string `json:"script" gorm:"type:varchar(30)"`
	RTL        bool   `json:"rtl" gorm:"default:false"`
	IsActive   bool   `json:"is_active" gorm:"default:true"`
	Region     string `json:"region" gorm:"type:varchar(50)"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TranslationArchive is the durable record of served translations. It backs
// tenant-facing history and lets the hot cache be rebuilt after a flush.
type TranslationArchive struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID       string    `json:"tenant_id" gorm:"type:varchar(50);index;not null"`
	SourceLang     string    `json:"source_lang" gorm:"type:varchar(10);not null;index"`
	TargetLang     string    `json:"target_lang" gorm:"type:varchar(10);not null;index"`
	SourceHash     string    `json:"source_hash" gorm:"type:varchar(64);not null;uniqueIndex:idx_translation_archive_unique"`
	SourceText     string    `json:"source_text" gorm:"type:text;not null"`
	TranslatedText string    `json:"translated_text" gorm:"type:text;not null"`
	Provider       string    `json:"provider" gorm:"type:varchar(50)"` // libretranslate, huggingface, etc.
	QualityScore   float64   `json:"quality_score" gorm:"default:0"`
	HitCount       int       `json:"hit_count" gorm:"default:0"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	ExpiresAt      time.Time `json:"expires_at" gorm:"index"`
}

// GenerateSourceHash creates a unique hash for source text + languages
func GenerateSourceHash(sourceLang, targetLang, sourceText string) string {
	data := sourceLang + "|" + targetLang + "|" + sourceText
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// TranslationRequest represents a translation request from the API
type TranslationRequest struct {
	Text       string `json:"text" binding:"required"`
	SourceLang string `json:"source_lang"` // Optional, auto-detect if empty
	TargetLang string `json:"target_lang" binding:"required"`
}

// QualityReport is the scoring breakdown attached to API responses.
type QualityReport struct {
	Overall           float64  `json:"overall"`
	LengthRatio       float64  `json:"length_ratio"`
	Encoding          float64  `json:"encoding"`
	ScriptConsistency float64  `json:"script_consistency"`
	LanguageMatch     float64  `json:"language_match"`
	Confidence        float64  `json:"confidence"`
	Passes            bool     `json:"passes"`
	Issues            []string `json:"issues,omitempty"`
}

// TranslationResponse represents the response for a single translation
type TranslationResponse struct {
	OriginalText   string         `json:"original_text"`
	TranslatedText string         `json:"translated_text"`
	SourceLang     string         `json:"source_lang"`
	TargetLang     string         `json:"target_lang"`
	Cached         bool           `json:"cached"`
	Provider       string         `json:"provider,omitempty"`
	Quality        *QualityReport `json:"quality,omitempty"`
}

// BatchTranslationRequest represents a batch translation request
type BatchTranslationRequest struct {
	Items      []TranslationItem `json:"items" binding:"required,min=1,max=50"`
	SourceLang string            `json:"source_lang"` // Default source lang for all items
	TargetLang string            `json:"target_lang" binding:"required"`
}

// TranslationItem represents a single item in a batch request
type TranslationItem struct {
	ID   string `json:"id"` // Client-provided ID for matching responses
	Text string `json:"text" binding:"required"`
}

// BatchTranslationResponse represents the response for batch translation
type BatchTranslationResponse struct {
	Items       []BatchTranslationItem `json:"items"`
	TotalCount  int                    `json:"total_count"`
	CachedCount int                    `json:"cached_count"`
	TargetLang  string                 `json:"target_lang"`
}

// BatchTranslationItem represents a single translated item in batch response
type BatchTranslationItem struct {
	ID             string `json:"id"`
	OriginalText   string `json:"original_text"`
	TranslatedText string `json:"translated_text"`
	SourceLang     string `json:"source_lang"`
	Provider       string `json:"provider,omitempty"`
	Cached         bool   `json:"cached"`
	Error          string `json:"error,omitempty"`
}

// DetectLanguageRequest represents a language detection request
type DetectLanguageRequest struct {
	Text string `json:"text" binding:"required"`
}

// DetectLanguageResponse represents the response for language detection.
// Name, Script and RTL are filled from the language reference table when the
// detected code is known.
type DetectLanguageResponse struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
	Name       string  `json:"name,omitempty"`
	Script     string  `json:"script,omitempty"`
	RTL        bool    `json:"rtl,omitempty"`
}

// TranslationStats represents translation statistics per tenant
type TranslationStats struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID        string    `json:"tenant_id" gorm:"type:varchar(50);uniqueIndex;not null"`
	TotalRequests   int64     `json:"total_requests" gorm:"default:0"`
	CacheHits       int64     `json:"cache_hits" gorm:"default:0"`
	CacheMisses     int64     `json:"cache_misses" gorm:"default:0"`
	TotalCharacters int64     `json:"total_characters" gorm:"default:0"`
	LastRequestAt   time.Time `json:"last_request_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate UUID
func (t *TranslationArchive) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.SourceHash == "" {
		t.SourceHash = GenerateSourceHash(t.SourceLang, t.TargetLang, t.SourceText)
	}
	return nil
}

// BeforeCreate hook for TranslationStats
func (s *TranslationStats) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SupportedLanguages returns a list of commonly supported regional languages
var SupportedLanguages = []Language{
	// Indian Languages
	{Code: "hi", Name: "Hindi", NativeName: "हिन्दी", Script: "devanagari", RTL: false, Region: "India"},
	{Code: "ta", Name: "Tamil", NativeName: "தமிழ்", Script: "tamil", RTL: false, Region: "India"},
	{Code: "te", Name: "Telugu", NativeName: "తెలుగు", Script: "telugu", RTL: false, Region: "India"},
	{Code: "mr", Name: "Marathi", NativeName: "मराठी", Script: "devanagari", RTL: false, Region: "India"},
	{Code: "bn", Name: "Bengali", NativeName: "বাংলা", Script: "bengali", RTL: false, Region: "India"},
	{Code: "gu", Name: "Gujarati", NativeName: "ગુજરાતી", Script: "gujarati", RTL: false, Region: "India"},
	{Code: "kn", Name: "Kannada", NativeName: "ಕನ್ನಡ", Script: "kannada", RTL: false, Region: "India"},
	{Code: "ml", Name: "Malayalam", NativeName: "മലയാളം", Script: "malayalam", RTL: false, Region: "India"},
	{Code: "pa", Name: "Punjabi", NativeName: "ਪੰਜਾਬੀ", Script: "gurmukhi", RTL: false, Region: "India"},
	{Code: "or", Name: "Odia", NativeName: "ଓଡ଼ିଆ", Script: "oriya", RTL: false, Region: "India"},

	// Global Languages
	{Code: "en", Name: "English", NativeName: "English", Script: "latin", RTL: false, Region: "Global"},
	{Code: "es", Name: "Spanish", NativeName: "Español", Script: "latin", RTL: false, Region: "Global"},
	{Code: "fr", Name: "French", NativeName: "Français", Script: "latin", RTL: false, Region: "Global"},
	{Code: "de", Name: "German", NativeName: "Deutsch", Script: "latin", RTL: false, Region: "Global"},
	{Code: "pt", Name: "Portuguese", NativeName: "Português", Script: "latin", RTL: false, Region: "Global"},
	{Code: "it", Name: "Italian", NativeName: "Italiano", Script: "latin", RTL: false, Region: "Global"},
	{Code: "nl", Name: "Dutch", NativeName: "Nederlands", Script: "latin", RTL: false, Region: "Global"},
	{Code: "ru", Name: "Russian", NativeName: "Русский", Script: "cyrillic", RTL: false, Region: "Global"},
	{Code: "zh", Name: "Chinese", NativeName: "中文", Script: "han", RTL: false, Region: "Asia"},
	{Code: "ja", Name: "Japanese", NativeName: "日本語", Script: "japanese", RTL: false, Region: "Asia"},
	{Code: "ko", Name: "Korean", NativeName: "한국어", Script: "hangul", RTL: false, Region: "Asia"},

	// Southeast Asian Languages
	{Code: "th", Name: "Thai", NativeName: "ไทย", Script: "thai", RTL: false, Region: "Southeast Asia"},
	{Code: "vi", Name: "Vietnamese", NativeName: "Tiếng Việt", Script: "latin", RTL: false, Region: "Southeast Asia"},
	{Code: "id", Name: "Indonesian", NativeName: "Bahasa Indonesia", Script: "latin", RTL: false, Region: "Southeast Asia"},
	{Code: "ms", Name: "Malay", NativeName: "Bahasa Melayu", Script: "latin", RTL: false, Region: "Southeast Asia"},
	{Code: "tl", Name: "Filipino", NativeName: "Filipino", Script: "latin", RTL: false, Region: "Southeast Asia"},

	// Middle Eastern Languages
	{Code: "ar", Name: "Arabic", NativeName: "العربية", Script: "arabic", RTL: true, Region: "Middle East"},
	{Code: "fa", Name: "Persian", NativeName: "فارسی", Script: "arabic", RTL: true, Region: "Middle East"},
	{Code: "he", Name: "Hebrew", NativeName: "עברית", Script: "hebrew", RTL: true, Region: "Middle East"},
	{Code: "tr", Name: "Turkish", NativeName: "Türkçe", Script: "latin", RTL: false, Region: "Middle East"},
}

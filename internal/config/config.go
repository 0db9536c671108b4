package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/Tesseract-Nexus/go-shared/secrets"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	App         AppConfig
	Translation TranslationConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type AppConfig struct {
	Name        string
	Environment string
	LogLevel    string
}

type TranslationConfig struct {
	// LibreTranslate configuration (primary provider - open source)
	LibreTranslateURL     string
	LibreTranslateKey     string
	LibreTranslateWeight  int
	LibreTranslateTimeout time.Duration

	// Hugging Face inference configuration (Helsinki-NLP / NLLB models)
	HuggingFaceURL     string
	HuggingFaceKey     string
	HuggingFaceWeight  int
	HuggingFaceTimeout time.Duration

	// Quality scoring
	QualityThreshold float64

	// Cache settings
	CacheEnabled    bool
	CacheVersion    string
	CacheTTL        time.Duration
	CacheMaxEntries int

	// Metrics
	MetricsCapacity int

	// Rate limiting
	RateLimit       int
	RateLimitWindow time.Duration

	// Batch settings
	MaxBatchSize     int
	BatchGroupSize   int
	BatchConcurrency int

	// Supported languages
	DefaultSourceLang string
	DefaultTargetLang string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: secrets.GetDBPassword(),
			DBName:   getEnv("DB_NAME", "translation_gateway_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: secrets.GetRedisPassword(),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		App: AppConfig{
			Name:        getEnv("APP_NAME", "translation-gateway"),
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Translation: TranslationConfig{
			LibreTranslateURL:     getEnv("LIBRETRANSLATE_URL", "http://libretranslate:5000"),
			LibreTranslateKey:     secrets.GetSecretOrEnv("LIBRETRANSLATE_API_KEY_SECRET_NAME", "LIBRETRANSLATE_API_KEY", ""),
			LibreTranslateWeight:  getEnvAsInt("LIBRETRANSLATE_WEIGHT", 100),
			LibreTranslateTimeout: getEnvAsDuration("LIBRETRANSLATE_TIMEOUT", 10*time.Second),
			HuggingFaceURL:        getEnv("HUGGINGFACE_URL", "http://huggingface-mt-service:8080"),
			HuggingFaceKey:        secrets.GetSecretOrEnv("HUGGINGFACE_API_KEY_SECRET_NAME", "HUGGINGFACE_API_KEY", ""),
			HuggingFaceWeight:     getEnvAsInt("HUGGINGFACE_WEIGHT", 50),
			HuggingFaceTimeout:    getEnvAsDuration("HUGGINGFACE_TIMEOUT", 15*time.Second),
			QualityThreshold:      getEnvAsFloat("QUALITY_THRESHOLD", 0.5),
			CacheEnabled:          getEnvAsBool("CACHE_ENABLED", true),
			CacheVersion:          getEnv("CACHE_VERSION", "v1"),
			CacheTTL:              getEnvAsDuration("CACHE_TTL", 30*24*time.Hour),
			CacheMaxEntries:       getEnvAsInt("CACHE_MAX_ENTRIES", 10000),
			MetricsCapacity:       getEnvAsInt("METRICS_CAPACITY", 10000),
			RateLimit:             getEnvAsInt("RATE_LIMIT", 100),
			RateLimitWindow:       getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
			MaxBatchSize:          getEnvAsInt("MAX_BATCH_SIZE", 50),
			BatchGroupSize:        getEnvAsInt("BATCH_GROUP_SIZE", 10),
			BatchConcurrency:      getEnvAsInt("BATCH_CONCURRENCY", 5),
			DefaultSourceLang:     getEnv("DEFAULT_SOURCE_LANG", "en"),
			DefaultTargetLang:     getEnv("DEFAULT_TARGET_LANG", "hi"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

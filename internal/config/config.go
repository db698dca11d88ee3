package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Host string
	Env  string

	LogLevel string
	LogFile  string // Optional rotating log file in addition to stdout

	DBType     string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBPath     string

	// UsersFile is the flat JSON list of accounts allowed to log in.
	UsersFile string

	// Storage configuration
	StorageBackend string // "disk", "memory", "s3"
	StoragePath    string // For disk backend
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool // Use path-style addressing (required for MinIO/rustfs)

	MaxUploadSize int64

	SessionSecret   string
	SessionDuration string
	BcryptCost      int
	CSRFEnabled     bool

	// Chat configuration
	GeminiAPIKey string
	GeminiModel  string
	DefaultLang  string
	HistoryLimit int // Prior entries replayed to the model on each turn
	PreviewLimit int // Characters of extracted text returned with an upload

	// OCR configuration
	OCRBackend string // "tesseract" or "textract"
	AWSRegion  string

	// TrustedProxyCIDRs is a list of CIDR ranges (e.g., "127.0.0.1/32", "10.0.0.0/8")
	// whose X-Real-IP / X-Forwarded-For headers are trusted for rate limiting.
	TrustedProxyCIDRs []string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Host:              getEnv("HOST", "0.0.0.0"),
		Env:               getEnv("ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", ""),
		LogFile:           getEnv("LOG_FILE", ""),
		DBType:            getEnv("DB_TYPE", "sqlite"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBName:            getEnv("DB_NAME", "docchat"),
		DBUser:            getEnv("DB_USER", "docchat"),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBPath:            getEnv("DB_PATH", "./data/docchat.db"),
		UsersFile:         getEnv("USERS_FILE", "./data/users.json"),
		StorageBackend:    getEnv("STORAGE_BACKEND", "disk"),
		StoragePath:       getEnv("STORAGE_PATH", "./data/uploads"),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3AccessKey:       getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:       getEnv("S3_SECRET_KEY", ""),
		S3UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", false),
		MaxUploadSize:     getEnvSize("MAX_UPLOAD_SIZE", "16M"),
		SessionSecret:     getEnv("SESSION_SECRET", "change_me_in_production_32bytes!"),
		SessionDuration:   getEnv("SESSION_DURATION", "24h"),
		BcryptCost:        getEnvInt("BCRYPT_COST", 10),
		CSRFEnabled:       getEnvBool("CSRF_ENABLED", true),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-1.5-pro"),
		DefaultLang:       strings.ToLower(getEnv("DEFAULT_LANG", "en")),
		HistoryLimit:      getEnvInt("HISTORY_LIMIT", 8),
		PreviewLimit:      getEnvInt("PREVIEW_LIMIT", 300),
		OCRBackend:        strings.ToLower(getEnv("OCR_BACKEND", "tesseract")),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		TrustedProxyCIDRs: getEnvStringSlice("TRUSTED_PROXY_CIDRS", nil),
	}

	if cfg.HistoryLimit < 0 {
		cfg.HistoryLimit = 0
	}
	if cfg.PreviewLimit < 1 {
		cfg.PreviewLimit = 300
	}

	switch cfg.OCRBackend {
	case "tesseract", "textract":
	default:
		return nil, fmt.Errorf("unknown OCR backend: %s (supported: tesseract, textract)", cfg.OCRBackend)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvStringSlice parses a comma-separated env var into a string slice.
// Empty entries are filtered out. Returns defaultValue if env var is empty.
func getEnvStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

// parseSize converts human-readable sizes (e.g., "10G", "500M", "1K") to bytes
// Supports: B, K/KB, M/MB, G/GB, T/TB (case-insensitive)
func parseSize(sizeStr string) (int64, error) {
	sizeStr = strings.TrimSpace(strings.ToUpper(sizeStr))

	if val, err := strconv.ParseInt(sizeStr, 10, 64); err == nil {
		return val, nil
	}

	var multiplier int64 = 1
	var numStr string

	switch {
	case strings.HasSuffix(sizeStr, "TB") || strings.HasSuffix(sizeStr, "T"):
		multiplier = 1024 * 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(strings.TrimSuffix(sizeStr, "TB"), "T")
	case strings.HasSuffix(sizeStr, "GB") || strings.HasSuffix(sizeStr, "G"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(strings.TrimSuffix(sizeStr, "GB"), "G")
	case strings.HasSuffix(sizeStr, "MB") || strings.HasSuffix(sizeStr, "M"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(strings.TrimSuffix(sizeStr, "MB"), "M")
	case strings.HasSuffix(sizeStr, "KB") || strings.HasSuffix(sizeStr, "K"):
		multiplier = 1024
		numStr = strings.TrimSuffix(strings.TrimSuffix(sizeStr, "KB"), "K")
	case strings.HasSuffix(sizeStr, "B"):
		numStr = strings.TrimSuffix(sizeStr, "B")
	default:
		return 0, fmt.Errorf("invalid size format: %s (use B, K/KB, M/MB, G/GB, T/TB)", sizeStr)
	}

	val, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value: %s", sizeStr)
	}

	return int64(val * float64(multiplier)), nil
}

// getEnvSize parses size strings like "10G", "500M" or raw bytes
func getEnvSize(key string, defaultValue string) int64 {
	value := getEnv(key, defaultValue)
	size, err := parseSize(value)
	if err != nil {
		log.Printf("getEnvSize: parseSize failed for %s: %v, using default %s", value, err, defaultValue)
		if defaultSize, defaultErr := parseSize(defaultValue); defaultErr == nil {
			return defaultSize
		}
		return 0
	}
	return size
}

// SessionLifetime parses SessionDuration, falling back to 24h.
func (c *Config) SessionLifetime() time.Duration {
	d, err := time.ParseDuration(c.SessionDuration)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

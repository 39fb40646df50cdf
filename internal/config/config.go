package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Announcement source site.
	SiteBaseURL string
	CategoryURL string
	NoticeLimit int
	FetchTimeout time.Duration

	// PSGC geography reference.
	PSGCBaseURL        string
	ProvinceCode       string
	ReferenceCachePath string

	// Generative model.
	GeminiAPIKey     string
	GeminiModels     []string
	ExtractRetries   int
	RetryBackoffBase time.Duration

	// Validation cutoff; zero means "today at run time".
	CutoffDate time.Time

	// OCR.
	TesseractPath string
	TesseractLang string

	// Persistence and optional publishing.
	DatabaseDSN  string
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool

	// Read API.
	PageSize int
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	backoffBase, err := parseDuration("RETRY_BACKOFF_BASE", time.Second)
	if err != nil {
		return nil, err
	}

	noticeLimit, err := parseInt("NOTICE_LIMIT", 2)
	if err != nil {
		return nil, err
	}
	if noticeLimit < 0 {
		return nil, errors.New("NOTICE_LIMIT must be >= 0 (0 = unbounded)")
	}

	retries, err := parseInt("EXTRACT_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	if retries < 1 {
		return nil, errors.New("EXTRACT_RETRIES must be >= 1")
	}

	pageSize, err := parseInt("PAGE_SIZE", 10)
	if err != nil {
		return nil, err
	}
	if pageSize < 1 {
		return nil, errors.New("PAGE_SIZE must be >= 1")
	}

	cutoff, err := parseCutoffDate(os.Getenv("CUTOFF_DATE"))
	if err != nil {
		return nil, err
	}

	siteBase := envOrDefault("SITE_BASE_URL", "https://zaneco.ph")
	kafkaBrokers := parseList(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(kafkaBrokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SiteBaseURL:  siteBase,
		CategoryURL:  envOrDefault("CATEGORY_URL", siteBase+"/category/power-interruption-update/"),
		NoticeLimit:  noticeLimit,
		FetchTimeout: fetchTimeout,

		PSGCBaseURL:        envOrDefault("PSGC_BASE_URL", "https://psgc.gitlab.io/api"),
		ProvinceCode:       envOrDefault("PROVINCE_CODE", "097200000"),
		ReferenceCachePath: envOrDefault("REFERENCE_CACHE_PATH", "zamboanga_del_norte_locations.json"),

		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModels:     parseList(envOrDefault("GEMINI_MODELS", "gemini-2.5-flash,gemini-1.5-flash,gemini-1.5-pro")),
		ExtractRetries:   retries,
		RetryBackoffBase: backoffBase,

		CutoffDate: cutoff,

		TesseractPath: envOrDefault("TESSERACT_PATH", "tesseract"),
		TesseractLang: envOrDefault("TESSERACT_LANG", "eng"),

		DatabaseDSN:  os.Getenv("DB_URL"),
		KafkaBrokers: kafkaBrokers,
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "outage-notices"),
		KafkaEnabled: kafkaEnabled,

		PageSize: pageSize,
	}

	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	if cfg.DatabaseDSN == "" {
		return nil, errors.New("DB_URL is required")
	}
	if len(cfg.GeminiModels) == 0 {
		return nil, errors.New("GEMINI_MODELS must name at least one model")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

// parseCutoffDate parses an ISO date. Empty input yields the zero time,
// which downstream code treats as "today at run time".
func parseCutoffDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid CUTOFF_DATE %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: must be an integer", key)
	}
	return n, nil
}

func parseList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

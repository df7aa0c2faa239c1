// Package config loads runtime settings from the environment and the source
// list plus keyword tables from a YAML file. Scoring weights are never
// defaulted silently: a missing or malformed table is a startup error.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Dedup modes accepted by DEDUP_MODE.
const (
	DedupPublished = "published" // exclude only articles already published
	DedupSeen      = "seen"      // exclude anything ever collected
)

// Config holds everything the pipeline needs for one run.
type Config struct {
	// Collection
	SourcesPath      string
	Sources          []Source
	FetchConcurrency int
	SourceDelay      time.Duration
	FetchTimeout     time.Duration
	RetryAttempts    int
	RetryDelay       time.Duration

	// Selection
	Scoring   Scoring
	TopN      int
	DedupMode string

	// Ledger
	LedgerDriver string
	LedgerDSN    string

	// Summarization
	GeminiAPIKey    string
	GeminiModel     string
	SummaryMaxWords int
	MaxAIRequests   int
	ExtractLimit    int

	// Publishing
	TelegramToken  string
	TelegramChatID string

	// Scheduling
	CronSpec string
	RunOnce  bool

	Debug bool
}

// Load builds the configuration from environment variables and the YAML
// sources file, then validates it. Validation failures are fatal by design.
func Load() (*Config, error) {
	cfg := &Config{
		SourcesPath:      getEnvOrDefault("SOURCES_CONFIG_PATH", "configs/sources.yaml"),
		FetchConcurrency: getEnvIntOrDefault("FETCH_CONCURRENCY", 1),
		SourceDelay:      getEnvDurationOrDefault("SOURCE_DELAY", time.Second),
		FetchTimeout:     getEnvDurationOrDefault("FETCH_TIMEOUT", 30*time.Second),
		RetryAttempts:    getEnvIntOrDefault("RETRY_ATTEMPTS", 3),
		RetryDelay:       getEnvDurationOrDefault("RETRY_DELAY", 2*time.Second),
		TopN:             getEnvIntOrDefault("TOP_N", 15),
		DedupMode:        getEnvOrDefault("DEDUP_MODE", DedupPublished),
		LedgerDriver:     getEnvOrDefault("LEDGER_DRIVER", "sqlite"),
		LedgerDSN:        getEnvOrDefault("LEDGER_DSN", "news_digest.db"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		SummaryMaxWords:  getEnvIntOrDefault("SUMMARY_MAX_WORDS", 100),
		MaxAIRequests:    getEnvIntOrDefault("MAX_AI_REQUESTS", 10),
		ExtractLimit:     getEnvIntOrDefault("EXTRACT_MAX_ARTICLES", 10),
		TelegramToken:    os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		CronSpec:         getEnvOrDefault("DIGEST_CRON", "0 9 * * *"),
		RunOnce:          os.Getenv("RUN_ONCE") == "true",
		Debug:            os.Getenv("DEBUG") == "true",
	}

	sf, err := loadSourcesFile(cfg.SourcesPath)
	if err != nil {
		return nil, fmt.Errorf("load sources config: %w", err)
	}
	cfg.Sources = sf.Sources
	cfg.Scoring = sf.Scoring()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the startup invariants. Per-source problems found later
// (dead listing pages) are run-time conditions, not configuration errors.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("config: no sources configured")
	}
	seen := map[string]bool{}
	for i, s := range c.Sources {
		if s.Name == "" {
			return fmt.Errorf("config: source %d has no name", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("config: duplicate source name %q", s.Name)
		}
		seen[s.Name] = true
		if s.URL == "" {
			return fmt.Errorf("config: source %q has no listing url", s.Name)
		}
		if s.Type != SourceHTML && s.Type != SourceRSS {
			return fmt.Errorf("config: source %q has unknown type %q", s.Name, s.Type)
		}
		if s.Bonus < 0 {
			return fmt.Errorf("config: source %q has negative bonus", s.Name)
		}
	}

	if len(c.Scoring.Keywords) == 0 {
		return fmt.Errorf("config: keyword tables are empty")
	}
	for _, k := range c.Scoring.Keywords {
		if k.Word == "" {
			return fmt.Errorf("config: empty keyword in tier %q", k.Tier)
		}
		if k.Weight <= 0 {
			return fmt.Errorf("config: keyword %q has non-positive weight %d", k.Word, k.Weight)
		}
	}

	if c.TopN < 1 {
		return fmt.Errorf("config: TOP_N must be >= 1, got %d", c.TopN)
	}
	if c.DedupMode != DedupPublished && c.DedupMode != DedupSeen {
		return fmt.Errorf("config: DEDUP_MODE must be %q or %q, got %q", DedupPublished, DedupSeen, c.DedupMode)
	}
	if c.FetchConcurrency < 1 {
		return fmt.Errorf("config: FETCH_CONCURRENCY must be >= 1")
	}
	if c.LedgerDriver != "sqlite" && c.LedgerDriver != "postgres" {
		return fmt.Errorf("config: LEDGER_DRIVER must be sqlite or postgres, got %q", c.LedgerDriver)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d >= 0 {
			return d
		}
	}
	return defaultValue
}

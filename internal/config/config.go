package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"NewsMatcher/internal/domain"
)

const (
	configPathEnv     = "NEWSMATCHER_CONFIG"
	logLevelEnv       = "LOG_LEVEL"
	finnhubAPIKeyEnv  = "FINNHUB_API_KEY"
	keywordMinEnv     = "KEYWORD_JACCARD_MIN"
	summaryMinEnv     = "SUMMARY_COSINE_MIN"
	dataDirEnv        = "NEWSMATCHER_DATA_DIR"
	databaseDSNEnv    = "DATABASE_DSN"
	chatGPTAPIKeyEnv  = "CHATGPT_API_KEY"
	chatGPTModelEnv   = "CHATGPT_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"

	ProviderFinnhub = "finnhub"
	ProviderRSS     = "rss"

	ExtractorGoquery     = "goquery"
	ExtractorReadability = "readability"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Feed          FeedConfig         `yaml:"feed"`
	Similarity    SimilarityConfig   `yaml:"similarity"`
	Sampler       SamplerConfig      `yaml:"sampler"`
	PageText      PageTextConfig     `yaml:"pageText"`
	Storage       StorageConfig      `yaml:"storage"`
	Database      DatabaseConfig     `yaml:"database"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
	Notifications NotificationConfig `yaml:"notifications"`
	Runner        RunnerConfig       `yaml:"runner"`
}

// LoggingConfig sets the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// FeedConfig selects and tunes the news provider.
type FeedConfig struct {
	Provider          string        `yaml:"provider"`
	APIKey            string        `yaml:"apiKey"`
	BaseURL           string        `yaml:"baseUrl"`
	Timeout           time.Duration `yaml:"timeout"`
	RetryBackoff      time.Duration `yaml:"retryBackoff"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	RSSURLTemplate    string        `yaml:"rssUrlTemplate"`
}

// SimilarityConfig holds the OR-gate thresholds.
type SimilarityConfig struct {
	KeywordJaccardMin float64 `yaml:"keywordJaccardMin"`
	SummaryCosineMin  float64 `yaml:"summaryCosineMin"`
}

// SamplerConfig bounds the chunked sampler.
type SamplerConfig struct {
	MaxArticles     int `yaml:"maxArticles"`
	ChunkDays       int `yaml:"chunkDays"`
	MaxLookbackDays int `yaml:"maxLookbackDays"`
}

// PageTextConfig tunes article page extraction.
type PageTextConfig struct {
	Extractor     string        `yaml:"extractor"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxChars      int           `yaml:"maxChars"`
	PriorMaxChars int           `yaml:"priorMaxChars"`
}

// StorageConfig points at the artifact directory.
type StorageConfig struct {
	DataDir string `yaml:"dataDir"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN disables the repository.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// ChatGPTConfig defines how to contact the ChatGPT API.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// RunnerConfig controls repeated check runs.
type RunnerConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := Default()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			merged, err := applyFile(cfg, raw)
			if err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = merged
			}
		}
	}

	cfg.applyEnvOverrides(os.Getenv)
	return cfg
}

// explicitThresholds records which thresholds a file sets, so that an
// explicit zero is honoured.
type explicitThresholds struct {
	Similarity struct {
		KeywordJaccardMin *float64 `yaml:"keywordJaccardMin"`
		SummaryCosineMin  *float64 `yaml:"summaryCosineMin"`
	} `yaml:"similarity"`
}

// applyFile merges a YAML document onto base.
func applyFile(base Config, raw []byte) (Config, error) {
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return base, err
	}
	var thresholds explicitThresholds
	if err := yaml.Unmarshal(raw, &thresholds); err != nil {
		return base, err
	}

	cfg := mergeConfig(base, fileCfg)
	if v := thresholds.Similarity.KeywordJaccardMin; v != nil {
		cfg.Similarity.KeywordJaccardMin = *v
	}
	if v := thresholds.Similarity.SummaryCosineMin; v != nil {
		cfg.Similarity.SummaryCosineMin = *v
	}
	return cfg, nil
}

// Validate reports settings the application cannot start with.
func (c Config) Validate() error {
	switch c.Feed.Provider {
	case ProviderFinnhub:
		if strings.TrimSpace(c.Feed.APIKey) == "" {
			return fmt.Errorf("config: %s is not set: %w", finnhubAPIKeyEnv, domain.ErrMissingAPIKey)
		}
	case ProviderRSS:
		if !strings.Contains(c.Feed.RSSURLTemplate, "%s") {
			return fmt.Errorf("config: feed.rssUrlTemplate must contain %%s for the ticker")
		}
	default:
		return fmt.Errorf("config: unknown feed provider %q", c.Feed.Provider)
	}

	switch c.PageText.Extractor {
	case ExtractorGoquery, ExtractorReadability:
	default:
		return fmt.Errorf("config: unknown page text extractor %q", c.PageText.Extractor)
	}

	if c.Similarity.KeywordJaccardMin < 0 || c.Similarity.KeywordJaccardMin > 1 {
		return fmt.Errorf("config: keyword jaccard threshold %v outside [0,1]", c.Similarity.KeywordJaccardMin)
	}
	if c.Similarity.SummaryCosineMin < 0 || c.Similarity.SummaryCosineMin > 1 {
		return fmt.Errorf("config: summary cosine threshold %v outside [0,1]", c.Similarity.SummaryCosineMin)
	}
	if c.Sampler.MaxArticles <= 0 || c.Sampler.ChunkDays <= 0 || c.Sampler.MaxLookbackDays <= 0 {
		return fmt.Errorf("config: sampler limits must be positive")
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("config: storage.dataDir is empty")
	}
	return nil
}

func (c *Config) applyEnvOverrides(getenv func(string) string) {
	if v := getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := getenv(finnhubAPIKeyEnv); v != "" {
		c.Feed.APIKey = v
	}

	if v := getenv(keywordMinEnv); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err != nil {
			log.Printf("config: ignoring %s=%q: %v", keywordMinEnv, v, err)
		} else {
			c.Similarity.KeywordJaccardMin = f
		}
	}

	if v := getenv(summaryMinEnv); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err != nil {
			log.Printf("config: ignoring %s=%q: %v", summaryMinEnv, v, err)
		} else {
			c.Similarity.SummaryCosineMin = f
		}
	}

	if v := getenv(dataDirEnv); v != "" {
		c.Storage.DataDir = v
	}

	if v := getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := getenv(chatGPTAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}

	if v := getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Feed.Provider != "" {
		base.Feed.Provider = strings.ToLower(override.Feed.Provider)
	}
	if override.Feed.APIKey != "" {
		base.Feed.APIKey = override.Feed.APIKey
	}
	if override.Feed.BaseURL != "" {
		base.Feed.BaseURL = override.Feed.BaseURL
	}
	if override.Feed.Timeout > 0 {
		base.Feed.Timeout = override.Feed.Timeout
	}
	if override.Feed.RetryBackoff > 0 {
		base.Feed.RetryBackoff = override.Feed.RetryBackoff
	}
	if override.Feed.RequestsPerSecond > 0 {
		base.Feed.RequestsPerSecond = override.Feed.RequestsPerSecond
	}
	if override.Feed.RSSURLTemplate != "" {
		base.Feed.RSSURLTemplate = override.Feed.RSSURLTemplate
	}

	if override.Similarity.KeywordJaccardMin > 0 {
		base.Similarity.KeywordJaccardMin = override.Similarity.KeywordJaccardMin
	}
	if override.Similarity.SummaryCosineMin > 0 {
		base.Similarity.SummaryCosineMin = override.Similarity.SummaryCosineMin
	}

	if override.Sampler.MaxArticles > 0 {
		base.Sampler.MaxArticles = override.Sampler.MaxArticles
	}
	if override.Sampler.ChunkDays > 0 {
		base.Sampler.ChunkDays = override.Sampler.ChunkDays
	}
	if override.Sampler.MaxLookbackDays > 0 {
		base.Sampler.MaxLookbackDays = override.Sampler.MaxLookbackDays
	}

	if override.PageText.Extractor != "" {
		base.PageText.Extractor = strings.ToLower(override.PageText.Extractor)
	}
	if override.PageText.Timeout > 0 {
		base.PageText.Timeout = override.PageText.Timeout
	}
	if override.PageText.MaxChars > 0 {
		base.PageText.MaxChars = override.PageText.MaxChars
	}
	if override.PageText.PriorMaxChars > 0 {
		base.PageText.PriorMaxChars = override.PageText.PriorMaxChars
	}

	if override.Storage.DataDir != "" {
		base.Storage.DataDir = override.Storage.DataDir
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.ChatGPT.Endpoint != "" {
		base.ChatGPT.Endpoint = override.ChatGPT.Endpoint
	}
	if override.ChatGPT.Model != "" {
		base.ChatGPT.Model = override.ChatGPT.Model
	}
	if override.ChatGPT.APIKey != "" {
		base.ChatGPT.APIKey = override.ChatGPT.APIKey
	}
	if override.ChatGPT.SystemPrompt != "" {
		base.ChatGPT.SystemPrompt = override.ChatGPT.SystemPrompt
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Runner.Interval > 0 {
		base.Runner.Interval = override.Runner.Interval
	}

	return base
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Feed: FeedConfig{
			Provider:          ProviderFinnhub,
			BaseURL:           "https://finnhub.io/api/v1",
			Timeout:           15 * time.Second,
			RetryBackoff:      2 * time.Second,
			RequestsPerSecond: 1,
			RSSURLTemplate:    "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US",
		},
		Similarity: SimilarityConfig{KeywordJaccardMin: 0.30, SummaryCosineMin: 0.20},
		Sampler:    SamplerConfig{MaxArticles: 100, ChunkDays: 3, MaxLookbackDays: 30},
		PageText: PageTextConfig{
			Extractor:     ExtractorGoquery,
			Timeout:       15 * time.Second,
			MaxChars:      4000,
			PriorMaxChars: 8000,
		},
		Storage: StorageConfig{DataDir: "data"},
		ChatGPT: ChatGPTConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You are a financial news analyst. Answer concisely.",
		},
		Runner: RunnerConfig{Interval: 24 * time.Hour},
	}
}

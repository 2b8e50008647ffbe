package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Assistant  AssistantConfig  `mapstructure:"assistant"`
	AI         AIConfig         `mapstructure:"ai"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Twitter    TwitterConfig    `mapstructure:"twitter"`
	Instagram  InstagramConfig  `mapstructure:"instagram"`
	YouTube    YouTubeConfig    `mapstructure:"youtube"`
	Log        LogConfig        `mapstructure:"log"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type ClassifierConfig struct {
	MaxContentChars int `mapstructure:"max_content_chars"`
}

type AssistantConfig struct {
	MaxSnippetChars int `mapstructure:"max_snippet_chars"`
}

// AIConfig selects the generative backend. An empty APIKey or OfflineMode
// keeps the pipeline on the heuristic analyzer.
type AIConfig struct {
	Provider    string  `mapstructure:"provider"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	BaseURL     string  `mapstructure:"base_url"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	OfflineMode bool    `mapstructure:"offline_mode"`

	EmbeddingModel      string `mapstructure:"embedding_model"`
	EmbeddingDimensions int    `mapstructure:"embedding_dimensions"`
}

// Enabled reports whether the AI path may be attempted
func (c AIConfig) Enabled() bool {
	return !c.OfflineMode && c.APIKey != ""
}

type FetchConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	UserAgent    string        `mapstructure:"user_agent"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

type TwitterConfig struct {
	MirrorAHost     string `mapstructure:"mirror_a_host"`
	MirrorBHost     string `mapstructure:"mirror_b_host"`
	ScrapeUserAgent string `mapstructure:"scrape_user_agent"`
	MinTextLength   int    `mapstructure:"min_text_length"`
}

type InstagramConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Bridges       []string      `mapstructure:"bridges"`
	BridgeTimeout time.Duration `mapstructure:"bridge_timeout"`
}

type YouTubeConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		if _, err := fmt.Sscanf(u.Port(), "%d", &port); err != nil {
			return DatabaseConfig{}, fmt.Errorf("invalid port %q: %w", u.Port(), err)
		}
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
	}, nil
}

// LoadConfig reads path (if it exists) and applies environment overrides.
// A missing file is not an error: defaults plus environment are enough to run.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("classifier.max_content_chars", 30000)
	v.SetDefault("assistant.max_snippet_chars", 10000)
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.max_tokens", 2048)
	v.SetDefault("ai.temperature", 0.4)
	v.SetDefault("ai.offline_mode", false)
	v.SetDefault("ai.embedding_model", "gemini-embedding-001")
	v.SetDefault("ai.embedding_dimensions", 768)
	v.SetDefault("fetch.timeout", 15*time.Second)
	v.SetDefault("fetch.max_body_bytes", 5<<20)
	v.SetDefault("twitter.mirror_a_host", "api.fxtwitter.com")
	v.SetDefault("twitter.mirror_b_host", "api.vxtwitter.com")
	v.SetDefault("twitter.min_text_length", 100)
	v.SetDefault("instagram.enabled", true)
	v.SetDefault("instagram.bridges", []string{"instagramez.com", "kkinstagram.com", "ddinstagram.com"})
	v.SetDefault("instagram.bridge_timeout", 5*time.Second)
	v.SetDefault("youtube.enabled", true)
	v.SetDefault("log.development", false)

	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		config.Database = dbConfig
	}

	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	// Provider-specific keys win over a generic ai.api_key only when they
	// match the selected provider.
	switch strings.ToLower(config.AI.Provider) {
	case "openai":
		if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
			config.AI.APIKey = apiKey
		}
	default:
		if apiKey := v.GetString("GEMINI_API_KEY"); apiKey != "" {
			config.AI.APIKey = apiKey
		}
	}

	if v.IsSet("OFFLINE_MODE") {
		config.AI.OfflineMode = v.GetBool("OFFLINE_MODE")
	}

	return &config, nil
}

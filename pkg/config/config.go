package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Slack      SlackConfig      `mapstructure:"slack"`
	Gmail      GmailConfig      `mapstructure:"gmail"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Search     SearchConfig     `mapstructure:"search"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Server     ServerConfig     `mapstructure:"server"`
	Window     WindowConfig     `mapstructure:"window"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
}

type SlackConfig struct {
	UserToken     string `mapstructure:"user_token"`
	UserID        string `mapstructure:"user_id"`
	DisplayName   string `mapstructure:"display_name"`
	PageSize      int    `mapstructure:"page_size"`
	NotifyChannel string `mapstructure:"notify_channel"`
}

type GmailConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	CredentialsFile string `mapstructure:"credentials_file"`
	DelegatedUser   string `mapstructure:"delegated_user"`
}

type OpenAIConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	EmbeddingModel string  `mapstructure:"embedding_model"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature"`
	Language       string  `mapstructure:"language"`
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

type SearchConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Scheme  string `mapstructure:"scheme"`
	Host    string `mapstructure:"host"`
}

type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type WindowConfig struct {
	Timezone string `mapstructure:"timezone"`
}

type ClassifierConfig struct {
	MaxTags int `mapstructure:"max_tags"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return DatabaseConfig{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		port, err = strconv.Atoi(u.Port())
		if err != nil {
			return DatabaseConfig{}, fmt.Errorf("invalid port %q", u.Port())
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

// LoadConfig reads path (optional) with defaults and environment overrides.
// A .env file in the working directory is loaded first when present.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// Set default values
	v.SetDefault("slack.page_size", 500)
	v.SetDefault("slack.notify_channel", "#daily-bot")
	v.SetDefault("gmail.enabled", false)
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.max_tokens", 1500)
	v.SetDefault("openai.temperature", 0.2)
	v.SetDefault("openai.language", "English")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("search.enabled", false)
	v.SetDefault("search.scheme", "http")
	v.SetDefault("search.host", "localhost:8080")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_interval", 2*time.Second)
	v.SetDefault("retry.max_interval", 30*time.Second)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("window.timezone", "Local")
	v.SetDefault("classifier.max_tags", 10)

	// Enable environment variable support
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		dbConfig.UseInMemory = config.Database.UseInMemory
		config.Database = dbConfig
	}

	// Get other environment variables
	if token := v.GetString("SLACK_USER_TOKEN"); token != "" {
		config.Slack.UserToken = token
	}

	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	return &config, nil
}

// Validate checks the settings every run needs.
func (c *Config) Validate() error {
	var errs []error
	if c.Slack.UserToken == "" {
		errs = append(errs, errors.New("slack.user_token (SLACK_USER_TOKEN) is required"))
	}
	if c.Slack.UserID == "" {
		errs = append(errs, errors.New("slack.user_id is required"))
	}
	if c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("openai.api_key (OPENAI_API_KEY) is required"))
	}
	if c.Gmail.Enabled && (c.Gmail.CredentialsFile == "" || c.Gmail.DelegatedUser == "") {
		errs = append(errs, errors.New("gmail.credentials_file and gmail.delegated_user are required when gmail is enabled"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry.max_attempts must be at least 1"))
	}
	return errors.Join(errs...)
}

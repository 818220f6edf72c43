package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the story monitor
type Config struct {
	// Telegram bot settings
	Telegram TelegramConfig `yaml:"telegram" json:"telegram"`

	// Instagram session settings for the capture client
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Monitoring loop settings
	Monitor MonitorConfig `yaml:"monitor" json:"monitor"`

	// Durable state locations
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Rate limiting for Instagram API calls
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry policy for media downloads
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// TelegramConfig holds the bot credentials and API location
type TelegramConfig struct {
	BotToken string `yaml:"bot_token" json:"bot_token"`
	APIBase  string `yaml:"api_base" json:"api_base"`
}

// InstagramConfig holds Instagram session configuration
type InstagramConfig struct {
	SessionID string `yaml:"session_id" json:"session_id"`
	CSRFToken string `yaml:"csrf_token" json:"csrf_token"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
}

// MonitorConfig holds the monitoring loop cadence and history retention policy
type MonitorConfig struct {
	CheckInterval     time.Duration `yaml:"check_interval" json:"check_interval"`
	AccountDelay      time.Duration `yaml:"account_delay" json:"account_delay"`
	RecoveryDelay     time.Duration `yaml:"recovery_delay" json:"recovery_delay"`
	HistoryMaxEntries int           `yaml:"history_max_entries" json:"history_max_entries"`
	HistoryMaxAgeDays int           `yaml:"history_max_age_days" json:"history_max_age_days"`
}

// StorageConfig holds the locations of the durable stores
type StorageConfig struct {
	DataDir        string `yaml:"data_dir" json:"data_dir"`
	UsersFile      string `yaml:"users_file" json:"users_file"`
	AlertStatesDir string `yaml:"alert_states_dir" json:"alert_states_dir"`
	ArchiveDir     string `yaml:"archive_dir" json:"archive_dir"`
	ArchiveEnabled bool   `yaml:"archive_enabled" json:"archive_enabled"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// RetryConfig holds the download retry policy
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay" json:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			APIBase: "https://api.telegram.org",
		},
		Instagram: InstagramConfig{
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		},
		Monitor: MonitorConfig{
			CheckInterval:     5 * time.Minute,
			AccountDelay:      2 * time.Second,
			RecoveryDelay:     time.Minute,
			HistoryMaxEntries: 200,
			HistoryMaxAgeDays: 30,
		},
		Storage: StorageConfig{
			DataDir:        "./data",
			UsersFile:      "users.json",
			AlertStatesDir: "alert_states",
			ArchiveDir:     "archive",
			ArchiveEnabled: true,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// UsersPath returns the full path of the subscription store file
func (c *Config) UsersPath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.UsersFile)
}

// AlertStatesPath returns the full path of the alert-states directory
func (c *Config) AlertStatesPath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.AlertStatesDir)
}

// ArchivePath returns the full path of the story archive directory
func (c *Config) ArchivePath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.ArchiveDir)
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if token := os.Getenv("STORYWATCH_BOT_TOKEN"); token != "" {
		c.Telegram.BotToken = token
	}
	if apiBase := os.Getenv("STORYWATCH_TELEGRAM_API_BASE"); apiBase != "" {
		c.Telegram.APIBase = apiBase
	}
	if sessionID := os.Getenv("STORYWATCH_SESSION_ID"); sessionID != "" {
		c.Instagram.SessionID = sessionID
	}
	if csrfToken := os.Getenv("STORYWATCH_CSRF_TOKEN"); csrfToken != "" {
		c.Instagram.CSRFToken = csrfToken
	}
	if userAgent := os.Getenv("STORYWATCH_USER_AGENT"); userAgent != "" {
		c.Instagram.UserAgent = userAgent
	}
	if interval := os.Getenv("STORYWATCH_CHECK_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil && d > 0 {
			c.Monitor.CheckInterval = d
		}
	}
	if delay := os.Getenv("STORYWATCH_ACCOUNT_DELAY"); delay != "" {
		if d, err := time.ParseDuration(delay); err == nil && d >= 0 {
			c.Monitor.AccountDelay = d
		}
	}
	if entries := os.Getenv("STORYWATCH_HISTORY_MAX_ENTRIES"); entries != "" {
		if val, err := strconv.Atoi(entries); err == nil && val > 0 {
			c.Monitor.HistoryMaxEntries = val
		}
	}
	if dataDir := os.Getenv("STORYWATCH_DATA_DIR"); dataDir != "" {
		c.Storage.DataDir = dataDir
	}
	if rpm := os.Getenv("STORYWATCH_REQUESTS_PER_MINUTE"); rpm != "" {
		if val, err := strconv.Atoi(rpm); err == nil && val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}
	if logLevel := os.Getenv("STORYWATCH_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	// Check in order of precedence
	locations := []string{
		".storywatch.yaml",
		".storywatch.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "storywatch", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "storywatch", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".storywatch.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Telegram.BotToken == "" {
		errs = append(errs, errors.New("telegram bot token is required"))
	}

	if c.Monitor.CheckInterval <= 0 {
		errs = append(errs, errors.New("check interval must be positive"))
	}
	if c.Monitor.AccountDelay < 0 {
		errs = append(errs, errors.New("account delay cannot be negative"))
	}
	if c.Monitor.RecoveryDelay <= 0 {
		errs = append(errs, errors.New("recovery delay must be positive"))
	}
	if c.Monitor.HistoryMaxEntries <= 0 {
		errs = append(errs, errors.New("history max entries must be positive"))
	}
	if c.Monitor.HistoryMaxAgeDays <= 0 {
		errs = append(errs, errors.New("history max age must be positive"))
	}

	if c.Storage.DataDir == "" {
		errs = append(errs, errors.New("data directory is required"))
	}
	if c.Storage.UsersFile == "" {
		errs = append(errs, errors.New("users file is required"))
	}
	if c.Storage.AlertStatesDir == "" {
		errs = append(errs, errors.New("alert states directory is required"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}

	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("retry max attempts cannot be negative"))
	}
	if c.Retry.Multiplier < 1.0 {
		errs = append(errs, errors.New("retry multiplier must be at least 1"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if token, ok := flags["bot-token"].(string); ok && token != "" {
		c.Telegram.BotToken = token
	}
	if sessionID, ok := flags["session-id"].(string); ok && sessionID != "" {
		c.Instagram.SessionID = sessionID
	}
	if csrfToken, ok := flags["csrf-token"].(string); ok && csrfToken != "" {
		c.Instagram.CSRFToken = csrfToken
	}
	if dataDir, ok := flags["data-dir"].(string); ok && dataDir != "" {
		c.Storage.DataDir = dataDir
	}
	if interval, ok := flags["check-interval"].(time.Duration); ok && interval > 0 {
		c.Monitor.CheckInterval = interval
	}
	if rpm, ok := flags["requests-per-minute"].(int); ok && rpm > 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".storywatch.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Package config provides configuration loading, validation, and management
// for the socialbot service. Values come from defaults, an optional YAML file,
// and BOT_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"time"
)

// ErrConfiguration wraps every error returned by Load.
var ErrConfiguration = errors.New("configuration error")

// Config defines the application configuration for all components.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Store     StoreConfig     `mapstructure:"store"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Farcaster FarcasterConfig `mapstructure:"farcaster"`
	Character CharacterConfig `mapstructure:"character"`
	Messages  MessagesConfig  `mapstructure:"messages"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// HTTPConfig configures the webhook ingress server.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"             validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     validate:"min=1s"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    validate:"min=1s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=1s"`
	AllowedOrigin   string        `mapstructure:"allowed_origin"`
}

// StoreConfig selects and configures the memory store backend.
type StoreConfig struct {
	Backend          string        `mapstructure:"backend"           validate:"oneof=redis sqlite"`
	RedisAddr        string        `mapstructure:"redis_addr"        validate:"required_if=Backend redis"`
	RedisPassword    string        `mapstructure:"redis_password"`
	RedisDB          int           `mapstructure:"redis_db"          validate:"min=0"`
	SQLitePath       string        `mapstructure:"sqlite_path"       validate:"required_if=Backend sqlite"`
	ConversationTTL  time.Duration `mapstructure:"conversation_ttl"  validate:"min=1m"`
	LongTermTTL      time.Duration `mapstructure:"long_term_ttl"     validate:"min=1m"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout" validate:"min=100ms"`
}

// RateLimitConfig configures the fixed-window limiter.
type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max_requests" validate:"min=1"`
	Window      time.Duration `mapstructure:"window"       validate:"min=1s"`
}

// RetryConfig configures the retry executor's backoff.
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries" validate:"min=1,max=20"`
	BaseDelay  time.Duration `mapstructure:"base_delay"  validate:"min=1ms"`
	MaxDelay   time.Duration `mapstructure:"max_delay"   validate:"gtefield=BaseDelay"`
}

// CacheConfig configures the response de-duplication cache.
type CacheConfig struct {
	Bucket time.Duration `mapstructure:"bucket"  validate:"min=1s"`
	MaxAge time.Duration `mapstructure:"max_age" validate:"gtefield=Bucket"`
}

// GeminiConfig holds settings for the Gemini generation backend.
type GeminiConfig struct {
	APIKey      string        `mapstructure:"api_key"     validate:"required"`
	ModelName   string        `mapstructure:"model_name"  validate:"required"`
	Temperature float32       `mapstructure:"temperature" validate:"min=0,max=2"`
	Timeout     time.Duration `mapstructure:"timeout"     validate:"min=1s,max=10m"`
}

// TelegramConfig holds the Telegram bot credentials. An empty token disables the client.
type TelegramConfig struct {
	Token     string `mapstructure:"token"`
	MaxLength int    `mapstructure:"max_length" validate:"min=1,max=4096"`
}

// FarcasterConfig holds the Neynar API credentials. An empty API key disables the client.
type FarcasterConfig struct {
	APIKey     string `mapstructure:"api_key"`
	SignerUUID string `mapstructure:"signer_uuid" validate:"required_with=APIKey"`
	BaseURL    string `mapstructure:"base_url"    validate:"required,url"`
	MaxLength  int    `mapstructure:"max_length"  validate:"min=1,max=1024"`
}

// CharacterConfig is the persona used as the system-prompt seed.
type CharacterConfig struct {
	Name  string   `mapstructure:"name"  validate:"required"`
	Bio   []string `mapstructure:"bio"`
	Lore  []string `mapstructure:"lore"`
	Style []string `mapstructure:"style"`
}

// MessagesConfig holds user-facing canned replies.
type MessagesConfig struct {
	Help          string `mapstructure:"help"           validate:"required"`
	Apology       string `mapstructure:"apology"        validate:"required"`
	Remembered    string `mapstructure:"remembered"     validate:"required"`
	EmptyFallback string `mapstructure:"empty_fallback" validate:"required"`
}

// SchedulerConfig maps task names to their schedule.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig configures a single scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

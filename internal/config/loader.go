package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from the given YAML file (optional), applies
// defaults and BOT_* environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	startTime := time.Now()

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isNotExist(err) {
			return nil, fmt.Errorf("%w: failed to read config file %s: %v", ErrConfiguration, path, err)
		}
		slog.Info("configuration file not found, using defaults and environment", "path", path)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}
	if cfg.Scheduler.Tasks == nil {
		cfg.Scheduler.Tasks = DefaultTasks
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	slog.Info("configuration loaded successfully",
		"store_backend", cfg.Store.Backend,
		"gemini_model", cfg.Gemini.ModelName,
		"telegram_enabled", cfg.Telegram.Token != "",
		"farcaster_enabled", cfg.Farcaster.APIKey != "",
		"duration_ms", time.Since(startTime).Milliseconds())

	return cfg, nil
}

// Validate checks the struct tags of the whole configuration tree.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return nil
}

// viper reports a missing explicit file as an *fs.PathError rather than ConfigFileNotFoundError.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", true)

	v.SetDefault("http.addr", DefaultHTTPAddr)
	v.SetDefault("http.read_timeout", DefaultHTTPReadTimeout)
	v.SetDefault("http.write_timeout", DefaultHTTPWriteTimeout)
	v.SetDefault("http.shutdown_timeout", DefaultHTTPShutdownTimeout)
	v.SetDefault("http.allowed_origin", "*")

	v.SetDefault("store.backend", DefaultStoreBackend)
	v.SetDefault("store.redis_addr", DefaultRedisAddr)
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.sqlite_path", DefaultSQLitePath)
	v.SetDefault("store.conversation_ttl", DefaultConversationTTL)
	v.SetDefault("store.long_term_ttl", DefaultLongTermTTL)
	v.SetDefault("store.operation_timeout", DefaultStoreOpTimeout)

	v.SetDefault("rate_limit.max_requests", DefaultRateLimitMax)
	v.SetDefault("rate_limit.window", DefaultRateLimitWindow)

	v.SetDefault("retry.max_retries", DefaultRetryMaxRetries)
	v.SetDefault("retry.base_delay", DefaultRetryBaseDelay)
	v.SetDefault("retry.max_delay", DefaultRetryMaxDelay)

	v.SetDefault("cache.bucket", DefaultCacheBucket)
	v.SetDefault("cache.max_age", DefaultCacheMaxAge)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", DefaultGeminiModel)
	v.SetDefault("gemini.temperature", DefaultGeminiTemp)
	v.SetDefault("gemini.timeout", DefaultGeminiTimeout)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.max_length", DefaultTelegramMaxLen)

	v.SetDefault("farcaster.api_key", "")
	v.SetDefault("farcaster.signer_uuid", "")
	v.SetDefault("farcaster.base_url", DefaultFarcasterBaseURL)
	v.SetDefault("farcaster.max_length", DefaultFarcasterMaxLen)

	v.SetDefault("character.name", DefaultCharacterName)
	v.SetDefault("character.bio", []string{})
	v.SetDefault("character.lore", []string{})
	v.SetDefault("character.style", []string{})

	v.SetDefault("messages.help", DefaultMessages.Help)
	v.SetDefault("messages.apology", DefaultMessages.Apology)
	v.SetDefault("messages.remembered", DefaultMessages.Remembered)
	v.SetDefault("messages.empty_fallback", DefaultMessages.EmptyFallback)
}

package config

import "time"

// Default values for configuration
const (
	DefaultLogLevel = "info"

	DefaultHTTPAddr            = ":8080"
	DefaultHTTPReadTimeout     = 15 * time.Second
	DefaultHTTPWriteTimeout    = 3 * time.Minute // a drain cycle can outlive a single request
	DefaultHTTPShutdownTimeout = 10 * time.Second

	DefaultStoreBackend     = "redis"
	DefaultRedisAddr        = "localhost:6379"
	DefaultSQLitePath       = "storage.db"
	DefaultConversationTTL  = 24 * time.Hour
	DefaultLongTermTTL      = 30 * 24 * time.Hour
	DefaultStoreOpTimeout   = 5 * time.Second
	DefaultRateLimitMax     = 50
	DefaultRateLimitWindow  = time.Minute
	DefaultRetryMaxRetries  = 3
	DefaultRetryBaseDelay   = time.Second
	DefaultRetryMaxDelay    = 10 * time.Second
	DefaultCacheBucket      = time.Minute
	DefaultCacheMaxAge      = time.Hour
	DefaultGeminiModel      = "gemini-2.0-flash"
	DefaultGeminiTemp       = 1.0
	DefaultGeminiTimeout    = 2 * time.Minute
	DefaultTelegramMaxLen   = 4096
	DefaultFarcasterBaseURL = "https://api.neynar.com/v2"
	DefaultFarcasterMaxLen  = 320
	DefaultCharacterName    = "Murailo"
)

// Default user-facing messages
var DefaultMessages = MessagesConfig{
	Help:          "Mention me with a question to chat. Say \"remember <something>\" and I'll keep it in mind, or \"recall\" to hear what I know about you.",
	Apology:       "Sorry, something went wrong on my side. Please try again later.",
	Remembered:    "Got it, I'll remember that.",
	EmptyFallback: "I don't have a response at this time.",
}

// Default scheduled tasks
var DefaultTasks = map[string]TaskConfig{
	"cache_sweep": {Enabled: true, Schedule: "0 */10 * * * *"},
	"kv_purge":    {Enabled: true, Schedule: "0 0 * * * *"},
}

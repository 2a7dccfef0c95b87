// Package main contains the entrypoint for the social bot webhook service.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/socialbot/internal/bot"
	"github.com/edgard/socialbot/internal/bot/actions"
	"github.com/edgard/socialbot/internal/bot/tasks"
	"github.com/edgard/socialbot/internal/cache"
	"github.com/edgard/socialbot/internal/config"
	"github.com/edgard/socialbot/internal/database"
	"github.com/edgard/socialbot/internal/farcaster"
	"github.com/edgard/socialbot/internal/gemini"
	"github.com/edgard/socialbot/internal/httpapi"
	"github.com/edgard/socialbot/internal/logger"
	"github.com/edgard/socialbot/internal/memory"
	"github.com/edgard/socialbot/internal/message"
	"github.com/edgard/socialbot/internal/observability"
	"github.com/edgard/socialbot/internal/platform"
	"github.com/edgard/socialbot/internal/processor"
	"github.com/edgard/socialbot/internal/ratelimit"
	"github.com/edgard/socialbot/internal/retry"
	"github.com/edgard/socialbot/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components and returns an exit
// code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	metrics := observability.NewMetrics("socialbot")

	backend, kv, closeBackend, err := openBackend(cfg.Store, log)
	if err != nil {
		log.Error("Failed to open memory backend", "backend", cfg.Store.Backend, "error", err)
		return 1
	}
	defer closeBackend()

	store := memory.NewStore(ctx, backend, memory.Config{
		ConversationTTL:  cfg.Store.ConversationTTL,
		LongTermTTL:      cfg.Store.LongTermTTL,
		OperationTimeout: cfg.Store.OperationTimeout,
	}, log)

	limiter := ratelimit.New(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	executor := retry.NewExecutor(retry.Config{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  cfg.Retry.BaseDelay,
		MaxDelay:   cfg.Retry.MaxDelay,
	}, limiter, log, retry.WithHooks(retry.Hooks{
		OnThrottled: func(resource string) {
			metrics.RateLimitRejections.WithLabelValues(resource).Inc()
		},
		OnRetry: func(resource string, _ int, _ error) {
			metrics.RetryAttempts.WithLabelValues(resource, "retried").Inc()
		},
		OnExhausted: func(resource string, _ error) {
			metrics.RetryAttempts.WithLabelValues(resource, "exhausted").Inc()
		},
	}))

	gemClient, err := gemini.NewClient(ctx, cfg.Gemini, log)
	if err != nil {
		log.Error("Failed to initialize Gemini client", "error", err)
		return 1
	}

	registry, err := buildPlatforms(cfg, log)
	if err != nil {
		log.Error("Failed to initialize platform clients", "error", err)
		return 1
	}
	log.Info("Platform clients registered", "platforms", registry.Platforms())

	responses := cache.New(cfg.Cache.Bucket)
	dispatcher := actions.RegisterAll(actions.Deps{
		Logger: log,
		Config: cfg,
		Memory: store,
	})

	proc, err := processor.New(processor.Deps{
		Logger:        log,
		Validator:     message.NewValidator(),
		Platforms:     registry,
		Actions:       dispatcher,
		Memory:        store,
		Cache:         responses,
		Executor:      executor,
		Completer:     gemClient,
		Metrics:       metrics,
		SystemPrompt:  gemini.SystemPrompt(cfg.Character),
		EmptyFallback: cfg.Messages.EmptyFallback,
	})
	if err != nil {
		log.Error("Failed to create message processor", "error", err)
		return 1
	}

	tDeps := tasks.TaskDeps{
		Logger:  log,
		Config:  cfg,
		Cache:   responses,
		Metrics: metrics,
	}
	if kv != nil {
		tDeps.KV = kv
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:        log,
		Processor:     proc,
		Metrics:       metrics.Handler(),
		AllowedOrigin: cfg.HTTP.AllowedOrigin,
	})
	app := bot.NewBot(log, cfg.HTTP, router, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}

// openBackend returns the configured memory backend. kv is non-nil only for
// SQLite, which needs scheduled purges.
func openBackend(cfg config.StoreConfig, log *slog.Logger) (memory.Backend, *database.KVStore, func(), error) {
	switch cfg.Backend {
	case "sqlite":
		db, err := database.NewDB(cfg.SQLitePath, log)
		if err != nil {
			return nil, nil, nil, err
		}
		kv := database.NewKVStore(db, log)
		return kv, kv, func() { database.CloseDB(db, log) }, nil
	default:
		rb := memory.NewRedisBackend(memory.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return rb, nil, func() {
			if err := rb.Close(); err != nil {
				log.Error("Error closing redis client", "error", err)
			}
		}, nil
	}
}

// buildPlatforms registers a client for every platform with credentials.
// Twitter has no client; its messages fail at the transform step.
func buildPlatforms(cfg *config.Config, log *slog.Logger) (*platform.Registry, error) {
	registry := platform.NewRegistry()

	if cfg.Telegram.Token != "" {
		tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, tgbot.WithSkipGetMe())
		if err != nil {
			return nil, err
		}
		registry.Register(telegram.NewClient(tg, cfg.Telegram.MaxLength, log))
	}

	if cfg.Farcaster.APIKey != "" {
		fc, err := farcaster.NewClient(cfg.Farcaster, log)
		if err != nil {
			return nil, err
		}
		registry.Register(fc)
	}

	if len(registry.Platforms()) == 0 {
		log.Warn("No platform clients configured; every message will fail to transform")
	}
	return registry, nil
}

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"markdown-editor/content/application"
	"markdown-editor/content/domain"
	"markdown-editor/export"
	"markdown-editor/internal/envconfig"
)

type config struct {
	listenAddr string

	storageType   string
	sqlitePath    string
	redisAddr     string
	redisPassword string
	redisDB       int
	redisPrefix   string

	defaultLocale domain.Locale
	maxContent    int64
	maxExport     int64
	autosaveDelay time.Duration
	saveTimeout   time.Duration
	cleanOnExport bool

	rateEnabled   bool
	rateStrategy  string
	rateWindow    time.Duration
	rateLimit     int
	rateCapacity  int
	rateKeyHeader string
	trustXFF      bool
	rateToken     string
	retryAfter    time.Duration

	allowedOrigin string
	production    bool

	logLevel  string
	logFormat string
}

func readConfig(src *envconfig.Source) (config, error) {
	cfg := config{}
	cfg.listenAddr = src.String("LISTEN_ADDR", ":8080")

	cfg.storageType = strings.ToLower(src.String("STORAGE_TYPE", "sqlite"))
	cfg.sqlitePath = src.String("SQLITE_PATH", "markeditor.db")
	cfg.redisAddr = src.String("REDIS_ADDR", "")
	cfg.redisPassword = src.String("REDIS_PASSWORD", "")
	cfg.redisDB = src.Int("REDIS_DB", 0)
	cfg.redisPrefix = src.String("REDIS_PREFIX", "markeditor")

	locale, err := domain.ParseLocale(src.String("DEFAULT_LOCALE", string(domain.DefaultLocale)))
	if err != nil {
		return config{}, fmt.Errorf("DEFAULT_LOCALE: %w", err)
	}
	cfg.defaultLocale = locale
	cfg.maxContent = src.Int64("MAX_CONTENT_BYTES", domain.DefaultMaxContentBytes)
	cfg.maxExport = src.Int64("MAX_EXPORT_BYTES", export.DefaultMaxBytes)
	cfg.autosaveDelay = src.Duration("AUTOSAVE_DELAY", application.DefaultSaveDelay)
	cfg.saveTimeout = src.Duration("SAVE_TIMEOUT", application.DefaultSaveTimeout)
	cfg.cleanOnExport = src.Bool("EXPORT_CLEAN", false)

	cfg.rateEnabled = src.Bool("RATE_ENABLED", true)
	cfg.rateStrategy = strings.ToLower(src.String("RATE_STRATEGY", "window"))
	cfg.rateWindow = src.Duration("RATE_WINDOW", 60*time.Second)
	cfg.rateLimit = src.Int("RATE_LIMIT", 30)
	cfg.rateCapacity = src.Int("RATE_CAPACITY", 500)
	cfg.rateKeyHeader = src.String("RATE_KEY_HEADER", "")
	cfg.trustXFF = src.Bool("TRUST_XFF", false)
	cfg.rateToken = src.String("RATE_TOKEN", "")
	cfg.retryAfter = src.Duration("RETRY_AFTER", 0)

	cfg.allowedOrigin = src.String("ALLOWED_ORIGIN", "*")
	cfg.production = src.Bool("PRODUCTION", false)

	cfg.logLevel = src.String("LOG_LEVEL", "info")
	cfg.logFormat = src.String("LOG_FORMAT", "json")

	switch cfg.storageType {
	case "sqlite":
		if strings.TrimSpace(cfg.sqlitePath) == "" {
			return config{}, errors.New("SQLITE_PATH is required when STORAGE_TYPE=sqlite")
		}
	case "redis":
		if strings.TrimSpace(cfg.redisAddr) == "" {
			return config{}, errors.New("REDIS_ADDR is required when STORAGE_TYPE=redis")
		}
	case "memory":
	default:
		return config{}, fmt.Errorf("STORAGE_TYPE must be sqlite, memory or redis, got %q", cfg.storageType)
	}
	if cfg.maxContent <= 0 {
		return config{}, errors.New("MAX_CONTENT_BYTES must be > 0")
	}
	if cfg.maxExport <= 0 {
		return config{}, errors.New("MAX_EXPORT_BYTES must be > 0")
	}
	if cfg.autosaveDelay <= 0 {
		return config{}, errors.New("AUTOSAVE_DELAY must be > 0")
	}
	if cfg.rateEnabled {
		if cfg.rateStrategy != "window" && cfg.rateStrategy != "bucket" {
			return config{}, fmt.Errorf("RATE_STRATEGY must be window or bucket, got %q", cfg.rateStrategy)
		}
		if cfg.rateWindow <= 0 {
			return config{}, errors.New("RATE_WINDOW must be > 0")
		}
		if cfg.rateLimit <= 0 {
			return config{}, errors.New("RATE_LIMIT must be > 0")
		}
		if cfg.rateCapacity <= 0 {
			return config{}, errors.New("RATE_CAPACITY must be > 0")
		}
	}
	return cfg, nil
}

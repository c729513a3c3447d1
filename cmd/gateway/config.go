package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"markdown-editor/internal/envconfig"
)

type config struct {
	listenAddr  string
	upstreamURL string

	rateEnabled   bool
	rateStrategy  string
	rateWindow    time.Duration
	rateLimit     int
	rateCapacity  int
	rateKeyHeader string
	trustXFF      bool
	rateToken     string
	retryAfter    time.Duration
	addHeaders    bool

	securityHeaders bool
	allowedOrigin   string
	production      bool

	rateStatsEnabled       bool
	rateStatsBackend       string
	rateStatsRedisAddr     string
	rateStatsRedisPassword string
	rateStatsRedisDB       int
	rateStatsPrefix        string
	rateStatsTTL           time.Duration
	rateStatsBucket        string
	rateStatsTrackKeys     bool
	statsPath              string

	logLevel  string
	logFormat string
}

func readConfig(src *envconfig.Source) (config, error) {
	cfg := config{}
	cfg.listenAddr = src.String("LISTEN_ADDR", ":8080")
	cfg.upstreamURL = src.String("UPSTREAM_URL", "")

	cfg.rateEnabled = src.Bool("RATE_ENABLED", true)
	cfg.rateStrategy = strings.ToLower(src.String("RATE_STRATEGY", "window"))
	cfg.rateWindow = src.Duration("RATE_WINDOW", 60*time.Second)
	cfg.rateLimit = src.Int("RATE_LIMIT", 30)
	cfg.rateCapacity = src.Int("RATE_CAPACITY", 500)
	cfg.rateKeyHeader = src.String("RATE_KEY_HEADER", "")
	cfg.trustXFF = src.Bool("TRUST_XFF", false)
	cfg.rateToken = src.String("RATE_TOKEN", "")
	cfg.retryAfter = src.Duration("RETRY_AFTER", 1*time.Second)
	cfg.addHeaders = src.Bool("ADD_RATELIMIT_HEADERS", false)

	cfg.securityHeaders = src.Bool("SECURITY_HEADERS", true)
	cfg.allowedOrigin = src.String("ALLOWED_ORIGIN", "*")
	cfg.production = src.Bool("PRODUCTION", false)

	cfg.rateStatsEnabled = src.Bool("RATE_STATS_ENABLED", false)
	cfg.rateStatsRedisAddr = src.String("RATE_STATS_REDIS_ADDR", "")
	// sem endereço Redis, as estatísticas ficam em memória
	defBackend := "memory"
	if cfg.rateStatsRedisAddr != "" {
		defBackend = "redis"
	}
	cfg.rateStatsBackend = strings.ToLower(src.String("RATE_STATS_BACKEND", defBackend))
	cfg.rateStatsRedisPassword = src.String("RATE_STATS_REDIS_PASSWORD", "")
	cfg.rateStatsRedisDB = src.Int("RATE_STATS_REDIS_DB", 0)
	cfg.rateStatsPrefix = src.String("RATE_STATS_PREFIX", "ratelimit:stats")
	cfg.rateStatsTTL = src.Duration("RATE_STATS_TTL", 24*time.Hour)
	cfg.rateStatsBucket = src.String("RATE_STATS_BUCKET", "minute")
	cfg.rateStatsTrackKeys = src.Bool("RATE_STATS_TRACK_KEYS", false)
	cfg.statsPath = src.String("RATE_STATS_PATH", "/_ratelimit/stats")

	cfg.logLevel = src.String("LOG_LEVEL", "info")
	cfg.logFormat = src.String("LOG_FORMAT", "json")

	if cfg.upstreamURL == "" {
		return config{}, errors.New("UPSTREAM_URL is required")
	}
	if cfg.rateStatsEnabled {
		switch cfg.rateStatsBackend {
		case "memory":
		case "redis":
			if strings.TrimSpace(cfg.rateStatsRedisAddr) == "" {
				return config{}, errors.New("RATE_STATS_REDIS_ADDR is required when RATE_STATS_BACKEND=redis")
			}
		default:
			return config{}, fmt.Errorf("RATE_STATS_BACKEND must be memory or redis, got %q", cfg.rateStatsBackend)
		}
		if !strings.HasPrefix(cfg.statsPath, "/") {
			return config{}, errors.New("RATE_STATS_PATH must start with /")
		}
	}
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
	return cfg, nil
}

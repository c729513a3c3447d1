package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"markdown-editor/internal/envconfig"
	"markdown-editor/logging"
	"markdown-editor/middleware/ratelimit"
	"markdown-editor/middleware/ratelimit/domain"
	"markdown-editor/middleware/ratelimit/infra"
)

func main() {
	src, err := envconfig.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	cfg, err := readConfig(src)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.logLevel, Format: cfg.logFormat})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	target, err := url.Parse(cfg.upstreamURL)
	if err != nil {
		logger.Fatal("invalid UPSTREAM_URL", zap.Error(err))
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Warn("proxy error", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	var statsStore domain.StatsStore
	var statsReader domain.StatsReader
	if cfg.rateStatsEnabled {
		switch cfg.rateStatsBackend {
		case "redis":
			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.rateStatsRedisAddr,
				Password: cfg.rateStatsRedisPassword,
				DB:       cfg.rateStatsRedisDB,
			})
			defer func() { _ = rdb.Close() }()

			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			_, err := rdb.Ping(pingCtx).Result()
			cancel()
			if err != nil {
				logger.Fatal("redis stats ping error", zap.Error(err))
			}

			rs := infra.NewRedisStatsStore(
				rdb,
				infra.WithStatsPrefix(cfg.rateStatsPrefix),
				infra.WithStatsTTL(cfg.rateStatsTTL),
				infra.WithStatsBucket(cfg.rateStatsBucket),
				infra.WithStatsTrackKeys(cfg.rateStatsTrackKeys),
			)
			statsStore, statsReader = rs, rs
		default:
			ms := infra.NewMemoryStatsStore(infra.WithTrackKeys(cfg.rateStatsTrackKeys))
			statsStore, statsReader = ms, ms
		}
	}

	var limiter domain.WindowLimiter
	if cfg.rateStrategy == "bucket" {
		limiter = infra.NewBucketStore(cfg.rateWindow, cfg.rateCapacity)
	} else {
		limiter = infra.NewWindowStore(cfg.rateWindow, cfg.rateCapacity)
	}

	h := buildHandler(cfg, logger, proxy, limiter, statsStore, statsReader)

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("gateway listening", zap.String("addr", cfg.listenAddr), zap.String("upstream", target.String()))
	logger.Info("rate",
		zap.Bool("enabled", cfg.rateEnabled),
		zap.String("strategy", cfg.rateStrategy),
		zap.Duration("window", cfg.rateWindow),
		zap.Int("limit", cfg.rateLimit),
		zap.Int("capacity", cfg.rateCapacity),
		zap.String("key_header", cfg.rateKeyHeader),
		zap.Bool("trust_xff", cfg.trustXFF),
	)
	logger.Info("rate-stats",
		zap.Bool("enabled", cfg.rateStatsEnabled),
		zap.String("backend", cfg.rateStatsBackend),
		zap.String("bucket", cfg.rateStatsBucket),
		zap.Duration("ttl", cfg.rateStatsTTL),
		zap.Bool("track_keys", cfg.rateStatsTrackKeys),
		zap.String("path", cfg.statsPath),
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}

// buildHandler monta as rotas: o endpoint de stats fica fora do limite; o
// resto passa por log, rate limit e headers antes do proxy.
func buildHandler(cfg config, logger *zap.Logger, upstream http.Handler, limiter domain.WindowLimiter, stats domain.StatsStore, reader domain.StatsReader) http.Handler {
	r := chi.NewRouter()
	if cfg.rateStatsEnabled {
		r.Method(http.MethodGet, cfg.statsPath, ratelimit.StatsHandler(reader))
	}
	r.Group(func(r chi.Router) {
		r.Use(logging.AccessLog(logger.Named("access")))
		if cfg.rateEnabled {
			r.Use(ratelimit.Middleware(ratelimit.Options{
				Limiter:             limiter,
				Limit:               cfg.rateLimit,
				Stats:               stats,
				Token:               cfg.rateToken,
				KeyHeader:           cfg.rateKeyHeader,
				TrustXForwardedFor:  cfg.trustXFF,
				RejectStatus:        http.StatusTooManyRequests,
				RetryAfter:          cfg.retryAfter,
				AddRateLimitHeaders: cfg.addHeaders,
				Logger:              logger.Named("ratelimit"),
			}))
		}
		if cfg.securityHeaders {
			headers := ratelimit.DefaultHeaders()
			headers.AllowOrigin = cfg.allowedOrigin
			headers.Production = cfg.production
			r.Use(ratelimit.SecurityHeaders(headers))
		}
		r.Handle("/*", upstream)
	})
	return r
}

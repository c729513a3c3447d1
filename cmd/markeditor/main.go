package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"markdown-editor/consent"
	"markdown-editor/content/application"
	"markdown-editor/content/domain"
	"markdown-editor/content/infra"
	"markdown-editor/content/templates"
	"markdown-editor/export"
	"markdown-editor/internal/envconfig"
	"markdown-editor/logging"
	"markdown-editor/middleware/ratelimit"
	rldomain "markdown-editor/middleware/ratelimit/domain"
	rlinfra "markdown-editor/middleware/ratelimit/infra"
	"markdown-editor/render"
	"markdown-editor/server"
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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("storage error", zap.Error(err))
	}
	defer closeStore()

	pipeline, err := application.New(store, templates.Default(), application.Config{
		MaxBytes:    cfg.maxContent,
		SaveDelay:   cfg.autosaveDelay,
		SaveTimeout: cfg.saveTimeout,
		Locale:      cfg.defaultLocale,
	}, application.WithLogger(logger.Named("pipeline")))
	if err != nil {
		logger.Fatal("pipeline error", zap.Error(err))
	}

	res, err := pipeline.Load(ctx)
	if err != nil {
		logger.Fatal("could not load document", zap.Error(err))
	}
	// o conteúdo inicial é gravado uma vez; um snapshot grande demais fica
	// como está até o próximo save
	if !res.DiscardedOversized && !pipeline.Persist(ctx, pipeline.Content()) {
		logger.Warn("initial save failed", zap.String("error", pipeline.Status().Error))
	}

	consentSvc, err := consent.NewService(store, consent.WithLogger(logger.Named("consent")))
	if err != nil {
		logger.Fatal("consent error", zap.Error(err))
	}

	headers := ratelimit.DefaultHeaders()
	headers.AllowOrigin = cfg.allowedOrigin
	headers.Production = cfg.production

	var middlewares []func(http.Handler) http.Handler
	if cfg.rateEnabled {
		middlewares = append(middlewares, ratelimit.Middleware(ratelimit.Options{
			Limiter:             newLimiter(cfg),
			Limit:               cfg.rateLimit,
			Token:               cfg.rateToken,
			KeyHeader:           cfg.rateKeyHeader,
			TrustXForwardedFor:  cfg.trustXFF,
			RetryAfter:          cfg.retryAfter,
			AddRateLimitHeaders: true,
			Logger:              logger.Named("ratelimit"),
		}))
	}
	middlewares = append(middlewares, ratelimit.SecurityHeaders(headers))

	router, err := server.NewRouter(server.Deps{
		Pipeline: pipeline,
		Exporter: export.New(
			export.WithMaxBytes(cfg.maxExport),
			export.WithCleanContent(cfg.cleanOnExport),
		),
		Renderer:     render.NewRenderer(),
		Importer:     render.NewImporter(),
		Consent:      consentSvc,
		Logger:       logger.Named("http"),
		Middlewares:  middlewares,
		MaxBodyBytes: 4 * cfg.maxContent,
	})
	if err != nil {
		logger.Fatal("router error", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("markeditor listening",
		zap.String("addr", cfg.listenAddr),
		zap.String("storage", cfg.storageType),
		zap.String("locale", string(cfg.defaultLocale)),
		zap.String("loaded_from", string(res.Source)),
		zap.Duration("autosave_delay", cfg.autosaveDelay),
	)
	logger.Info("rate limit",
		zap.Bool("enabled", cfg.rateEnabled),
		zap.String("strategy", cfg.rateStrategy),
		zap.Duration("window", cfg.rateWindow),
		zap.Int("limit", cfg.rateLimit),
		zap.Int("capacity", cfg.rateCapacity),
		zap.Bool("fixed_token", cfg.rateToken != ""),
	)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}

	// edição ainda dentro do debounce: grava antes de encerrar
	if pipeline.Snapshot().Dirty && !pipeline.SaveNow(shutdownCtx) {
		logger.Warn("final save failed", zap.String("error", pipeline.Status().Error))
	}
	pipeline.Close()
}

func openStore(ctx context.Context, cfg config) (domain.Store, func(), error) {
	switch cfg.storageType {
	case "memory":
		return infra.NewMemoryStore(), func() {}, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return infra.NewRedisStore(rdb, cfg.redisPrefix), func() { _ = rdb.Close() }, nil
	default:
		s, err := infra.OpenSQLite(cfg.sqlitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
}

func newLimiter(cfg config) rldomain.WindowLimiter {
	if cfg.rateStrategy == "bucket" {
		return rlinfra.NewBucketStore(cfg.rateWindow, cfg.rateCapacity)
	}
	return rlinfra.NewWindowStore(cfg.rateWindow, cfg.rateCapacity)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/cache"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/config"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/handlers"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/logic"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/scoring"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/upstream"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("api: %v", err)
	}
}

func run() error {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Lookup cache
	var lookupCache logic.LookupCache = cache.Nop{}
	var cachePinger handlers.Pinger
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()

		rc := cache.New(cache.Config{
			Client:     client,
			AccountTTL: cfg.AccountCacheTTL,
			StatsTTL:   cfg.StatsCacheTTL,
			Logger:     logger,
		})
		if err := rc.Ping(ctx); err != nil {
			sugar.Warnw("Redis unreachable, lookups will miss until it recovers", "error", err)
		}
		lookupCache = rc
		cachePinger = rc
	}

	// Upstream providers
	wg := upstream.NewWargamingClient(upstream.WargamingConfig{
		AppID:   cfg.WargamingAppID,
		Timeout: cfg.HTTPTimeout,
	})
	tomato := upstream.NewTomatoClient(upstream.TomatoConfig{
		BaseURL:       cfg.TomatoBaseURL,
		Timeout:       cfg.HTTPTimeout,
		RatePerSecond: cfg.TomatoRatePerSecond,
	})

	// Scoring artifacts
	store := scoring.NewStore(&scoring.FileLoader{
		ModelPath:    cfg.ModelPath,
		ScalerPath:   cfg.ScalerPath,
		MapIndexPath: cfg.MapIndexPath,
		Logger:       logger,
	}, logger)
	if _, err := store.Get(ctx); err != nil {
		// Not fatal: /predict/win answers 503 and the next request retries.
		sugar.Errorw("Scoring artifacts failed to load", "error", err)
	}

	predictions := logic.NewPredictionService(logic.PredictionConfig{
		Directory:     wg,
		Stats:         tomato,
		Cache:         lookupCache,
		Artifacts:     store,
		DefaultRegion: cfg.WargamingRegion,
		FetchTimeout:  cfg.HTTPTimeout,
		Logger:        logger,
	})

	h := handlers.New(handlers.Config{
		Prediction:    predictions,
		Accounts:      wg,
		Stats:         tomato,
		Artifacts:     store,
		Cache:         cachePinger,
		DefaultRegion: cfg.WargamingRegion,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: h.Router(handlers.RouterConfig{
			APIPrefix:      cfg.APIPrefix,
			AllowedOrigins: cfg.AllowedOrigins,
			RequestTimeout: 3 * cfg.HTTPTimeout,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		sugar.Infow("API listening", "addr", srv.Addr, "prefix", cfg.APIPrefix, "region", cfg.WargamingRegion)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	sugar.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

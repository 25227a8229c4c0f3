package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/edgar-filings-service/internal/config"
	"github.com/edgar-filings-service/internal/middleware"
	"github.com/edgar-filings-service/internal/server"
	"github.com/edgar-filings-service/internal/service"
	"github.com/edgar-filings-service/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.With().Str("service", "edgar-filings").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.Migrate(cfg.DatabaseURL); err != nil {
		return err
	}

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	pg := store.NewPostgres(pool)

	accounts := service.NewAccountService(pg, nil)
	tokens, err := service.NewTokenService(service.TokenConfig{
		SecretKey:  cfg.JWTSecret,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, pg)
	if err != nil {
		return err
	}
	apiKeys := service.NewAPIKeyService(pg, pg)

	var limiter middleware.Limiter
	if cfg.RedisURL != "" {
		redisLimiter, err := middleware.NewRedisLimiter(ctx, cfg.RedisURL, cfg.RateLimitBurst)
		if err != nil {
			return err
		}
		defer redisLimiter.Close()
		limiter = redisLimiter
		log.Info().Msg("using redis rate limiter")
	} else {
		limiter = middleware.NewMemoryLimiter(cfg.RateLimitPerSec, cfg.RateLimitBurst)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router := server.NewRouter(server.Deps{
		Config:   cfg,
		Store:    pg,
		Accounts: accounts,
		Tokens:   tokens,
		APIKeys:  apiKeys,
		Limiter:  limiter,
		Registry: registry,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

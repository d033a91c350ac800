package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/registrylens/registry-risk/internal/api"
	"github.com/registrylens/registry-risk/internal/cache"
	"github.com/registrylens/registry-risk/internal/config"
	"github.com/registrylens/registry-risk/internal/engine"
	"github.com/registrylens/registry-risk/internal/metrics"
	"github.com/registrylens/registry-risk/internal/registry"
	"github.com/registrylens/registry-risk/internal/usage"
	"github.com/registrylens/registry-risk/internal/utils"
)

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting risk engine", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var provider cache.Provider
	switch cfg.Cache.Backend {
	case "redis":
		redisProvider, err := cache.NewRedisProvider(cache.RedisConfig{
			URL:          cfg.Cache.URL,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxAge:       cfg.Cache.MaxAge,
		})
		if err != nil {
			logger.Error("redis cache unavailable", slog.Any("error", err))
			os.Exit(1)
		}
		provider = redisProvider
	case "none":
		provider = cache.NoopProvider{}
	default:
		provider = cache.NewMemoryProvider()
	}
	defer provider.Close()

	client := registry.NewClient(registry.Config{
		BaseURL:     cfg.Registry.BaseURL,
		APIKey:      cfg.Registry.APIKey,
		Timeout:     cfg.Registry.Timeout,
		MaxRequests: cfg.Registry.RateLimit.MaxRequests,
		Window:      cfg.Registry.RateLimit.Window,
		DefaultTTL:  cfg.Registry.CacheTTL,
	}, provider, logger)

	var tracker usage.Tracker
	if cfg.Usage.Backend == "postgres" {
		tracker, err = usage.NewPostgresTracker(ctx, cfg.Usage.DSN)
		if err != nil {
			logger.Error("postgres usage tracker unavailable", slog.Any("error", err))
			os.Exit(1)
		}
	} else {
		tracker = usage.NewMemoryTracker()
	}
	defer tracker.Close()

	riskEngine := engine.New(client, tracker, logger)
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      api.NewServer(riskEngine, client, tracker, logger).Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // streaming responses stay open past any fixed deadline
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		logger.Info("http server listening", slog.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server exited", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", slog.Any("error", err))
	}

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("risk engine stopped")
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/drop-plan-generator/internal/api"
	"github.com/drop-plan-generator/internal/config"
	"github.com/drop-plan-generator/internal/service"
	"github.com/drop-plan-generator/internal/storage"
	"github.com/drop-plan-generator/internal/storage/cassandra"
	"github.com/drop-plan-generator/internal/storage/postgres"
	"github.com/drop-plan-generator/internal/storage/redis"
	"github.com/drop-plan-generator/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithOptions(os.Stdout, logger.Level(cfg.LogLevel), logger.Format(cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize storage", logger.F("backend", cfg.Storage.Backend), logger.F("error", err.Error()))
		os.Exit(1)
	}
	defer closeRepo()

	planService := service.NewPlanService(repo, cfg.DefaultDrops, cfg.MaxDrops, log)

	var limiter *rate.Limiter
	if cfg.RateLimit.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
	}
	handler := api.NewHandler(planService, limiter, log)

	router := chi.NewRouter()
	router.Use(api.RequestIDMiddleware)
	router.Use(middleware.RealIP)
	router.Use(api.LoggingMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.RequestTimeout))

	router.Mount("/", handler.Routes())

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("Server starting",
			logger.F("address", cfg.Address()),
			logger.F("storage", cfg.Storage.Backend),
			logger.F("max_drops", strconv.Itoa(cfg.MaxDrops)))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", logger.F("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.F("error", err.Error()))
		os.Exit(1)
	}

	log.Info("Server exited")
}

// openRepository builds the configured plan repository and its cleanup func
func openRepository(ctx context.Context, cfg *config.Config, log *logger.Logger) (storage.PlanRepository, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendRedis:
		store, err := redis.NewStore(cfg.Redis, cfg.Storage.PlanTTL, log)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil

	case config.BackendCassandra:
		client, err := cassandra.NewClient(cfg.Cassandra, log)
		if err != nil {
			return nil, nil, err
		}
		return cassandra.NewRepository(client, log, cfg.Cassandra.Timeout, cfg.Storage.PlanTTL), client.Close, nil

	case config.BackendPostgres:
		repo, err := postgres.Open(cfg.Postgres, cfg.Storage.PlanTTL, log)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Storage.PlanTTL > 0 {
			go purgeExpired(ctx, repo, cfg.Storage.PlanTTL, log)
		}
		return repo, func() { repo.Close() }, nil

	default:
		log.Warn("Using in-memory storage, plans are lost on restart")
		return storage.NewMemoryStorage(), func() {}, nil
	}
}

// purgeExpired periodically removes expired plans until ctx is done
func purgeExpired(ctx context.Context, repo *postgres.Repository, ttl time.Duration, log *logger.Logger) {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.PurgeExpired(ctx)
			if err != nil {
				log.Warn("Failed to purge expired plans", logger.F("error", err.Error()))
				continue
			}
			if n > 0 {
				log.Info("Purged expired plans", logger.F("count", strconv.FormatInt(n, 10)))
			}
		}
	}
}

// Package main is the entry point for the greeting service HTTP server.
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

	"github.com/gin-gonic/gin"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/sebasr/greetcard-service/internal/config"
	"github.com/sebasr/greetcard-service/internal/database"
	"github.com/sebasr/greetcard-service/internal/events"
	"github.com/sebasr/greetcard-service/internal/logger"
	"github.com/sebasr/greetcard-service/internal/repository"
	"github.com/sebasr/greetcard-service/internal/server"
)

const shutdownTimeout = 10 * time.Second

// @title Greeting Card API
// @version 1.0.0
// @description Create greetings and fetch them by their share identifier.
// @schemes http https
// @BasePath /
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(cfg, zlog); err != nil {
		zlog.Error("server stopped with error", zap.Error(err))
		_ = zlog.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, checker, closeStore, err := openStore(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.Cache.Addr != "" {
		cache, err := repository.NewRedisCache(ctx, cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB)
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer func() { _ = cache.Close() }()

		repo = repository.NewCachedGreetingRepository(repo, cache, cfg.Cache.TTL, zlog)
		zlog.Info("read cache enabled", zap.String("addr", cfg.Cache.Addr), zap.Duration("ttl", cfg.Cache.TTL))
	}

	publisher := events.NewNoop()
	if cfg.Events.URL != "" {
		rabbit, err := events.NewRabbit(cfg.Events.URL, cfg.Events.Exchange)
		if err != nil {
			return fmt.Errorf("rabbitmq connect: %w", err)
		}
		publisher = rabbit
		zlog.Info("event publishing enabled", zap.String("exchange", cfg.Events.Exchange))
	} else {
		zlog.Info("event publishing not configured")
	}
	defer func() { _ = publisher.Close() }()

	router, err := server.New(&server.Dependencies{
		Config:        cfg,
		Repo:          repo,
		HealthChecker: checker,
		Publisher:     publisher,
		Logger:        zlog,
	})
	if err != nil {
		return err
	}

	return serve(router, cfg.Server.Port, zlog)
}

// openStore connects the configured greeting store and returns a function releasing it
func openStore(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (
	repository.GreetingRepository, repository.HealthChecker, func(), error,
) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		zlog.Warn("using in-memory store; greetings are lost on restart")
		return repository.NewMemoryGreetingRepository(), nil, func() {}, nil

	case config.DriverMongo:
		store, err := repository.NewMongoGreetingRepository(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("mongo connect: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close(context.Background())
			return nil, nil, nil, fmt.Errorf("mongo indexes: %w", err)
		}
		zlog.Info("connected to mongo", zap.String("database", cfg.Mongo.Database))
		return store, store, func() { _ = store.Close(context.Background()) }, nil

	default:
		db, err := database.New(&cfg.Database)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		zlog.Info("successfully connected to database")

		if cfg.Database.AutoMigrate {
			applied, err := db.Migrate(ctx)
			if err != nil {
				_ = db.Close()
				return nil, nil, nil, err
			}
			zlog.Info("migrations applied", zap.Strings("versions", applied))
		}

		closeDB := func() {
			if err := db.Close(); err != nil {
				zlog.Error("error closing database", zap.Error(err))
			}
		}
		store := repository.NewPostgresGreetingRepository(db)
		return store, store, closeDB, nil
	}
}

// serve runs the HTTP server until SIGINT/SIGTERM, then drains in-flight requests
func serve(router *gin.Engine, port string, zlog *zap.Logger) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.ListenAndServe() }()

	zlog.Info("starting server", zap.String("port", port))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		zlog.Info("shutting down", zap.String("signal", s.String()))
	case err := <-srvErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

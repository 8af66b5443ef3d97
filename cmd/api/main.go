package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"shopfront/internal/config"
	"shopfront/internal/database"
	"shopfront/internal/logger"
	"shopfront/internal/media"
	"shopfront/internal/server"
	"shopfront/internal/task"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, sweep *task.SweepTask, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The context is used to inform the server it has 30 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	sweep.Stop(ctx)

	// Close server resources
	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func openRedis(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) *redis.Client {
	if cfg.Addr() == "" {
		log.Info("Rate limiting disabled, REDIS_HOST not set")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		// The limiter fails open, so a missing redis only loses rate limiting
		log.Warn("Redis unreachable, requests will not be rate limited", zap.String("addr", cfg.Addr()), zap.Error(err))
	}
	return client
}

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting shopfront API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Driver),
	)

	ctx := context.Background()
	fs := afero.NewOsFs()

	// Initialize record store
	store, err := database.Open(ctx, database.Options{
		Driver:  cfg.Store.Driver,
		DataDir: cfg.Store.DataDir,
		DSN:     cfg.Database.DSN(),
		Fs:      fs,
	}, log)
	if err != nil {
		log.Fatal("Failed to open record store", zap.Error(err))
	}
	log.Info("Record store health check", zap.Any("health", store.Health(ctx)))

	// Initialize media storage
	mediaManager, err := media.NewManager(fs, media.Config{
		Dir:       cfg.Media.Dir,
		URLPrefix: cfg.Media.URLPrefix,
		MaxBytes:  cfg.Media.MaxBytes,
		Strict:    cfg.Media.Strict,
	}, log)
	if err != nil {
		log.Fatal("Failed to prepare upload directory", zap.Error(err))
	}

	// Create server
	srv := server.NewServer(cfg, log, server.Deps{
		Store: store,
		Media: mediaManager,
		Fs:    fs,
		Redis: openRedis(ctx, cfg.Redis, log),
	})

	if cfg.Store.Seed {
		if _, err := srv.Catalog.Seed(ctx); err != nil {
			log.Fatal("Failed to seed catalog", zap.Error(err))
		}
	}

	sweep := task.NewSweepTask(srv.Maintenance, cfg.Media.SweepSchedule, log)
	if err := sweep.Start(); err != nil {
		log.Fatal("Failed to schedule upload sweep", zap.Error(err))
	}

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(srv, sweep, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info("Graceful shutdown complete")
}

// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/javajoker/fifo-inventory/internal/config"
	"github.com/javajoker/fifo-inventory/internal/consumer"
	"github.com/javajoker/fifo-inventory/internal/database"
	"github.com/javajoker/fifo-inventory/internal/i18n"
	"github.com/javajoker/fifo-inventory/internal/inventory"
	"github.com/javajoker/fifo-inventory/internal/middleware"
	"github.com/javajoker/fifo-inventory/internal/observability"
	"github.com/javajoker/fifo-inventory/internal/router"
	"github.com/javajoker/fifo-inventory/internal/services"
	"github.com/javajoker/fifo-inventory/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger := newLogger(cfg)

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("Server exited with error")
	}
	logger.Info("Server exited")
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.StandardLogger()
	if cfg.IsProduction() {
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize i18n
	if err := i18n.Initialize(cfg.I18n.DefaultLocale, cfg.I18n.LocalesPath); err != nil {
		return fmt.Errorf("failed to initialize i18n: %w", err)
	}

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Telemetry, cfg.Environment)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Failed to flush traces")
		}
	}()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	engine, err := inventory.NewEngine(ctx, st, inventory.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to initialize inventory engine: %w", err)
	}

	storage, err := services.NewStorageService(cfg.AWS)
	if err != nil {
		return fmt.Errorf("failed to initialize report storage: %w", err)
	}

	var eventConsumer *consumer.Consumer
	if cfg.Kafka.Enabled {
		eventConsumer = consumer.New(consumer.NewReader(cfg.Kafka), engine, logger.WithFields(logrus.Fields{
			"topic": cfg.Kafka.Topic,
			"group": cfg.Kafka.GroupID,
		}))
		defer eventConsumer.Close()
	}

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)

	// Initialize router
	r, err := router.Initialize(cfg, router.Dependencies{
		Engine:      engine,
		Storage:     storage,
		Consumer:    eventConsumer,
		RateLimiter: limiter,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithFields(logrus.Fields{
			"port":   cfg.Server.Port,
			"store":  cfg.Database.Driver,
			"kafka":  cfg.Kafka.Enabled,
			"auth":   cfg.Auth.Enabled,
			"s3":     storage.Enabled(),
			"resume": engine.LastSequence(),
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		// Create a deadline for shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		limiter.Run(gctx)
		return nil
	})

	if eventConsumer != nil {
		g.Go(func() error {
			return eventConsumer.Run(gctx)
		})
	}

	return g.Wait()
}

func openStore(cfg *config.Config) (store.Store, error) {
	if !cfg.Database.UsesPostgres() {
		logrus.Warn("Using in-memory store; inventory is lost on restart")
		return store.NewMemoryStore(), nil
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		return nil, err
	}

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		database.Close(db)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store.NewGormStore(db), nil
}
